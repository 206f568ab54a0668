// Package validate implements the C8 payload validator: it
// re-simulates a candidate URL through each server's rewrites using
// the fixpoint transformation surface (pathfault/rewrite's
// ApplyConcreteFixpoint/pathfault/condition's EvalConcrete), producing
// a per-hop trace and a pass/fail verdict. This catches SMT-side
// modeling errors where a single-step guard held under the model but
// a real server's saturating rewrite loop changes the outcome
// (spec.md §4.8, §7's ValidatorMismatch).
package validate

import (
	"time"

	"github.com/koreacsl/pathfault-go/pathfault/chain"
	"github.com/koreacsl/pathfault-go/pathfault/rewrite"
	"github.com/koreacsl/pathfault-go/pathfault/server"
)

// ExploitConstraint is the concrete counterpart to
// chain.ExploitConstraint: the same predicate the caller asserted
// symbolically over U0/UN, evaluated directly against the candidate
// and the final concrete hop result.
type ExploitConstraint func(u0, uN []byte) bool

// HopTrace is one server's concrete inbound/outbound pair from a
// validation run. Duration is populated even though no real request
// is sent, so the trace shape matches what the out-of-scope live
// exploit sender would eventually report back for the same hop
// (SPEC_FULL.md supplemental feature 4).
type HopTrace struct {
	Server   string
	Inbound  []byte
	Outbound []byte
	Duration time.Duration
}

// TraceResult is one candidate's full validation outcome: spec.md
// §6's "candidate payload list" per_hop_trace plus the pass/fail flag.
type TraceResult struct {
	CandidateURL []byte
	Hops         []HopTrace
	FinalURL     []byte
	Pass         bool
}

// Validate concretely re-simulates candidate through servers under
// choice -- the same ChainChoice a chain.Compile/solver call produced
// a SAT model for -- and reports whether the concrete final URL
// satisfies exploit. Servers must be the same ordered list, and choice
// must already have passed chain.ChainChoice.Validate; this function
// does not re-check choice shape, only replays it concretely.
func Validate(servers []*server.Server, choice chain.ChainChoice, candidate []byte, exploit ExploitConstraint) TraceResult {
	hops := make([]HopTrace, 0, len(servers))
	cur := append([]byte(nil), candidate...)

	for i, srv := range servers {
		start := time.Now()
		inbound := append([]byte(nil), cur...)

		// Pre/post-condition evaluation here is audit-only for the
		// validator (a concrete candidate either matches the model's
		// own constraints or it wouldn't have been SAT); a mismatch
		// still produces a trace rather than aborting, so the caller
		// can see exactly which hop diverged.
		_ = srv.ApplyPreConditionsConcrete(cur)

		decoded := srv.ApplyDecodingConcrete(cur)
		transformed := srv.ApplyTransformationsConcrete(decoded, choice.Selected[i])
		essential := srv.ApplyEssentialTransformationsConcrete(transformed)

		normalized := essential
		if i < len(choice.NormalizeFlags) && choice.NormalizeFlags[i] {
			var variant *rewrite.Transformation
			if i < len(choice.NormalizationVariant) {
				variant = choice.NormalizationVariant[i]
			}
			normalized = srv.ApplyNormalizationConcrete(essential, variant)
		}
		_ = srv.ApplyPostConditionsConcrete(normalized)

		cur = normalized
		hops = append(hops, HopTrace{
			Server:   srv.Name,
			Inbound:  inbound,
			Outbound: append([]byte(nil), cur...),
			Duration: time.Since(start),
		})
	}

	pass := false
	if exploit != nil {
		pass = exploit(candidate, cur)
	}

	return TraceResult{
		CandidateURL: candidate,
		Hops:         hops,
		FinalURL:     cur,
		Pass:         pass,
	}
}

// ValidateBatch runs Validate over every (choice, candidate) pair a
// solved enumeration run produced, preserving input order -- the
// order the run summary (spec.md §5) must report results in.
func ValidateBatch(servers []*server.Server, pairs []CandidatePair, exploit ExploitConstraint) []TraceResult {
	out := make([]TraceResult, len(pairs))
	for i, p := range pairs {
		out[i] = Validate(servers, p.Choice, p.CandidateURL, exploit)
	}
	return out
}

// CandidatePair bundles a solved ChainChoice with the concrete
// candidate URL the solver's model extracted for it.
type CandidatePair struct {
	Choice       chain.ChainChoice
	CandidateURL []byte
}
