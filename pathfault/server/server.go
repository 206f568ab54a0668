// Package server implements the C3 per-server bundle: the ordered
// conditions and transformations one intermediary applies to a URL,
// plus the three audit buckets a surrogate build leaves behind.
package server

import (
	"sort"

	"github.com/koreacsl/pathfault-go/pathfault/condition"
	"github.com/koreacsl/pathfault-go/pathfault/encoding"
	"github.com/koreacsl/pathfault-go/pathfault/rewrite"
	"github.com/koreacsl/pathfault-go/pathfault/smt"
)

// canonicalNormStr is the normalization string every server gets the
// instant IsNormalize flips true, per spec.md §3's toggle invariant.
const canonicalNormStr = "/../"

// ObservedPair is one observed request against a server during
// inconsistency discovery, kept for audit only.
type ObservedPair struct {
	RequestType string
	Inbound     string
	Outbound    string
}

// InconsistencyEntry is one audit record: a probed hex byte value,
// its printable rendering, and every request/response pair observed
// for it.
type InconsistencyEntry struct {
	HexByte  string
	Char     string
	Observed []ObservedPair
}

// Stats carries the report's statistic block through to the built
// Server rather than discarding it after classification -- spec.md
// marks these "audit only", but the original keeps them for exactly
// the reporting purpose SPEC_FULL.md restores (see DESIGN.md).
type Stats struct {
	Total                     int
	Valid                     int
	Bad                       int
	InconsistencyCount        int
	InconsistencyRatio        float64
	InconsistencyRatioToValid float64
}

// Server is the per-intermediary model C5 compiles into a chain
// formula. Fields mirror spec.md §3 exactly; Inconsistencies/Omitted/
// Unprocessed are populated once by the surrogate builder and never
// read by the compiler -- audit only.
type Server struct {
	Name string

	Conditions     []condition.Condition
	PreConditions  []condition.Condition
	PostConditions []condition.Condition

	Transformations          []rewrite.Transformation
	EssentialTransformations []rewrite.Transformation

	IsNormalize    bool
	IsDecode       bool
	Normalizations []rewrite.Transformation

	Inconsistencies []InconsistencyEntry
	Omitted         []InconsistencyEntry
	Unprocessed     []InconsistencyEntry

	Stats Stats
}

// New returns an empty Server ready for a surrogate build to populate.
func New(name string) *Server {
	return &Server{Name: name}
}

// SetNormalize toggles IsNormalize, enforcing spec.md §3's invariant:
// flipping true seeds Normalizations with the canonical "/../" rewrite
// if it's currently empty; flipping false always clears it.
func (s *Server) SetNormalize(v bool) {
	s.IsNormalize = v
	if !v {
		s.Normalizations = nil
		return
	}
	if len(s.Normalizations) == 0 {
		s.Normalizations = []rewrite.Transformation{CanonicalNormalization()}
	}
}

// SetDecode sets the decode flag. Only meaningful at construction time
// (spec.md §3's lifecycle note); nothing prevents calling it later, but
// doing so after enumeration has started would make in-flight formulas
// stale.
func (s *Server) SetDecode(v bool) {
	s.IsDecode = v
}

// CanonicalNormalization returns the default "/../" normalization
// rewrite every normalizing server starts with.
func CanonicalNormalization() rewrite.Transformation {
	return rewrite.Transformation{
		Name:    "canonical_dotdot",
		Rewrite: rewrite.Normalization{NormStr: []byte(canonicalNormStr)},
	}
}

// ApplyPreConditions conjuncts PreConditions and the server's global
// Conditions against s.
func (s *Server) ApplyPreConditions(u smt.Expr) (smt.Expr, smt.Bool) {
	return u, conjunctAll(u, s.PreConditions, s.Conditions)
}

// ApplyPostConditions conjuncts PostConditions against u.
func (s *Server) ApplyPostConditions(u smt.Expr) (smt.Expr, smt.Bool) {
	return u, conjunctAll(u, s.PostConditions)
}

func conjunctAll(u smt.Expr, groups ...[]condition.Condition) smt.Bool {
	var bs []smt.Bool
	for _, g := range groups {
		for _, c := range g {
			bs = append(bs, c.Apply(u))
		}
	}
	return smt.And(bs...)
}

// ApplyDecoding symbolically decodes u if IsDecode is set, replacing
// every percent-encoded byte with its raw value via a fixpoint replace
// per table entry, %25 processed last (spec.md §4.3). Entries are
// visited in sorted order so the resulting formula is deterministic
// across runs.
func (s *Server) ApplyDecoding(u smt.Expr) smt.Expr {
	if !s.IsDecode {
		return u
	}
	keys := make([]string, 0, len(encoding.DecodingMap))
	for enc := range encoding.DecodingMap {
		if enc == "%25" {
			continue
		}
		keys = append(keys, enc)
	}
	sort.Strings(keys)

	cur := u
	for _, enc := range keys {
		raw := encoding.DecodingMap[enc]
		cur, _ = (rewrite.Replace{Target: []byte(enc), Replacement: []byte(raw)}).ApplyFixpoint(cur)
	}
	cur, _ = (rewrite.Replace{Target: []byte("%25"), Replacement: []byte{'%'}}).ApplyFixpoint(cur)
	return cur
}

// ApplyTransformations folds the chosen optional transformations over
// u with an if-guard: each transformation applies only when its own
// guard holds on the current accumulated value, otherwise it's a
// no-op (spec.md §4.3's if-guard fold). selected is the subset a
// ChainChoice picked for this server.
func (s *Server) ApplyTransformations(u smt.Expr, selected []rewrite.Transformation) smt.Expr {
	cur := u
	for _, t := range selected {
		result, guard := t.ApplySingle(cur)
		cur = smt.Ite(guard, result, cur)
	}
	return cur
}

// ApplyEssentialTransformations applies every EssentialTransformation
// in order and returns the conjunction of their guards as a hard
// assertion: an unsatisfied essential guard makes the whole formula
// UNSAT for this choice (spec.md §4.3, §7 GuardConflict).
func (s *Server) ApplyEssentialTransformations(u smt.Expr) (smt.Expr, smt.Bool) {
	cur := u
	guards := make([]smt.Bool, 0, len(s.EssentialTransformations))
	for _, t := range s.EssentialTransformations {
		result, guard := t.ApplySingle(cur)
		guards = append(guards, guard)
		cur = result
	}
	return cur, smt.And(guards...)
}

// ApplyNormalization conditionally applies one normalization
// transformation via an if-guard, or is identity if IsNormalize is
// false. variant overrides which Normalizations entry is used; pass
// nil to use the canonical default (Normalizations[0]) -- the
// normalization expander (C7) supplies variant when it has produced an
// encoded alternative for this chain choice.
func (s *Server) ApplyNormalization(u smt.Expr, variant *rewrite.Transformation) smt.Expr {
	if !s.IsNormalize || len(s.Normalizations) == 0 {
		return u
	}
	t := s.Normalizations[0]
	if variant != nil {
		t = *variant
	}
	result, guard := t.ApplySingle(u)
	return smt.Ite(guard, result, u)
}

// ApplyPreConditionsConcrete is ApplyPreConditions' concrete
// counterpart: used by the payload validator (C8) to re-simulate a
// candidate URL without a solver round-trip.
func (s *Server) ApplyPreConditionsConcrete(u []byte) bool {
	return conjunctAllConcrete(u, s.PreConditions, s.Conditions)
}

// ApplyPostConditionsConcrete is ApplyPostConditions' concrete
// counterpart.
func (s *Server) ApplyPostConditionsConcrete(u []byte) bool {
	return conjunctAllConcrete(u, s.PostConditions)
}

func conjunctAllConcrete(u []byte, groups ...[]condition.Condition) bool {
	for _, g := range groups {
		for _, c := range g {
			if !c.EvalConcrete(u) {
				return false
			}
		}
	}
	return true
}

// ApplyDecodingConcrete is ApplyDecoding's concrete counterpart: if
// IsDecode, every DecodingMap entry is applied except %25 processed
// last (spec.md §4.3), via encoding.DecodeOrdered.
func (s *Server) ApplyDecodingConcrete(u []byte) []byte {
	if !s.IsDecode {
		return u
	}
	return []byte(encoding.DecodeOrdered(string(u)))
}

// ApplyTransformationsConcrete is ApplyTransformations' concrete
// counterpart: each selected transformation applies via its fixpoint
// surface, gated by its own guard evaluated on the current
// accumulated value, matching the validator's "saturate every match"
// contract rather than the chain compiler's if-guard-once fold.
func (s *Server) ApplyTransformationsConcrete(u []byte, selected []rewrite.Transformation) []byte {
	cur := u
	for _, t := range selected {
		if result, ok := t.ApplyConcreteFixpoint(cur); ok {
			cur = result
		}
	}
	return cur
}

// ApplyEssentialTransformationsConcrete is
// ApplyEssentialTransformations' concrete counterpart: every essential
// transformation applies unconditionally via its fixpoint surface, and
// its explicit Guards are not evaluated. Where the rewrite's own
// implicit guard fails (e.g. a Replace whose target is absent) the
// rewrite returns its input unchanged, so this never panics on an input
// the symbolic guard would have rejected -- it simply produces the
// trace the validator compares against the solver's claim.
func (s *Server) ApplyEssentialTransformationsConcrete(u []byte) []byte {
	cur := u
	for _, t := range s.EssentialTransformations {
		result, _ := t.ApplyConcreteFixpoint(cur)
		cur = result
	}
	return cur
}

// ApplyNormalizationConcrete is ApplyNormalization's concrete
// counterpart.
func (s *Server) ApplyNormalizationConcrete(u []byte, variant *rewrite.Transformation) []byte {
	if !s.IsNormalize || len(s.Normalizations) == 0 {
		return u
	}
	t := s.Normalizations[0]
	if variant != nil {
		t = *variant
	}
	result, ok := t.ApplyConcreteFixpoint(u)
	if !ok {
		return u
	}
	return result
}

// AllTransformations returns the union of optional and essential
// transformations -- the universe a ChainChoice's selected subset for
// this server must come from (spec.md §3's ChainChoice invariant).
func (s *Server) AllTransformations() []rewrite.Transformation {
	all := make([]rewrite.Transformation, 0, len(s.Transformations)+len(s.EssentialTransformations))
	all = append(all, s.Transformations...)
	all = append(all, s.EssentialTransformations...)
	return all
}
