package surrogate

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/koreacsl/pathfault-go/pathfault/condition"
	"github.com/koreacsl/pathfault-go/pathfault/encoding"
	"github.com/koreacsl/pathfault-go/pathfault/rewrite"
	"github.com/koreacsl/pathfault-go/pathfault/server"
)

// compositeMiddlePrefix/compositeMiddleSuffix are the fixed framing the
// transformation_composite_middle probe wraps its variable segment in
// (spec.md §4.4 bullet 3).
const (
	compositeMiddlePrefix = "/tmp1/"
	compositeMiddleSuffix = "/tmp2"
)

var (
	outboundTruncated    = []byte("/tmp1/tmp2")
	outboundSplitWithTmp = []byte("/tmp1/tmp2/tmp4")
)

// BuildOptions controls the negative-condition skip list (SPEC_FULL.md
// supplemental feature 1: the original's skip list is wider than
// "just %"; SPEC_FULL keeps spec.md's narrower default but exposes the
// knob).
type BuildOptions struct {
	// SkipBytes lists raw byte values the bad-bucket negative-condition
	// step never builds a Contains(negated) condition for. Default:
	// just 0x25 ('%'), matching spec.md §4.4 step 2's literal rule.
	SkipBytes []byte
}

// DefaultBuildOptions returns spec.md's stated default: skip only '%'.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{SkipBytes: []byte{'%'}}
}

func (o BuildOptions) skips(b byte) bool {
	for _, s := range o.SkipBytes {
		if s == b {
			return true
		}
	}
	return false
}

// BuildServers builds a fresh Server for every name in order, reading
// each one's behavior from report. order fixes the chain position
// each server occupies -- report itself is an unordered map, so the
// caller (which knows the packet-capture chain topology) supplies the
// sequence.
func BuildServers(report Report, order []string, opts BuildOptions) ([]*server.Server, error) {
	out := make([]*server.Server, 0, len(order))
	for _, name := range order {
		sr, ok := report[name]
		if !ok {
			return nil, fmt.Errorf("surrogate: report has no entry for server %q", name)
		}
		srv, err := buildOne(name, sr, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, srv)
	}
	return out, nil
}

// BuildIncremental appends one Server per name present in report but
// not already in existing, preserving existing's order and chain
// position, and returns the extended list (SPEC_FULL.md supplemental
// feature 3: the original's depth-bounded incremental rebuild --
// append/merge semantics for one more hop's report onto an existing
// partial chain). New names are appended in sorted order for
// determinism, since a map has none of its own.
func BuildIncremental(existing []*server.Server, report Report, opts BuildOptions) ([]*server.Server, error) {
	have := make(map[string]bool, len(existing))
	for _, s := range existing {
		have[s.Name] = true
	}
	var newNames []string
	for name := range report {
		if !have[name] {
			newNames = append(newNames, name)
		}
	}
	sort.Strings(newNames)

	out := make([]*server.Server, len(existing), len(existing)+len(newNames))
	copy(out, existing)
	for _, name := range newNames {
		srv, err := buildOne(name, report[name], opts)
		if err != nil {
			return nil, err
		}
		out = append(out, srv)
	}
	return out, nil
}

func buildOne(name string, sr ServerReport, opts BuildOptions) (*server.Server, error) {
	srv := server.New(name)
	srv.SetDecode(sr.IsDecode)
	srv.SetNormalize(sr.IsNormalize)
	srv.Stats = server.Stats{
		Total:                     sr.Statistic.Total,
		Valid:                     sr.Statistic.Valid,
		Bad:                       sr.Statistic.Bad,
		InconsistencyCount:        sr.Statistic.Inconsistency.Count,
		InconsistencyRatio:        sr.Statistic.Inconsistency.Ratio,
		InconsistencyRatioToValid: sr.Statistic.Inconsistency.RatioToValid,
	}

	if err := addNegativeConditions(srv, sr, opts); err != nil {
		return nil, err
	}
	if err := classifyAndSynthesize(srv, sr); err != nil {
		return nil, err
	}
	return srv, nil
}

// addNegativeConditions implements spec.md §4.4 step 2: every hex
// seed in the bad bucket (one that never produced an outbound at all)
// becomes a negated Contains condition on the server's global
// Conditions, except seeds BuildOptions skips.
func addNegativeConditions(srv *server.Server, sr ServerReport, opts BuildOptions) error {
	seeds := make([]string, 0, len(sr.Transformation.Bad))
	for seed := range sr.Transformation.Bad {
		seeds = append(seeds, seed)
	}
	sort.Strings(seeds)

	for _, seed := range seeds {
		b, ok, err := seedBytes(seed)
		if err != nil {
			return err
		}
		if !ok || len(b) != 1 || opts.skips(b[0]) {
			continue
		}
		cond, err := condition.New(condition.Contains, b, true)
		if err != nil {
			return err
		}
		srv.Conditions = append(srv.Conditions, cond)
	}
	return nil
}

// classifyAndSynthesize implements spec.md §4.4 steps 3-4: partition
// every inconsistency record into omitted/accepted, and synthesize a
// rewrite per accepted record by probe type, falling back to
// unprocessed for anything that doesn't fit.
func classifyAndSynthesize(srv *server.Server, sr ServerReport) error {
	seeds := make([]string, 0, len(sr.Transformation.Inconsistency))
	for seed := range sr.Transformation.Inconsistency {
		seeds = append(seeds, seed)
	}
	sort.Strings(seeds)

	for _, seed := range seeds {
		byType := sr.Transformation.Inconsistency[seed]
		types := make([]string, 0, len(byType))
		for rt := range byType {
			types = append(types, rt)
		}
		sort.Strings(types)

		for _, rt := range types {
			rec := byType[rt]
			if err := classifyOne(srv, seed, rt, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func classifyOne(srv *server.Server, seed, requestType string, rec InconsistencyRecord) error {
	omitted, err := isOmitted(rec.InboundURL, rec.OutboundURL, seed)
	if err != nil {
		return err
	}
	pair := server.ObservedPair{RequestType: requestType, Inbound: rec.InboundURL, Outbound: rec.OutboundURL}

	if omitted {
		appendAudit(&srv.Omitted, seed, pair)
		return nil
	}

	synthesized, err := synthesize(srv.Name, seed, requestType, rec)
	if err != nil {
		return err
	}
	if synthesized == nil {
		appendAudit(&srv.Unprocessed, seed, pair)
		return nil
	}
	srv.Transformations = append(srv.Transformations, synthesized...)
	appendAudit(&srv.Inconsistencies, seed, pair)
	return nil
}

// synthesize returns the rewrites an accepted entry produces, or nil
// if the probe type/framing doesn't fit any synthesis rule (caller
// records it as unprocessed).
func synthesize(serverName, seed, requestType string, rec InconsistencyRecord) ([]rewrite.Transformation, error) {
	seedRaw, ok, err := seedBytes(seed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	switch requestType {
	case RequestCompositeMiddleWithoutSlash:
		return synthesizeCompositeWithoutSlash(serverName, seed, seedRaw, rec)
	case RequestCompositeMiddle:
		return synthesizeCompositeMiddle(serverName, seed, rec)
	default:
		// normalization / decoding_in_range and anything else: these
		// probe types inform the is_normalize/is_decode flags (already
		// set from the report's top-level fields), not a rewrite
		// synthesis rule -- spec.md §4.4's "anything else" fallback.
		return nil, nil
	}
}

func synthesizeCompositeWithoutSlash(serverName, seed string, A []byte, rec InconsistencyRecord) ([]rewrite.Transformation, error) {
	outbound, err := urlBytes(rec.OutboundURL)
	if err != nil {
		return nil, err
	}
	contains, err := condition.New(condition.Contains, A, false)
	if err != nil {
		return nil, err
	}

	switch {
	case bytes.Equal(outbound, outboundTruncated):
		return []rewrite.Transformation{{
			Name:    fmt.Sprintf("%s_truncate_at_%s", serverName, seed),
			Rewrite: rewrite.SubStringUntil{Offset: 0, Delimiter: A},
			Guards:  []condition.Condition{contains},
		}}, nil

	case bytes.Equal(outbound, outboundSplitWithTmp):
		hasSlash, err := condition.New(condition.HasSlashAfter, A, false)
		if err != nil {
			return nil, err
		}
		split := rewrite.Transformation{
			Name:    fmt.Sprintf("%s_split_at_%s", serverName, seed),
			Rewrite: rewrite.DelimiterSlashSplit{Delim: A},
			Guards:  []condition.Condition{contains, hasSlash},
		}
		truncate := rewrite.Transformation{
			Name:    fmt.Sprintf("%s_truncate_noslash_at_%s", serverName, seed),
			Rewrite: rewrite.SubStringUntil{Offset: 0, Delimiter: A},
			Guards:  []condition.Condition{contains, hasSlash.Negate()},
		}
		return []rewrite.Transformation{split, truncate}, nil

	default:
		return nil, nil
	}
}

func synthesizeCompositeMiddle(serverName, seed string, rec InconsistencyRecord) ([]rewrite.Transformation, error) {
	inbound, err := urlBytes(rec.InboundURL)
	if err != nil {
		return nil, err
	}
	outbound, err := urlBytes(rec.OutboundURL)
	if err != nil {
		return nil, err
	}

	prefix, suffix := []byte(compositeMiddlePrefix), []byte(compositeMiddleSuffix)
	if !bytes.HasPrefix(inbound, prefix) || !bytes.HasSuffix(inbound, suffix) ||
		!bytes.HasPrefix(outbound, prefix) || !bytes.HasSuffix(outbound, suffix) {
		return nil, nil
	}

	a := inbound[len(prefix) : len(inbound)-len(suffix)]
	b := outbound[len(prefix) : len(outbound)-len(suffix)]
	if len(a) == 0 || len(b) == 0 {
		return nil, nil
	}

	contains, err := condition.New(condition.Contains, a, false)
	if err != nil {
		return nil, err
	}
	return []rewrite.Transformation{{
		Name:    fmt.Sprintf("%s_replace_%s", serverName, seed),
		Rewrite: rewrite.Replace{Target: a, Replacement: b},
		Guards:  []condition.Condition{contains},
	}}, nil
}

// isOmitted implements spec.md §4.4 step 3's precise rule: decode both
// hex wire forms to raw bytes first, then replace every occurrence of
// the seed byte with its percent-encoded ASCII form on the decoded
// byte string, not the hex text -- matching on hex digits directly
// (as opposed to decoding first) can straddle a byte boundary, e.g.
// seed "20" spuriously matching the "20" formed by the last hex digit
// of one byte and the first hex digit of the next. An entry is
// omitted when the substituted bytes hex-encode back to the outbound
// hex string verbatim.
func isOmitted(inboundHex, outboundHex, seedHex string) (bool, error) {
	if seedHex == emptySeed {
		return false, nil
	}
	seedRaw, err := hex.DecodeString(seedHex)
	if err != nil {
		return false, fmt.Errorf("hex_seed %q: %w", seedHex, err)
	}
	inboundRaw, err := hex.DecodeString(inboundHex)
	if err != nil {
		return false, fmt.Errorf("inbound_url %q: %w", inboundHex, err)
	}

	var percentRaw []byte
	for _, b := range seedRaw {
		percentRaw = append(percentRaw, []byte(encoding.Encode(b))...)
	}

	replaced := bytes.ReplaceAll(inboundRaw, seedRaw, percentRaw)
	return strings.EqualFold(hex.EncodeToString(replaced), outboundHex), nil
}

func appendAudit(bucket *[]server.InconsistencyEntry, seed string, pair server.ObservedPair) {
	for i := range *bucket {
		if (*bucket)[i].HexByte == seed {
			(*bucket)[i].Observed = append((*bucket)[i].Observed, pair)
			return
		}
	}
	*bucket = append(*bucket, server.InconsistencyEntry{
		HexByte:  seed,
		Char:     renderChar(seed),
		Observed: []server.ObservedPair{pair},
	})
}

// renderChar gives a printable rendering of a hex_seed for audit
// output: the literal character when printable ASCII, a \xHH escape
// otherwise, and the sentinel itself verbatim for "empty".
func renderChar(seedHex string) string {
	if seedHex == emptySeed {
		return emptySeed
	}
	b, err := hex.DecodeString(seedHex)
	if err != nil || len(b) != 1 {
		return seedHex
	}
	if b[0] >= 0x20 && b[0] < 0x7f {
		return string(b[0])
	}
	return fmt.Sprintf("\\x%02x", b[0])
}
