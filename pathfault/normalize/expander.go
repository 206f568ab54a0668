// Package normalize implements the C7 normalization expander: given a
// chain step's (prev_normalize, prev_decode) pair, it produces the
// effective set of normalization-string alternatives a chain choice
// can pick from, cross-multiplying with percent-encoding variants and
// pruning alternatives a prior hop already subsumes.
package normalize

import (
	"bytes"

	"github.com/koreacsl/pathfault-go/pathfault/condition"
	"github.com/koreacsl/pathfault-go/pathfault/encoding"
	"github.com/koreacsl/pathfault-go/pathfault/rewrite"
)

// ExpandWithDecode produces percent-encoded variants of base's
// normalization string for a decoding server: every non-empty subset
// of base's '/' and '.' byte positions is independently
// percent-encoded, one variant per subset (spec.md §4.3).
func ExpandWithDecode(base rewrite.Transformation) []rewrite.Transformation {
	normStr, ok := normStrOf(base)
	if !ok {
		return nil
	}
	positions := encodablePositions(normStr)
	if len(positions) == 0 {
		return nil
	}

	variants := make([]rewrite.Transformation, 0, (1<<len(positions))-1)
	for mask := 1; mask < 1<<len(positions); mask++ {
		encodeAt := make(map[int]bool, len(positions))
		for bit, pos := range positions {
			if mask&(1<<bit) != 0 {
				encodeAt[pos] = true
			}
		}
		variant := make([]byte, 0, len(normStr)+2*len(positions))
		for i, b := range normStr {
			if encodeAt[i] {
				variant = append(variant, encoding.Encode(b)...)
			} else {
				variant = append(variant, b)
			}
		}
		variants = append(variants, wrapNormalization(withSuffix(base.Name, "decode_variant", mask), variant))
	}
	return variants
}

// ExpandWithReplace generates partial-replacement variants for every
// existing normalization string in current that contains target: each
// non-empty subset of target's occurrences is substituted with
// replacement, leaving the rest untouched. When decode is set, each
// variant is additionally run through ExpandWithDecode, and if
// replacement itself has an encodable '/' or '.' byte, the same
// partial-substitution sweep is repeated using replacement's encoded
// form (spec.md §4.3).
func ExpandWithReplace(current []rewrite.Transformation, target, replacement []byte, decode bool) []rewrite.Transformation {
	var out []rewrite.Transformation
	for _, cur := range current {
		normStr, ok := normStrOf(cur)
		if !ok {
			continue
		}
		positions := findNonOverlapping(normStr, target)
		if len(positions) == 0 {
			continue
		}

		out = append(out, partialReplaceVariants(cur.Name, normStr, target, replacement, positions, decode)...)

		if decode && len(encodablePositions(replacement)) > 0 {
			encoded := encodeAll(replacement)
			out = append(out, partialReplaceVariants(cur.Name+"_repl_encoded", normStr, target, encoded, positions, false)...)
		}
	}
	return out
}

func partialReplaceVariants(name string, normStr, target, replacement []byte, positions []int, decode bool) []rewrite.Transformation {
	var out []rewrite.Transformation
	for mask := 1; mask < 1<<len(positions); mask++ {
		variant := buildPartialReplace(normStr, target, replacement, positions, mask)
		t := wrapNormalization(withSuffix(name, "partial_replace", mask), variant)
		out = append(out, t)
		if decode {
			out = append(out, ExpandWithDecode(t)...)
		}
	}
	return out
}

// AddPercentOfPercentVariants implements the (prev_norm=false,
// prev_decode=true) row: every effective normalization string that
// contains a literal '%' gets one additional variant with every '%'
// escaped to "%25", modeling a server that decodes but whose
// normalization target was itself already percent-escaped upstream.
func AddPercentOfPercentVariants(effective []rewrite.Transformation) []rewrite.Transformation {
	out := make([]rewrite.Transformation, len(effective))
	copy(out, effective)
	for _, t := range effective {
		normStr, ok := normStrOf(t)
		if !ok || !bytes.ContainsRune(normStr, '%') {
			continue
		}
		escaped := bytes.ReplaceAll(normStr, []byte("%"), []byte("%25"))
		out = append(out, wrapNormalization(t.Name+"_pct_of_pct", escaped))
	}
	return out
}

// PruneSubsumed implements the (prev_norm=true) subsumption rule: any
// effective normalization string equal to, or containing, one of the
// prior server's normalization strings is dropped -- the prior hop
// already collapses that text, so re-offering it here can't produce a
// new candidate.
func PruneSubsumed(effective []rewrite.Transformation, priorNormStrs [][]byte) []rewrite.Transformation {
	var out []rewrite.Transformation
	for _, t := range effective {
		normStr, ok := normStrOf(t)
		if !ok {
			out = append(out, t)
			continue
		}
		subsumed := false
		for _, prior := range priorNormStrs {
			if bytes.Equal(normStr, prior) || bytes.Contains(normStr, prior) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			out = append(out, t)
		}
	}
	return out
}

// ExpandForChainStep applies spec.md §4.7's expansion table for one
// chain step given the previous server's (normalize, decode) pair.
func ExpandForChainStep(prevNormalize, prevDecode bool, effective []rewrite.Transformation, priorNormStrs [][]byte) []rewrite.Transformation {
	switch {
	case !prevNormalize && !prevDecode:
		return effective
	case !prevNormalize && prevDecode:
		return AddPercentOfPercentVariants(effective)
	case prevNormalize && !prevDecode:
		return PruneSubsumed(effective, priorNormStrs)
	default: // prevNormalize && prevDecode
		return PruneSubsumed(AddPercentOfPercentVariants(effective), priorNormStrs)
	}
}

func normStrOf(t rewrite.Transformation) ([]byte, bool) {
	n, ok := t.Rewrite.(rewrite.Normalization)
	if !ok {
		return nil, false
	}
	return n.NormStr, true
}

func wrapNormalization(name string, normStr []byte) rewrite.Transformation {
	contains, _ := condition.New(condition.Contains, normStr, false)
	return rewrite.Transformation{
		Name:    name,
		Rewrite: rewrite.Normalization{NormStr: normStr},
		Guards:  []condition.Condition{contains},
	}
}

func withSuffix(name, label string, mask int) string {
	return name + "_" + label + "_" + itoa(mask)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// encodablePositions returns the byte indices of '/' and '.' in s.
func encodablePositions(s []byte) []int {
	var positions []int
	for i, b := range s {
		if b == '/' || b == '.' {
			positions = append(positions, i)
		}
	}
	return positions
}

// encodeAll percent-encodes every '/' and '.' byte in s.
func encodeAll(s []byte) []byte {
	out := make([]byte, 0, len(s)*3)
	for _, b := range s {
		if b == '/' || b == '.' {
			out = append(out, encoding.Encode(b)...)
		} else {
			out = append(out, b)
		}
	}
	return out
}

// findNonOverlapping returns the start indices of every non-overlapping
// occurrence of target in s, scanning left to right.
func findNonOverlapping(s, target []byte) []int {
	if len(target) == 0 {
		return nil
	}
	var positions []int
	for i := 0; i+len(target) <= len(s); {
		if bytes.Equal(s[i:i+len(target)], target) {
			positions = append(positions, i)
			i += len(target)
		} else {
			i++
		}
	}
	return positions
}

// buildPartialReplace substitutes target with replacement only at the
// occurrences selected by mask (bit i <-> positions[i]), leaving every
// other occurrence untouched.
func buildPartialReplace(s, target, replacement []byte, positions []int, mask int) []byte {
	selected := make(map[int]bool, len(positions))
	for bit, pos := range positions {
		if mask&(1<<bit) != 0 {
			selected[pos] = true
		}
	}
	var out []byte
	i := 0
	for i < len(s) {
		if selected[i] {
			out = append(out, replacement...)
			i += len(target)
			continue
		}
		if contains(positions, i) {
			out = append(out, target...)
			i += len(target)
			continue
		}
		out = append(out, s[i])
		i++
	}
	return out
}

func contains(positions []int, i int) bool {
	for _, p := range positions {
		if p == i {
			return true
		}
	}
	return false
}
