// Package rewrite implements the C2 transformation model: typed
// string rewrites with two application surfaces -- a single-step
// surface the chain compiler folds under an if-guard, and a fixpoint
// surface the validator uses to saturate every match the way a real
// server's rewrite loop would.
package rewrite

import (
	"bytes"
	"fmt"

	"github.com/koreacsl/pathfault-go/pathfault/condition"
	"github.com/koreacsl/pathfault-go/pathfault/smt"
)

// fixpointUnrollBound bounds how many times a fixpoint rewrite's
// internal replace/normalize loop is unrolled at formula-construction
// time. It stands in for "enough occurrences that a real URL will
// never exceed it" -- the same bounded-unroll idea smt.LastIndexOf
// uses, since z3's string theory has no native loop construct.
const fixpointUnrollBound = 8

// Type lowers one rewrite kind into both application surfaces. The
// returned Bool is the rewrite's own implicit guard (e.g. Replace
// implicitly requires its target to be present); it is combined with
// a Transformation's explicit Guards by ApplySingle/ApplyFixpoint
// below.
type Type interface {
	ApplySingle(s smt.Expr) (smt.Expr, smt.Bool)
	ApplyFixpoint(s smt.Expr) (smt.Expr, smt.Bool)
	// ApplyConcreteSingle/ApplyConcreteFixpoint are the payload
	// validator's (C8) concrete counterparts to ApplySingle/
	// ApplyFixpoint: same rewrite, same guard semantics, evaluated
	// directly against bytes instead of lowered into a formula. They
	// must agree with the symbolic surfaces on every input, or a SAT
	// candidate's concrete trace could disagree with the model that
	// produced it (spec.md §7's ValidatorMismatch).
	ApplyConcreteSingle(s []byte) (result []byte, guard bool)
	ApplyConcreteFixpoint(s []byte) (result []byte, guard bool)
	fmt.Stringer
}

// Transformation wraps a Type with a name and the explicit guard
// conditions a synthesizer or operator attaches to it. Guards are
// evaluated against the transformation's input, never its output.
type Transformation struct {
	Name    string
	Rewrite Type
	Guards  []condition.Condition
}

// ApplySingle is the chain-compiler surface: applies Rewrite once,
// conjuncting its implicit guard with every explicit Guards condition,
// all evaluated on s.
func (t Transformation) ApplySingle(s smt.Expr) (smt.Expr, smt.Bool) {
	result, implicit := t.Rewrite.ApplySingle(s)
	return result, t.fullGuard(s, implicit)
}

// ApplyFixpoint is the validator surface: applies Rewrite to
// saturation.
func (t Transformation) ApplyFixpoint(s smt.Expr) (smt.Expr, smt.Bool) {
	result, implicit := t.Rewrite.ApplyFixpoint(s)
	return result, t.fullGuard(s, implicit)
}

// ApplyConcreteSingle is ApplySingle's concrete counterpart.
func (t Transformation) ApplyConcreteSingle(s []byte) ([]byte, bool) {
	result, implicit := t.Rewrite.ApplyConcreteSingle(s)
	return result, t.fullGuardConcrete(s, implicit)
}

// ApplyConcreteFixpoint is ApplyFixpoint's concrete counterpart -- the
// surface the payload validator (C8) re-simulates a candidate with.
func (t Transformation) ApplyConcreteFixpoint(s []byte) ([]byte, bool) {
	result, implicit := t.Rewrite.ApplyConcreteFixpoint(s)
	return result, t.fullGuardConcrete(s, implicit)
}

func (t Transformation) fullGuardConcrete(s []byte, implicit bool) bool {
	if !implicit {
		return false
	}
	for _, g := range t.Guards {
		if !g.EvalConcrete(s) {
			return false
		}
	}
	return true
}

func (t Transformation) fullGuard(s smt.Expr, implicit smt.Bool) smt.Bool {
	guards := make([]smt.Bool, 0, len(t.Guards)+1)
	guards = append(guards, implicit)
	for _, g := range t.Guards {
		guards = append(guards, g.Apply(s))
	}
	return smt.And(guards...)
}

func (t Transformation) String() string {
	return fmt.Sprintf("%s=%s", t.Name, t.Rewrite)
}

// --- Replace ---

// Replace replaces Target with Replacement: single-step replaces the
// first match; fixpoint replaces every match via a sentinel
// intermediate so a Replacement that itself contains Target can't be
// re-matched in the same pass.
type Replace struct {
	Target      []byte
	Replacement []byte
}

func (r Replace) ApplySingle(s smt.Expr) (smt.Expr, smt.Bool) {
	target := smt.StringVal(r.Target)
	replacement := smt.StringVal(r.Replacement)
	result := smt.Replace(s, target, replacement)
	return result, smt.Contains(s, target)
}

func (r Replace) ApplyFixpoint(s smt.Expr) (smt.Expr, smt.Bool) {
	target := smt.StringVal(r.Target)
	replacement := smt.StringVal(r.Replacement)
	sentinel := smt.StringValStr(sentinelFor(r.Target))

	cur := s
	for i := 0; i < fixpointUnrollBound; i++ {
		cur = smt.Replace(cur, target, sentinel)
	}
	for i := 0; i < fixpointUnrollBound; i++ {
		cur = smt.Replace(cur, sentinel, replacement)
	}
	return cur, smt.Contains(s, target)
}

func (r Replace) String() string {
	return fmt.Sprintf("replace(%q -> %q)", r.Target, r.Replacement)
}

// ApplyConcreteSingle replaces the first match of Target only.
func (r Replace) ApplyConcreteSingle(s []byte) ([]byte, bool) {
	idx := bytes.Index(s, r.Target)
	if idx < 0 {
		return s, false
	}
	out := make([]byte, 0, len(s)-len(r.Target)+len(r.Replacement))
	out = append(out, s[:idx]...)
	out = append(out, r.Replacement...)
	out = append(out, s[idx+len(r.Target):]...)
	return out, true
}

// ApplyConcreteFixpoint replaces every non-overlapping match of
// Target, advancing past each match's original span so inserted
// Replacement text can never be re-matched -- the concrete analogue
// of the sentinel trick ApplyFixpoint uses symbolically.
func (r Replace) ApplyConcreteFixpoint(s []byte) ([]byte, bool) {
	guard := bytes.Contains(s, r.Target)
	if len(r.Target) == 0 {
		return s, guard
	}
	var out []byte
	cur := s
	for {
		idx := bytes.Index(cur, r.Target)
		if idx < 0 {
			out = append(out, cur...)
			break
		}
		out = append(out, cur[:idx]...)
		out = append(out, r.Replacement...)
		cur = cur[idx+len(r.Target):]
	}
	return out, guard
}

// sentinelFor derives a sentinel unlikely to occur in any real URL and
// distinct per target so two different Replace rewrites chained
// together can't collide mid-saturation.
func sentinelFor(target []byte) string {
	return fmt.Sprintf("\x00__pathfault_sentinel_%x__\x00", target)
}

// --- SubStringUntil ---

// SubStringUntil keeps the slice of s from Offset up to the first
// occurrence of Delimiter (exclusive). Single-step and fixpoint
// coincide: the rewrite is already a one-shot cut, not a repeated
// match.
type SubStringUntil struct {
	Offset    int
	Delimiter []byte
}

func (u SubStringUntil) ApplySingle(s smt.Expr) (smt.Expr, smt.Bool) {
	delim := smt.StringVal(u.Delimiter)
	offset := smt.IntLit(u.Offset)
	delimIdx := smt.IndexOf(s, delim, offset)
	length := smt.IntSub(delimIdx, offset)
	return smt.SubString(s, offset, length), smt.Contains(s, delim)
}

func (u SubStringUntil) ApplyFixpoint(s smt.Expr) (smt.Expr, smt.Bool) {
	return u.ApplySingle(s)
}

func (u SubStringUntil) String() string {
	return fmt.Sprintf("substring_until(%d, %q)", u.Offset, u.Delimiter)
}

func (u SubStringUntil) ApplyConcreteSingle(s []byte) ([]byte, bool) {
	guard := bytes.Contains(s, u.Delimiter)
	// str.substr yields "" for an out-of-range offset or a negative
	// length (delimiter absent at or after Offset).
	if u.Offset < 0 || u.Offset > len(s) {
		return []byte{}, guard
	}
	idx := indexOfFrom(s, u.Delimiter, u.Offset)
	if idx < 0 {
		return []byte{}, guard
	}
	return append([]byte(nil), s[u.Offset:idx]...), guard
}

func (u SubStringUntil) ApplyConcreteFixpoint(s []byte) ([]byte, bool) {
	return u.ApplyConcreteSingle(s)
}

// --- SubStringFromOffset ---

// SubStringFromOffset keeps the suffix of s starting at Offset.
type SubStringFromOffset struct {
	Offset int
}

func (o SubStringFromOffset) ApplySingle(s smt.Expr) (smt.Expr, smt.Bool) {
	offset := smt.IntLit(o.Offset)
	length := smt.IntSub(smt.Length(s), offset)
	return smt.SubString(s, offset, length), smt.BoolLit(true)
}

func (o SubStringFromOffset) ApplyFixpoint(s smt.Expr) (smt.Expr, smt.Bool) {
	return o.ApplySingle(s)
}

func (o SubStringFromOffset) String() string {
	return fmt.Sprintf("substring_from_offset(%d)", o.Offset)
}

func (o SubStringFromOffset) ApplyConcreteSingle(s []byte) ([]byte, bool) {
	if o.Offset < 0 || o.Offset > len(s) {
		return []byte{}, true
	}
	return append([]byte(nil), s[o.Offset:]...), true
}

func (o SubStringFromOffset) ApplyConcreteFixpoint(s []byte) ([]byte, bool) {
	return o.ApplyConcreteSingle(s)
}

// --- AddPrefix / AddSuffix ---

// AddPrefix prepends Str to s unconditionally.
type AddPrefix struct{ Str []byte }

func (p AddPrefix) ApplySingle(s smt.Expr) (smt.Expr, smt.Bool) {
	return smt.Concat(smt.StringVal(p.Str), s), smt.BoolLit(true)
}

func (p AddPrefix) ApplyFixpoint(s smt.Expr) (smt.Expr, smt.Bool) { return p.ApplySingle(s) }
func (p AddPrefix) String() string                                { return fmt.Sprintf("add_prefix(%q)", p.Str) }

func (p AddPrefix) ApplyConcreteSingle(s []byte) ([]byte, bool) {
	out := make([]byte, 0, len(p.Str)+len(s))
	out = append(out, p.Str...)
	out = append(out, s...)
	return out, true
}
func (p AddPrefix) ApplyConcreteFixpoint(s []byte) ([]byte, bool) { return p.ApplyConcreteSingle(s) }

// AddSuffix appends Str to s unconditionally.
type AddSuffix struct{ Str []byte }

func (x AddSuffix) ApplySingle(s smt.Expr) (smt.Expr, smt.Bool) {
	return smt.Concat(s, smt.StringVal(x.Str)), smt.BoolLit(true)
}

func (x AddSuffix) ApplyFixpoint(s smt.Expr) (smt.Expr, smt.Bool) { return x.ApplySingle(s) }
func (x AddSuffix) String() string                                { return fmt.Sprintf("add_suffix(%q)", x.Str) }

func (x AddSuffix) ApplyConcreteSingle(s []byte) ([]byte, bool) {
	out := make([]byte, 0, len(s)+len(x.Str))
	out = append(out, s...)
	out = append(out, x.Str...)
	return out, true
}
func (x AddSuffix) ApplyConcreteFixpoint(s []byte) ([]byte, bool) { return x.ApplyConcreteSingle(s) }

// --- DelimiterSlashSplit ---

// DelimiterSlashSplit removes the segment between Delim and the next
// '/' after it, inclusive of both.
type DelimiterSlashSplit struct{ Delim []byte }

func (d DelimiterSlashSplit) ApplySingle(s smt.Expr) (smt.Expr, smt.Bool) {
	delim := smt.StringVal(d.Delim)
	delimIdx := smt.IndexOf(s, delim, smt.IntLit(0))
	slashIdx := smt.IndexOf(s, smt.StringValStr("/"), delimIdx)

	head := smt.SubString(s, smt.IntLit(0), delimIdx)
	tailStart := smt.IntAdd(slashIdx, smt.IntLit(1))
	tail := smt.SubString(s, tailStart, smt.IntSub(smt.Length(s), tailStart))

	return smt.Concat(head, tail), smt.Contains(s, delim)
}

func (d DelimiterSlashSplit) ApplyFixpoint(s smt.Expr) (smt.Expr, smt.Bool) {
	return d.ApplySingle(s)
}

func (d DelimiterSlashSplit) String() string {
	return fmt.Sprintf("delimiter_slash_split(%q)", d.Delim)
}

// ApplyConcreteSingle mirrors ApplySingle's arithmetic exactly,
// including its -1-not-found -> tailStart=0 fallback, so the concrete
// and symbolic surfaces never disagree on a pathological input.
func (d DelimiterSlashSplit) ApplyConcreteSingle(s []byte) ([]byte, bool) {
	delimIdx := bytes.Index(s, d.Delim)
	if delimIdx < 0 {
		return s, false
	}
	slashIdx := indexOfFrom(s, []byte("/"), delimIdx)
	tailStart := slashIdx + 1
	if tailStart < 0 || tailStart > len(s) {
		tailStart = 0
	}
	head := s[:delimIdx]
	tail := s[tailStart:]
	out := make([]byte, 0, len(head)+len(tail))
	out = append(out, head...)
	out = append(out, tail...)
	return out, true
}

func (d DelimiterSlashSplit) ApplyConcreteFixpoint(s []byte) ([]byte, bool) {
	return d.ApplyConcreteSingle(s)
}

// --- Normalization ---

// normalizationMaxSegments bounds the LastIndexOf unroll used to find
// the '/' preceding NormStr's occurrence, and the ApplyFixpoint
// saturation loop. A path with more segments than this is outside any
// realistic target.
const normalizationMaxSegments = 32

// Normalization locates NormStr, then removes from the '/' preceding
// it through the end of NormStr, merging the two sides. This is the
// canonical "/../"-style collapse; NormStr may be any located string,
// not just "/../" (the normalization expander produces encoded
// variants of it).
type Normalization struct{ NormStr []byte }

func (n Normalization) ApplySingle(s smt.Expr) (smt.Expr, smt.Bool) {
	result := normalizeOnce(s, n.NormStr)
	return result, smt.Contains(s, smt.StringVal(n.NormStr))
}

// ApplyFixpoint repeatedly collapses NormStr until it no longer
// occurs, bounded by normalizationMaxSegments -- this is what lets
// "/x/../y/../z" collapse all the way to "/z" under repeated "/../"
// removal.
func (n Normalization) ApplyFixpoint(s smt.Expr) (smt.Expr, smt.Bool) {
	norm := smt.StringVal(n.NormStr)
	cur := s
	for i := 0; i < normalizationMaxSegments; i++ {
		once := normalizeOnce(cur, n.NormStr)
		cur = smt.Ite(smt.Contains(cur, norm), once, cur)
	}
	return cur, smt.BoolLit(true)
}

func (n Normalization) String() string {
	return fmt.Sprintf("normalization(%q)", n.NormStr)
}

// ApplyConcreteSingle is normalizeOnce's concrete counterpart.
func (n Normalization) ApplyConcreteSingle(s []byte) ([]byte, bool) {
	if !bytes.Contains(s, n.NormStr) {
		return s, false
	}
	return normalizeOnceConcrete(s, n.NormStr), true
}

// ApplyConcreteFixpoint repeatedly collapses NormStr until it no
// longer occurs, the same bound ApplyFixpoint's unroll uses.
func (n Normalization) ApplyConcreteFixpoint(s []byte) ([]byte, bool) {
	cur := s
	for i := 0; i < normalizationMaxSegments; i++ {
		if !bytes.Contains(cur, n.NormStr) {
			break
		}
		cur = normalizeOnceConcrete(cur, n.NormStr)
	}
	return cur, true
}

// indexOfFrom finds sub in s starting the search at offset start,
// returning -1 if start is out of range or sub doesn't occur --
// the concrete analogue of smt.IndexOf(s, sub, start).
func indexOfFrom(s, sub []byte, start int) int {
	if start < 0 || start > len(s) {
		return -1
	}
	idx := bytes.Index(s[start:], sub)
	if idx < 0 {
		return -1
	}
	return idx + start
}

// normalizeOnceConcrete implements spec.md §4.2's formula directly
// against concrete bytes, including its left-half-empty fallback when
// no preceding '/' exists.
func normalizeOnceConcrete(u, normStr []byte) []byte {
	i := indexOfFrom(u, normStr, 0)
	if i < 0 {
		return u
	}
	leftOfI := u[:i]
	j := bytes.LastIndexByte(leftOfI, '/')
	left := u[:j+1]
	tailStart := i + len(normStr)
	if tailStart > len(u) {
		tailStart = len(u)
	}
	right := u[tailStart:]
	out := make([]byte, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

// normalizeOnce implements spec.md §4.2's precise normalization
// formula:
//
//	i := index_of(u, norm_str)
//	j := last_index_of(substring(u, 0, i), "/")
//	result := substring(u, 0, j+1) ++ substring(u, i+|norm_str|, end)
func normalizeOnce(u smt.Expr, normStr []byte) smt.Expr {
	norm := smt.StringVal(normStr)
	i := smt.IndexOf(u, norm, smt.IntLit(0))
	leftOfI := smt.SubString(u, smt.IntLit(0), i)
	j := smt.LastIndexOf(leftOfI, smt.StringValStr("/"), normalizationMaxSegments)

	left := smt.SubString(u, smt.IntLit(0), smt.IntAdd(j, smt.IntLit(1)))
	tailStart := smt.IntAdd(i, smt.IntLit(len(normStr)))
	right := smt.SubString(u, tailStart, smt.IntSub(smt.Length(u), tailStart))

	return smt.Concat(left, right)
}
