// Package smt builds string-theory SMT-LIB2 formulas for the chain
// compiler (C5) and drives an external z3 process to solve them. No
// Go binding for z3's sequence/string theory exists among the retrieved
// examples (or, at time of writing, in wide ecosystem use outside a
// CGO binding pinned to a pre-string-theory z3 release), so the solver
// boundary is a subprocess fed SMT-LIB2 text, one process per query —
// see DESIGN.md for the reasoning and why that's a closer fit for
// spec.md §5/§9's "explicit solver context, no process-wide state" rule
// than a long-lived CGO handle would be.
package smt

import "fmt"

// Expr is a symbolic string-sorted SMT-LIB2 expression.
type Expr interface {
	smtExpr() string
}

// IntExpr is a symbolic int-sorted SMT-LIB2 expression.
type IntExpr interface {
	smtInt() string
}

// Bool is a symbolic boolean SMT-LIB2 formula.
type Bool interface {
	smtBool() string
}

type raw string

func (r raw) smtExpr() string { return string(r) }
func (r raw) smtInt() string  { return string(r) }
func (r raw) smtBool() string { return string(r) }

// Var returns a reference to a previously declared string constant.
func Var(name string) Expr { return raw(name) }

// IntVar returns a reference to a previously declared int constant.
func IntVar(name string) IntExpr { return raw(name) }

// IntLit is a literal integer.
func IntLit(v int) IntExpr { return raw(fmt.Sprintf("%d", v)) }

// BoolLit is a literal boolean.
func BoolLit(v bool) Bool {
	if v {
		return raw("true")
	}
	return raw("false")
}

// StringVal lifts a raw byte sequence into a string-sorted literal.
// Every byte 0x00-0xFF is preserved exactly via z3's \u{HH} escape
// extension so control/high bytes round-trip without relying on UTF-8
// validity (spec.md §4.1).
func StringVal(raw []byte) Expr {
	return rawExprf("%s", EscapeStringLiteral(raw))
}

// StringValStr is a convenience wrapper for Go string operands that are
// already known to be valid UTF-8 (e.g. operator-supplied delimiters).
func StringValStr(s string) Expr {
	return StringVal([]byte(s))
}

func rawExprf(format string, args ...any) Expr {
	return raw(fmt.Sprintf(format, args...))
}

// Concat concatenates string expressions (str.++).
func Concat(parts ...Expr) Expr {
	if len(parts) == 1 {
		return parts[0]
	}
	s := "(str.++"
	for _, p := range parts {
		s += " " + p.smtExpr()
	}
	return raw(s + ")")
}

// SubString extracts length characters of s starting at offset
// (str.substr).
func SubString(s Expr, offset, length IntExpr) Expr {
	return rawExprf("(str.substr %s %s %s)", s.smtExpr(), offset.smtInt(), length.smtInt())
}

// Length returns the length of s (str.len).
func Length(s Expr) IntExpr {
	return raw(fmt.Sprintf("(str.len %s)", s.smtExpr()))
}

// IndexOf returns the index of the first occurrence of needle in s at
// or after start (str.indexof).
func IndexOf(s, needle Expr, start IntExpr) IntExpr {
	return raw(fmt.Sprintf("(str.indexof %s %s %s)", s.smtExpr(), needle.smtExpr(), start.smtInt()))
}

// LastIndexOf returns the index of the last occurrence of needle in s.
// z3's string theory exposes only a from-the-left str.indexof, so the
// last occurrence is found by chasing str.indexof forward from each hit
// and keeping the final one, unrolled up to bound times -- bound should
// be a safe upper bound on how many times needle can occur in s (the
// Normalization rewrite's normalizeOnce calls this with its maximum
// segment count). Each unrolled layer let-binds the previous hit and the
// next one, so the rendered text grows linearly with bound instead of
// repeating the previous layer.
func LastIndexOf(s, needle Expr, bound int) IntExpr {
	result := IndexOf(s, needle, IntLit(0))
	prev, next := raw("lastidx_prev"), raw("lastidx_next")
	for i := 0; i < bound; i++ {
		step := IteInt(IntEq(next, IntLit(-1)), prev, next)
		nextHit := IndexOf(s, needle, IntAdd(prev, IntLit(1)))
		result = raw(fmt.Sprintf("(let ((%s %s)) (let ((%s %s)) %s))",
			prev, result.smtInt(), next, nextHit.smtInt(), step.smtInt()))
	}
	return result
}

// IntSub computes a - b.
func IntSub(a, b IntExpr) IntExpr {
	return raw(fmt.Sprintf("(- %s %s)", a.smtInt(), b.smtInt()))
}

// IntAdd computes a + b.
func IntAdd(a, b IntExpr) IntExpr {
	return raw(fmt.Sprintf("(+ %s %s)", a.smtInt(), b.smtInt()))
}

// Replace replaces the first occurrence of target with replacement in s
// (str.replace) -- the single-step semantics rewrite.Replace uses for
// chain construction.
func Replace(s, target, replacement Expr) Expr {
	return rawExprf("(str.replace %s %s %s)", s.smtExpr(), target.smtExpr(), replacement.smtExpr())
}

// PrefixOf reports whether prefix is a prefix of s (str.prefixof).
func PrefixOf(prefix, s Expr) Bool {
	return raw(fmt.Sprintf("(str.prefixof %s %s)", prefix.smtExpr(), s.smtExpr()))
}

// SuffixOf reports whether suffix is a suffix of s (str.suffixof).
func SuffixOf(suffix, s Expr) Bool {
	return raw(fmt.Sprintf("(str.suffixof %s %s)", suffix.smtExpr(), s.smtExpr()))
}

// Contains reports whether s contains needle (str.contains).
func Contains(s, needle Expr) Bool {
	return raw(fmt.Sprintf("(str.contains %s %s)", s.smtExpr(), needle.smtExpr()))
}

// Eq asserts string equality.
func Eq(a, b Expr) Bool {
	return raw(fmt.Sprintf("(= %s %s)", a.smtExpr(), b.smtExpr()))
}

// IntEq asserts integer equality.
func IntEq(a, b IntExpr) Bool {
	return raw(fmt.Sprintf("(= %s %s)", a.smtInt(), b.smtInt()))
}

// IntNeq asserts integer inequality.
func IntNeq(a, b IntExpr) Bool {
	return Not(IntEq(a, b))
}

// And conjuncts formulas; an empty list is vacuously true.
func And(bs ...Bool) Bool {
	if len(bs) == 0 {
		return BoolLit(true)
	}
	if len(bs) == 1 {
		return bs[0]
	}
	s := "(and"
	for _, b := range bs {
		s += " " + b.smtBool()
	}
	return raw(s + ")")
}

// Or disjuncts formulas.
func Or(bs ...Bool) Bool {
	if len(bs) == 0 {
		return BoolLit(false)
	}
	if len(bs) == 1 {
		return bs[0]
	}
	s := "(or"
	for _, b := range bs {
		s += " " + b.smtBool()
	}
	return raw(s + ")")
}

// Not negates a formula.
func Not(b Bool) Bool {
	return raw(fmt.Sprintf("(not %s)", b.smtBool()))
}

// Ite is a string-sorted if-then-else, the encoding of the if-guard
// fold spec.md §4.3/§9 requires for optional transformations: the
// solver picks whether the guard holds rather than the guard being
// hard-asserted.
func Ite(cond Bool, then, els Expr) Expr {
	return raw(fmt.Sprintf("(ite %s %s %s)", cond.smtBool(), then.smtExpr(), els.smtExpr()))
}

// IteInt is an int-sorted if-then-else.
func IteInt(cond Bool, then, els IntExpr) IntExpr {
	return raw(fmt.Sprintf("(ite %s %s %s)", cond.smtBool(), then.smtInt(), els.smtInt()))
}

// RenderBool returns b's SMT-LIB2 text. Exported so other packages
// (mainly tests) can assert on formula shape without reaching into
// this package's unexported interface methods.
func RenderBool(b Bool) string { return b.smtBool() }

// RenderExpr returns e's SMT-LIB2 text.
func RenderExpr(e Expr) string { return e.smtExpr() }

// RenderInt returns i's SMT-LIB2 text.
func RenderInt(i IntExpr) string { return i.smtInt() }
