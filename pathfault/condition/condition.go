// Package condition implements the typed predicate model (equality,
// prefix, suffix, contains, "slash-after-delimiter") that guards
// transformations and gates a server's pre/post acceptance.
package condition

import (
	"bytes"
	"fmt"

	"github.com/koreacsl/pathfault-go/pathfault/smt"
)

// Kind identifies which predicate a Condition evaluates.
type Kind int

const (
	Equal Kind = iota
	Prefix
	Suffix
	Contains
	HasSlashAfter
)

func (k Kind) String() string {
	switch k {
	case Equal:
		return "equal"
	case Prefix:
		return "prefix"
	case Suffix:
		return "suffix"
	case Contains:
		return "contains"
	case HasSlashAfter:
		return "has_slash_after"
	default:
		return "unknown"
	}
}

// Condition is a tagged predicate over a symbolic string. Operand is
// kept as raw bytes rather than a Go string so 0x00-0xFF values that
// aren't valid UTF-8 still round-trip byte-for-byte into the solver.
type Condition struct {
	Kind    Kind
	Operand []byte
	Negated bool
}

// New constructs a Condition, enforcing the non-empty-operand
// invariant for every kind except Contains and Equal (spec.md §3: "operand is
// non-empty for Prefix/Suffix/HasSlashAfter").
func New(kind Kind, operand []byte, negated bool) (Condition, error) {
	if len(operand) == 0 && kind != Contains && kind != Equal {
		return Condition{}, fmt.Errorf("condition: %s requires a non-empty operand", kind)
	}
	return Condition{Kind: kind, Operand: append([]byte(nil), operand...), Negated: negated}, nil
}

// Negate returns a copy of c with its negation flipped.
func (c Condition) Negate() Condition {
	c.Negated = !c.Negated
	return c
}

// Apply lowers the condition into a boolean SMT formula over s.
// HasSlashAfter searches for the first '/' starting just after the
// first occurrence of Operand in s; if Operand never occurs, IndexOf
// returns -1 and the search start becomes 0, but the formula still
// requires Contains(s, Operand) to hold so an absent operand correctly
// evaluates false (or true once negated).
func (c Condition) Apply(s smt.Expr) smt.Bool {
	var b smt.Bool
	operand := smt.StringVal(c.Operand)
	switch c.Kind {
	case Equal:
		b = smt.Eq(s, operand)
	case Prefix:
		b = smt.PrefixOf(operand, s)
	case Suffix:
		b = smt.SuffixOf(operand, s)
	case Contains:
		b = smt.Contains(s, operand)
	case HasSlashAfter:
		occursAt := smt.IndexOf(s, operand, smt.IntLit(0))
		searchFrom := smt.IntAdd(occursAt, smt.IntLit(1))
		slashIdx := smt.IndexOf(s, smt.StringValStr("/"), searchFrom)
		b = smt.And(
			smt.Contains(s, operand),
			smt.Not(smt.IntEq(slashIdx, smt.IntLit(-1))),
		)
	default:
		b = smt.BoolLit(false)
	}
	if c.Negated {
		return smt.Not(b)
	}
	return b
}

// EvalConcrete evaluates the same predicate Apply lowers into a
// formula, directly against concrete bytes s. This is the surface the
// payload validator (C8) uses to re-simulate a candidate URL without
// a solver round-trip; it must agree with Apply on every input or a
// SAT candidate would wrongly disagree with its own concrete trace.
func (c Condition) EvalConcrete(s []byte) bool {
	var b bool
	switch c.Kind {
	case Equal:
		b = bytes.Equal(s, c.Operand)
	case Prefix:
		b = bytes.HasPrefix(s, c.Operand)
	case Suffix:
		b = bytes.HasSuffix(s, c.Operand)
	case Contains:
		b = bytes.Contains(s, c.Operand)
	case HasSlashAfter:
		idx := bytes.Index(s, c.Operand)
		if idx < 0 {
			b = false
		} else {
			b = bytes.IndexByte(s[idx+1:], '/') != -1
		}
	default:
		b = false
	}
	if c.Negated {
		return !b
	}
	return b
}

// String gives a human-readable rendering for logging and artifact
// diagnostics, not a serialization format.
func (c Condition) String() string {
	prefix := ""
	if c.Negated {
		prefix = "not "
	}
	return fmt.Sprintf("%s%s(%q)", prefix, c.Kind, c.Operand)
}
