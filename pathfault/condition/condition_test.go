package condition

import (
	"strings"
	"testing"

	"github.com/koreacsl/pathfault-go/pathfault/smt"
)

func TestNewRejectsEmptyOperandWhereRequired(t *testing.T) {
	cases := []struct {
		kind    Kind
		wantErr bool
	}{
		{Equal, false},
		{Contains, false},
		{Prefix, true},
		{Suffix, true},
		{HasSlashAfter, true},
	}
	for _, tc := range cases {
		_, err := New(tc.kind, nil, false)
		if (err != nil) != tc.wantErr {
			t.Errorf("New(%s, nil): err = %v, wantErr = %v", tc.kind, err, tc.wantErr)
		}
	}
}

func TestNegatePreservesOperand(t *testing.T) {
	c, err := New(Prefix, []byte("/admin"), false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n := c.Negate()
	if !n.Negated {
		t.Fatal("Negate() did not flip Negated")
	}
	if string(n.Operand) != "/admin" {
		t.Fatalf("Negate() changed operand: %q", n.Operand)
	}
	if c.Negated {
		t.Fatal("Negate() mutated the receiver")
	}
}

func TestApplyProducesExpectedFormulaShape(t *testing.T) {
	s := smt.Var("U0")

	eq, _ := New(Equal, []byte("/x"), false)
	if got := formula(eq.Apply(s)); got != `(= U0 "/x")` {
		t.Errorf("Equal.Apply = %q", got)
	}

	prefix, _ := New(Prefix, []byte("/a"), false)
	want := `(str.prefixof "/a" U0)`
	if got := formula(prefix.Apply(s)); got != want {
		t.Errorf("Prefix.Apply = %q, want %q", got, want)
	}

	suffix, _ := New(Suffix, []byte("/b"), false)
	want = `(str.suffixof "/b" U0)`
	if got := formula(suffix.Apply(s)); got != want {
		t.Errorf("Suffix.Apply = %q, want %q", got, want)
	}

	contains, _ := New(Contains, []byte(";"), false)
	want = `(str.contains U0 ";")`
	if got := formula(contains.Apply(s)); got != want {
		t.Errorf("Contains.Apply = %q, want %q", got, want)
	}
}

func TestApplyNegatedWrapsWithNot(t *testing.T) {
	s := smt.Var("U0")
	c, _ := New(Contains, []byte("%"), true)
	got := formula(c.Apply(s))
	if !strings.HasPrefix(got, "(not ") {
		t.Errorf("negated Apply() = %q, want wrapped in (not ...)", got)
	}
}

func TestHasSlashAfterRequiresOperandPresence(t *testing.T) {
	s := smt.Var("U0")
	c, _ := New(HasSlashAfter, []byte(";"), false)
	got := formula(c.Apply(s))
	// Must require Contains(s, ";") as well as the slash-index check,
	// so an absent operand can't vacuously satisfy the slash check.
	if !strings.Contains(got, `(str.contains U0 ";")`) {
		t.Errorf("HasSlashAfter.Apply() = %q, missing containment guard", got)
	}
	if !strings.Contains(got, "str.indexof") {
		t.Errorf("HasSlashAfter.Apply() = %q, missing indexof search", got)
	}
}

func formula(b smt.Bool) string {
	return smt.RenderBool(b)
}

func TestEvalConcreteMatchesKind(t *testing.T) {
	cases := []struct {
		kind    Kind
		operand string
		negated bool
		input   string
		want    bool
	}{
		{Equal, "/a", false, "/a", true},
		{Equal, "/a", false, "/b", false},
		{Prefix, "/a", false, "/a/b", true},
		{Prefix, "/a", false, "/b/a", false},
		{Suffix, "/b", false, "/a/b", true},
		{Contains, ";", false, "/a;/b", true},
		{Contains, ";", true, "/a;/b", false},
		{HasSlashAfter, ";", false, "/a;/b", true},
		{HasSlashAfter, ";", false, "/a;b", false},
		{HasSlashAfter, ";", false, "/a", false},
	}
	for _, tc := range cases {
		c, err := New(tc.kind, []byte(tc.operand), tc.negated)
		if err != nil {
			t.Fatalf("New(%v, %q) error: %v", tc.kind, tc.operand, err)
		}
		if got := c.EvalConcrete([]byte(tc.input)); got != tc.want {
			t.Errorf("%s.EvalConcrete(%q) = %v, want %v", c, tc.input, got, tc.want)
		}
	}
}
