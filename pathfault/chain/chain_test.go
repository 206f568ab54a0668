package chain

import (
	"strings"
	"testing"

	"github.com/koreacsl/pathfault-go/pathfault/rewrite"
	"github.com/koreacsl/pathfault-go/pathfault/server"
	"github.com/koreacsl/pathfault-go/pathfault/smt"
)

func twoHopServers(t *testing.T) []*server.Server {
	t.Helper()
	s1 := server.New("s1")
	s1.Transformations = []rewrite.Transformation{
		{Name: "semi_to_slash", Rewrite: rewrite.Replace{Target: []byte(";"), Replacement: []byte("/")}},
	}
	s2 := server.New("s2")
	s2.SetNormalize(true)
	return []*server.Server{s1, s2}
}

func endsWith(suffix string) ExploitConstraint {
	return func(_, uN smt.Expr) smt.Bool {
		return smt.SuffixOf(smt.StringValStr(suffix), uN)
	}
}

func TestCompileRejectsEmptyServerList(t *testing.T) {
	_, err := Compile(nil, ChainChoice{}, endsWith("/b"))
	if err == nil {
		t.Fatal("expected error for empty server list")
	}
}

func TestCompileRejectsUnknownTransformation(t *testing.T) {
	servers := twoHopServers(t)
	choice := ChainChoice{
		Selected:       [][]rewrite.Transformation{{{Name: "not_a_real_one"}}, nil},
		NormalizeFlags: []bool{false, false},
	}
	_, err := Compile(servers, choice, endsWith("/b"))
	if err == nil {
		t.Fatal("expected error for a selected transformation outside the server's universe")
	}
}

func TestCompileRejectsMultipleNormalizeFlags(t *testing.T) {
	servers := twoHopServers(t)
	choice := ChainChoice{
		Selected:       [][]rewrite.Transformation{nil, nil},
		NormalizeFlags: []bool{true, true},
	}
	_, err := Compile(servers, choice, endsWith("/b"))
	if err == nil {
		t.Fatal("expected error for more than one normalize flag set")
	}
}

func TestCompileTwoHopSimpleRedirect(t *testing.T) {
	// spec.md §8 scenario 1: S1 replaces ";" with "/" (optional,
	// guarded), S2 normalizes. Exploit constraint: final URL ends with
	// "/b". This mirrors "/a;/../b" surviving the chain unchanged.
	servers := twoHopServers(t)
	choice := ChainChoice{
		Selected:       [][]rewrite.Transformation{servers[0].Transformations, nil},
		NormalizeFlags: []bool{false, true},
	}

	result, err := Compile(servers, choice, endsWith("/b"))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(result.Hops) != 3 {
		t.Fatalf("expected 3 hop variables (U0, U1, U2), got %d", len(result.Hops))
	}
	if smt.RenderExpr(result.U0) != "U0" {
		t.Errorf("U0 = %s", smt.RenderExpr(result.U0))
	}
	if smt.RenderExpr(result.UN) != "U2" {
		t.Errorf("UN = %s, want U2", smt.RenderExpr(result.UN))
	}

	script := result.Context.ToSMTLIB2()
	for _, want := range []string{
		"(declare-const U0 String)",
		"(declare-const U1 String)",
		"(declare-const U2 String)",
		"(assert (= U1",
		"(assert (= U2",
		`(str.suffixof "/b" U2)`,
	} {
		if !strings.Contains(script, want) {
			t.Errorf("compiled script missing %q:\n%s", want, script)
		}
	}
}

func TestCompileEssentialGuardIsHardAsserted(t *testing.T) {
	s1 := server.New("s1")
	s1.EssentialTransformations = []rewrite.Transformation{
		{Name: "must_strip_semi", Rewrite: rewrite.Replace{Target: []byte(";"), Replacement: []byte("")}},
	}
	choice := ChainChoice{
		Selected:       [][]rewrite.Transformation{nil},
		NormalizeFlags: []bool{false},
	}
	result, err := Compile([]*server.Server{s1}, choice, endsWith("/b"))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	script := result.Context.ToSMTLIB2()
	if !strings.Contains(script, `(assert (str.contains U0 ";"))`) {
		t.Errorf("expected the essential transformation's guard to be hard-asserted:\n%s", script)
	}
}
