package validate

import (
	"bytes"
	"testing"

	"github.com/koreacsl/pathfault-go/pathfault/chain"
	"github.com/koreacsl/pathfault-go/pathfault/condition"
	"github.com/koreacsl/pathfault-go/pathfault/rewrite"
	"github.com/koreacsl/pathfault-go/pathfault/server"
)

func endsWith(suffix string) ExploitConstraint {
	return func(_, uN []byte) bool {
		return bytes.HasSuffix(uN, []byte(suffix))
	}
}

// TestValidateTwoHopSimpleRedirect is spec.md §8 scenario 1: S1
// replaces ';' with '/', S2 normalizes "/../"; input "/a;/../b" should
// concretely validate to "/b".
func TestValidateTwoHopSimpleRedirect(t *testing.T) {
	s1 := server.New("s1")
	s1.Transformations = []rewrite.Transformation{
		{Name: "semi_to_slash", Rewrite: rewrite.Replace{Target: []byte(";"), Replacement: []byte("/")}},
	}
	s2 := server.New("s2")
	s2.SetNormalize(true)
	servers := []*server.Server{s1, s2}

	choice := chain.ChainChoice{
		Selected:       [][]rewrite.Transformation{s1.Transformations, nil},
		NormalizeFlags: []bool{false, true},
	}

	result := Validate(servers, choice, []byte("/a;/../b"), endsWith("/b"))

	// spec.md §4.2's normalization formula collapses from the '/'
	// immediately preceding the located norm_str, not from a fully
	// re-parsed path -- so the slash the Replace rewrite introduces
	// right before "/../" leaves "/a/b" rather than "/b". Either way
	// it still satisfies "ends with /b", which is the chain's actual
	// exploit constraint.
	if !result.Pass {
		t.Fatalf("Validate(%q) Pass = false, want true; final=%q", "/a;/../b", result.FinalURL)
	}
	if got, want := string(result.FinalURL), "/a/b"; got != want {
		t.Errorf("FinalURL = %q, want %q", got, want)
	}
	if len(result.Hops) != 2 {
		t.Fatalf("len(Hops) = %d, want 2", len(result.Hops))
	}
	if got, want := string(result.Hops[0].Outbound), "/a//../b"; got != want {
		t.Errorf("hop0 outbound = %q, want %q", got, want)
	}
	if got, want := string(result.Hops[1].Outbound), "/a/b"; got != want {
		t.Errorf("hop1 outbound = %q, want %q", got, want)
	}
}

// TestValidatePercentDecodeAsymmetry is spec.md §8 scenario 2: S1
// decodes, S2 truncates at '!'; input "/%21admin" must not end up
// containing "admin".
func TestValidatePercentDecodeAsymmetry(t *testing.T) {
	s1 := server.New("s1")
	s1.SetDecode(true)

	s2 := server.New("s2")
	s2.Transformations = []rewrite.Transformation{
		{Name: "truncate_bang", Rewrite: rewrite.SubStringUntil{Offset: 0, Delimiter: []byte("!")}},
	}
	servers := []*server.Server{s1, s2}

	choice := chain.ChainChoice{
		Selected:       [][]rewrite.Transformation{nil, s2.Transformations},
		NormalizeFlags: []bool{false, false},
	}

	notAdmin := func(_, uN []byte) bool { return !bytes.Contains(uN, []byte("admin")) }
	result := Validate(servers, choice, []byte("/%21admin"), notAdmin)

	if !result.Pass {
		t.Fatalf("Validate(%q) Pass = false, want true; final=%q", "/%21admin", result.FinalURL)
	}
	if got, want := string(result.Hops[0].Outbound), "/!admin"; got != want {
		t.Errorf("hop0 outbound (decoded) = %q, want %q", got, want)
	}
	if got, want := string(result.FinalURL), "/"; got != want {
		t.Errorf("FinalURL = %q, want %q", got, want)
	}
}

// TestValidateEssentialGuardAppliesUnconditionally covers the
// essential-transformation concrete surface: an essential rewrite is
// replayed without evaluating its guard, and a Replace whose target is
// absent from the concrete input is a no-op rather than a panic,
// matching spec.md §7's GuardConflict being a compiler (not validator)
// concern.
func TestValidateEssentialGuardAppliesUnconditionally(t *testing.T) {
	semi, err := condition.New(condition.Contains, []byte(";"), false)
	if err != nil {
		t.Fatalf("condition.New: %v", err)
	}
	s1 := server.New("s1")
	s1.EssentialTransformations = []rewrite.Transformation{
		{Name: "strip_semi", Rewrite: rewrite.Replace{Target: []byte(";"), Replacement: []byte("")}, Guards: []condition.Condition{semi}},
	}
	servers := []*server.Server{s1}
	choice := chain.ChainChoice{
		Selected:       [][]rewrite.Transformation{nil},
		NormalizeFlags: []bool{false},
	}

	result := Validate(servers, choice, []byte("/no-semicolon-here"), func(_, _ []byte) bool { return true })
	if got, want := string(result.FinalURL), "/no-semicolon-here"; got != want {
		t.Errorf("FinalURL = %q, want %q (essential no-op when guard false)", got, want)
	}
}
