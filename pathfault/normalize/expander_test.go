package normalize

import (
	"testing"

	"github.com/koreacsl/pathfault-go/pathfault/rewrite"
)

func TestExpandWithDecodeCountsSubsets(t *testing.T) {
	base := rewrite.Transformation{Name: "canonical_dotdot", Rewrite: rewrite.Normalization{NormStr: []byte("/../")}}
	variants := ExpandWithDecode(base)
	// "/../"  has 4 encodable positions ('/','.','.','/') -> 2^4-1 = 15 variants.
	if len(variants) != 15 {
		t.Fatalf("got %d variants, want 15", len(variants))
	}
	seen := map[string]bool{}
	for _, v := range variants {
		n, ok := normStrOf(v)
		if !ok {
			t.Fatalf("variant %s is not a Normalization rewrite", v.Name)
		}
		seen[string(n)] = true
	}
	if !seen["%2F%2E%2E%2F"] {
		t.Errorf("expected the fully-encoded variant among results: %v", seen)
	}
	if !seen["%2F../"] {
		t.Errorf("expected a partially-encoded variant among results: %v", seen)
	}
}

func TestExpandWithDecodeNoEncodablePositions(t *testing.T) {
	base := rewrite.Transformation{Name: "x", Rewrite: rewrite.Normalization{NormStr: []byte("abc")}}
	if got := ExpandWithDecode(base); got != nil {
		t.Fatalf("expected nil for no-op base, got %v", got)
	}
}

func TestExpandWithReplacePartialSubstitution(t *testing.T) {
	current := []rewrite.Transformation{
		{Name: "canonical_dotdot", Rewrite: rewrite.Normalization{NormStr: []byte("/../../")}},
	}
	variants := ExpandWithReplace(current, []byte(".."), []byte("x"), false)
	if len(variants) == 0 {
		t.Fatal("expected at least one partial-replace variant")
	}
	foundFull := false
	for _, v := range variants {
		n, _ := normStrOf(v)
		if string(n) == "/x/x/" {
			foundFull = true
		}
	}
	if !foundFull {
		t.Errorf("expected a fully-substituted variant among results")
	}
}

func TestAddPercentOfPercentVariants(t *testing.T) {
	base := []rewrite.Transformation{
		{Name: "n1", Rewrite: rewrite.Normalization{NormStr: []byte("/%2E%2E/")}},
	}
	got := AddPercentOfPercentVariants(base)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2 (original + escaped)", len(got))
	}
	n, _ := normStrOf(got[1])
	if string(n) != "/%252E%252E/" {
		t.Errorf("escaped variant = %q, want /%%252E%%252E/", n)
	}
}

func TestPruneSubsumed(t *testing.T) {
	effective := []rewrite.Transformation{
		{Name: "a", Rewrite: rewrite.Normalization{NormStr: []byte("/../")}},
		{Name: "b", Rewrite: rewrite.Normalization{NormStr: []byte("/foo/../")}},
	}
	prior := [][]byte{[]byte("/../")}
	got := PruneSubsumed(effective, prior)
	if len(got) != 0 {
		t.Fatalf("expected both entries pruned (exact match and containing match), got %d", len(got))
	}
}

func TestExpandForChainStepTable(t *testing.T) {
	base := []rewrite.Transformation{
		{Name: "canonical_dotdot", Rewrite: rewrite.Normalization{NormStr: []byte("/%2E%2E/")}},
	}
	prior := [][]byte{[]byte("/%2E%2E/")}

	if got := ExpandForChainStep(false, false, base, prior); len(got) != 1 {
		t.Errorf("false,false: expected no change, got %d entries", len(got))
	}
	if got := ExpandForChainStep(false, true, base, prior); len(got) != 2 {
		t.Errorf("false,true: expected +1 pct-of-pct variant, got %d entries", len(got))
	}
	if got := ExpandForChainStep(true, false, base, prior); len(got) != 0 {
		t.Errorf("true,false: expected subsumed entry pruned, got %d entries", len(got))
	}
	if got := ExpandForChainStep(true, true, base, prior); len(got) != 1 {
		t.Errorf("true,true: expected the exact-match base pruned but the pct-of-pct variant to survive (it no longer contains the prior string), got %d entries", len(got))
	}
}
