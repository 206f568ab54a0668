package enumerate

import (
	"testing"

	"github.com/koreacsl/pathfault-go/pathfault/chain"
	"github.com/koreacsl/pathfault-go/pathfault/rewrite"
	"github.com/koreacsl/pathfault-go/pathfault/server"
)

// TestExpandNormalizationVariantsPassesThroughNonNormalizingChoices
// covers the no-op path: a choice with no active normalize flag must
// come out unchanged, with no NormalizationVariant populated.
func TestExpandNormalizationVariantsPassesThroughNonNormalizingChoices(t *testing.T) {
	s1 := server.New("s1")
	s2 := server.New("s2")
	s2.SetNormalize(true)
	servers := []*server.Server{s1, s2}

	choice := chain.ChainChoice{
		Selected:       [][]rewrite.Transformation{nil, nil},
		NormalizeFlags: []bool{false, false},
	}
	got := ExpandNormalizationVariants(servers, []chain.ChainChoice{choice})
	if len(got) != 1 {
		t.Fatalf("expected the unmodified choice to pass through once, got %d", len(got))
	}
	if got[0].NormalizationVariant != nil {
		t.Errorf("expected nil NormalizationVariant for a non-normalizing choice, got %v", got[0].NormalizationVariant)
	}
}

// TestExpandNormalizationVariantsAppliesDecodeRow is spec.md §8
// scenario 4's shape: the prior hop decodes and doesn't normalize, so
// the (prevNormalize=false, prevDecode=true) row of §4.7's table
// applies -- every normalization string s2 already carries that
// contains '%' (an already percent-encoded alternative such as
// "/%2E%2E/") gets one additional percent-of-percent variant, and C5
// must re-enter once per surviving alternative.
func TestExpandNormalizationVariantsAppliesDecodeRow(t *testing.T) {
	s1 := server.New("s1")
	s1.SetDecode(true)
	s2 := server.New("s2")
	s2.SetNormalize(true)
	s2.Normalizations = append(s2.Normalizations, rewrite.Transformation{
		Name:    "encoded_dotdot",
		Rewrite: rewrite.Normalization{NormStr: []byte("/%2E%2E/")},
	})
	servers := []*server.Server{s1, s2}

	choice := chain.ChainChoice{
		Selected:       [][]rewrite.Transformation{nil, nil},
		NormalizeFlags: []bool{false, true},
	}
	expanded := ExpandNormalizationVariants(servers, []chain.ChainChoice{choice})

	// s2.Normalizations holds the canonical "/../" plus the
	// already-encoded "/%2E%2E/"; only the latter contains '%' and
	// gains a pct-of-pct variant, so 2 + 1 = 3 alternatives total.
	if len(expanded) != 3 {
		t.Fatalf("got %d expanded choices, want 3", len(expanded))
	}
	for i, c := range expanded {
		if c.NormalizationVariant[1] == nil {
			t.Fatalf("expanded[%d]: expected NormalizationVariant[1] to be populated", i)
		}
		if c.NormalizeFlags[1] != true || c.NormalizeFlags[0] {
			t.Fatalf("expanded[%d]: normalize flags changed unexpectedly: %v", i, c.NormalizeFlags)
		}
	}
}

// TestExpandNormalizationVariantsDropsFullySubsumedChoice covers the
// (prevNormalize=true, prevDecode=false) row: when the only candidate
// at the normalizing hop is subsumed by an earlier server's own
// normalization set, the choice contributes no variant and is dropped
// rather than silently falling back to the canonical string.
func TestExpandNormalizationVariantsDropsFullySubsumedChoice(t *testing.T) {
	s1 := server.New("s1")
	s1.SetNormalize(true)
	s2 := server.New("s2")
	s2.SetNormalize(true)
	servers := []*server.Server{s1, s2}

	choice := chain.ChainChoice{
		Selected:       [][]rewrite.Transformation{nil, nil},
		NormalizeFlags: []bool{false, true},
	}
	got := ExpandNormalizationVariants(servers, []chain.ChainChoice{choice})
	if len(got) != 0 {
		t.Fatalf("expected the fully-subsumed choice to be dropped, got %d entries", len(got))
	}
}

// TestExpandNormalizationVariantsWiredFromExhaustive checks the
// runner-facing integration path: Exhaustive()'s single
// normalize-capable choice must come out of ExpandNormalizationVariants
// with a populated NormalizationVariant, not silently defaulting to
// Normalizations[0] the way compiling with a nil variant always did
// before this wiring existed.
func TestExpandNormalizationVariantsWiredFromExhaustive(t *testing.T) {
	s1 := server.New("s1")
	s2 := server.New("s2")
	s2.SetNormalize(true)
	servers := []*server.Server{s1, s2}

	e := New(servers, 0)
	expanded := ExpandNormalizationVariants(servers, e.Exhaustive())

	var sawNormalizing bool
	for _, c := range expanded {
		if c.NormalizeFlags[1] {
			sawNormalizing = true
			if c.NormalizationVariant[1] == nil {
				t.Fatalf("expected a populated NormalizationVariant for the normalizing choice")
			}
		}
	}
	if !sawNormalizing {
		t.Fatalf("expected at least one normalizing choice to survive expansion")
	}
}
