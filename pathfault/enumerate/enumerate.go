// Package enumerate implements the C6 combination enumerator:
// exhaustive and random-without-replacement generation of ChainChoices,
// bounded by a per-server max-transforms budget, with an explored-set
// cache (pathfault/enumerate.Explorer) tracking what's already been
// produced.
package enumerate

import (
	"math/rand"

	"github.com/koreacsl/pathfault-go/pathfault/chain"
	"github.com/koreacsl/pathfault-go/pathfault/rewrite"
	"github.com/koreacsl/pathfault-go/pathfault/server"
)

// DefaultMaxTransforms is spec.md §4.6's default per-server selection
// budget.
const DefaultMaxTransforms = 2

// Enumerator generates ChainChoices over a fixed, ordered server list.
type Enumerator struct {
	Servers       []*server.Server
	MaxTransforms int
	// normCapable holds the index (into Servers) of every server whose
	// IsNormalize flag is set -- the candidates a ChainChoice's single
	// normalize_flag may point at.
	normCapable []int
}

// New returns an Enumerator over servers with the given per-server
// transform budget.
func New(servers []*server.Server, maxTransforms int) *Enumerator {
	var capable []int
	for i, s := range servers {
		if s.IsNormalize {
			capable = append(capable, i)
		}
	}
	return &Enumerator{Servers: servers, MaxTransforms: maxTransforms, normCapable: capable}
}

// Count returns the exhaustive combination count: spec.md §4.6's
// ∏_i (Σ_{k=0..max} C(|T_i|,k)) × (N_norm_capable + 1).
//
// Only each server's optional Transformations are offered for
// selection here, not its EssentialTransformations -- those already
// apply unconditionally via ApplyEssentialTransformations, so offering
// them again for selection would double-apply them. spec.md §3's
// "transformations ∪ essential_transformations" universe is treated as
// describing what a selection may validly reference (chain.Validate
// enforces that looser bound), not as a mandate to offer essential
// entries for selection (see DESIGN.md).
func (e *Enumerator) Count() int {
	total := 1
	for _, s := range e.Servers {
		total *= sumCombinations(len(s.Transformations), e.MaxTransforms)
	}
	return total * (len(e.normCapable) + 1)
}

// Exhaustive generates every ChainChoice in deterministic lexicographic
// order: per server, combinations vary fastest for the last server,
// and for each full selection the normalize choice (none first, then
// each normalize-capable server in order) is the innermost,
// fastest-varying dimension.
func (e *Enumerator) Exhaustive() []chain.ChainChoice {
	perServer := make([][][]rewrite.Transformation, len(e.Servers))
	for i, s := range e.Servers {
		perServer[i] = combinationsUpTo(s.Transformations, e.MaxTransforms)
	}

	var out []chain.ChainChoice
	var recurse func(i int, selected [][]rewrite.Transformation)
	recurse = func(i int, selected [][]rewrite.Transformation) {
		if i == len(e.Servers) {
			for _, normIdx := range append([]int{-1}, e.normCapable...) {
				flags := make([]bool, len(e.Servers))
				if normIdx >= 0 {
					flags[normIdx] = true
				}
				sel := make([][]rewrite.Transformation, len(selected))
				copy(sel, selected)
				out = append(out, chain.ChainChoice{Selected: sel, NormalizeFlags: flags})
			}
			return
		}
		for _, combo := range perServer[i] {
			recurse(i+1, append(selected, combo))
		}
	}
	recurse(0, nil)
	return out
}

// Random produces every ChainChoice Exhaustive would, but in a random
// order, via rejection sampling against an Explorer sized to the
// exhaustive count: resample on a hash collision, stop once every
// distinct choice has been produced. seed makes the sequence
// reproducible; the caller is responsible for recording it in the run
// summary (spec.md §5).
func (e *Enumerator) Random(seed int64) []chain.ChainChoice {
	total := e.Count()
	rng := rand.New(rand.NewSource(seed))
	explorer := NewExplorer(total)

	out := make([]chain.ChainChoice, 0, total)
	for explorer.Count() < total {
		choice := e.randomChoice(rng)
		if explorer.TryMark(choice.Hash()) {
			out = append(out, choice)
		}
	}
	return out
}

func (e *Enumerator) randomChoice(rng *rand.Rand) chain.ChainChoice {
	selected := make([][]rewrite.Transformation, len(e.Servers))
	for i, s := range e.Servers {
		bound := e.MaxTransforms
		if len(s.Transformations) < bound {
			bound = len(s.Transformations)
		}
		k := rng.Intn(bound + 1)
		selected[i] = randomSubset(rng, s.Transformations, k)
	}

	flags := make([]bool, len(e.Servers))
	pick := rng.Intn(len(e.normCapable) + 1)
	if pick > 0 {
		flags[e.normCapable[pick-1]] = true
	}
	return chain.ChainChoice{Selected: selected, NormalizeFlags: flags}
}

func randomSubset(rng *rand.Rand, items []rewrite.Transformation, k int) []rewrite.Transformation {
	if k == 0 {
		return nil
	}
	idx := rng.Perm(len(items))[:k]
	// Sort so the chosen subset preserves the server's declared
	// transformation order, matching what Exhaustive produces.
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && idx[j-1] > idx[j]; j-- {
			idx[j-1], idx[j] = idx[j], idx[j-1]
		}
	}
	out := make([]rewrite.Transformation, k)
	for i, id := range idx {
		out[i] = items[id]
	}
	return out
}

// combinationsUpTo returns every combination of items of size 0..maxK,
// in lexicographic index order.
func combinationsUpTo(items []rewrite.Transformation, maxK int) [][]rewrite.Transformation {
	n := len(items)
	bound := maxK
	if n < bound {
		bound = n
	}
	var out [][]rewrite.Transformation
	for k := 0; k <= bound; k++ {
		out = append(out, combinationsOfSize(items, k)...)
	}
	return out
}

func combinationsOfSize(items []rewrite.Transformation, k int) [][]rewrite.Transformation {
	n := len(items)
	if k == 0 {
		return [][]rewrite.Transformation{{}}
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}

	var out [][]rewrite.Transformation
	for {
		combo := make([]rewrite.Transformation, k)
		for i, id := range idx {
			combo[i] = items[id]
		}
		out = append(out, combo)

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			break
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
	return out
}

func sumCombinations(n, maxK int) int {
	bound := maxK
	if n < bound {
		bound = n
	}
	sum := 0
	for k := 0; k <= bound; k++ {
		sum += binomial(n, k)
	}
	return sum
}

func binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := 1
	for i := 0; i < k; i++ {
		result = result * (n - i) / (i + 1)
	}
	return result
}
