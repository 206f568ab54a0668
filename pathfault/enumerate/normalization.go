package enumerate

import (
	"github.com/koreacsl/pathfault-go/pathfault/chain"
	"github.com/koreacsl/pathfault-go/pathfault/normalize"
	"github.com/koreacsl/pathfault-go/pathfault/rewrite"
	"github.com/koreacsl/pathfault-go/pathfault/server"
)

// ExpandNormalizationVariants re-enters every choice with an active
// normalize flag once per normalization-string alternative the C7
// expander produces for that hop (spec.md §4.7: "each produced variant
// becomes one alternative normalization choice; C5 re-enters once per
// alternative"). Choices with no normalize flag set pass through
// unchanged; a choice whose normalizing hop has every candidate pruned
// by subsumption contributes no variant and is dropped, since it
// cannot produce an output distinct from a plain-normalize choice an
// earlier hop already covers.
func ExpandNormalizationVariants(servers []*server.Server, choices []chain.ChainChoice) []chain.ChainChoice {
	out := make([]chain.ChainChoice, 0, len(choices))
	for _, c := range choices {
		idx := normalizeIndex(c)
		if idx < 0 {
			out = append(out, c)
			continue
		}

		var prevNormalize, prevDecode bool
		if idx > 0 {
			prevNormalize = servers[idx-1].IsNormalize
			prevDecode = servers[idx-1].IsDecode
		}
		priorNormStrs := priorNormalizationStrings(servers, idx)

		variants := normalize.ExpandForChainStep(prevNormalize, prevDecode, servers[idx].Normalizations, priorNormStrs)
		for i := range variants {
			v := variants[i]
			nc := cloneChoice(c)
			nc.NormalizationVariant[idx] = &v
			out = append(out, nc)
		}
	}
	return out
}

func normalizeIndex(c chain.ChainChoice) int {
	for i, v := range c.NormalizeFlags {
		if v {
			return i
		}
	}
	return -1
}

// priorNormalizationStrings collects the normalization strings every
// server before idx carries, regardless of whether that server's
// normalize flag is set in the current choice -- the subsumption prune
// (spec.md §4.7) reasons about what an earlier hop's normalization
// machinery is capable of collapsing, not about this choice's flags.
func priorNormalizationStrings(servers []*server.Server, idx int) [][]byte {
	var out [][]byte
	for j := 0; j < idx; j++ {
		for _, t := range servers[j].Normalizations {
			if n, ok := t.Rewrite.(rewrite.Normalization); ok {
				out = append(out, n.NormStr)
			}
		}
	}
	return out
}

func cloneChoice(c chain.ChainChoice) chain.ChainChoice {
	sel := make([][]rewrite.Transformation, len(c.Selected))
	copy(sel, c.Selected)
	flags := make([]bool, len(c.NormalizeFlags))
	copy(flags, c.NormalizeFlags)
	return chain.ChainChoice{
		Selected:             sel,
		NormalizeFlags:       flags,
		NormalizationVariant: make([]*rewrite.Transformation, len(c.NormalizeFlags)),
	}
}
