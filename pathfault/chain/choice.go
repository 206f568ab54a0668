// Package chain implements the C5 chain compiler: it takes an ordered
// list of servers and a ChainChoice (which optional transformations and
// which normalization alternative each hop uses) and emits a single
// SMT formula whose model is one candidate exploit URL.
package chain

import (
	"fmt"

	"github.com/koreacsl/pathfault-go/pathfault/rewrite"
	"github.com/koreacsl/pathfault-go/pathfault/server"
)

// ChainChoice is one point in the combination space C6 enumerates:
// per server, the subset of transformations to apply and whether (and
// with which normalization variant) to normalize.
type ChainChoice struct {
	// Selected[i] is the transformation subset chosen for servers[i];
	// must be a subset of servers[i].AllTransformations().
	Selected [][]rewrite.Transformation
	// NormalizeFlags[i] turns normalization on for servers[i]; at most
	// one entry may be true.
	NormalizeFlags []bool
	// NormalizationVariant[i], if non-nil, overrides which
	// normalization rewrite servers[i] applies -- the hook the
	// normalization expander (C7) uses to re-enter C5 once per
	// alternative (spec.md §4.7).
	NormalizationVariant []*rewrite.Transformation
}

// Validate checks the ChainChoice invariants from spec.md §3: lengths
// match the server list, every selected transformation belongs to its
// server's universe, no server exceeds maxTransforms, and at most one
// server normalizes.
func (c ChainChoice) Validate(servers []*server.Server, maxTransforms int) error {
	n := len(servers)
	if len(c.Selected) != n || len(c.NormalizeFlags) != n {
		return fmt.Errorf("chain: choice length mismatch: %d servers, %d selected, %d normalize flags",
			n, len(c.Selected), len(c.NormalizeFlags))
	}

	normalizeCount := 0
	for i, srv := range servers {
		if len(c.Selected[i]) > maxTransforms {
			return fmt.Errorf("chain: server %q selected %d transformations, max is %d", srv.Name, len(c.Selected[i]), maxTransforms)
		}
		universe := transformationNames(srv.AllTransformations())
		for _, t := range c.Selected[i] {
			if !universe[t.Name] {
				return fmt.Errorf("chain: server %q selected transformation %q not in its universe", srv.Name, t.Name)
			}
		}
		if c.NormalizeFlags[i] {
			normalizeCount++
		}
	}
	if normalizeCount > 1 {
		return fmt.Errorf("chain: at most one server may normalize, got %d", normalizeCount)
	}
	return nil
}

func transformationNames(ts []rewrite.Transformation) map[string]bool {
	names := make(map[string]bool, len(ts))
	for _, t := range ts {
		names[t.Name] = true
	}
	return names
}

// Hash returns a deterministic key for the explored-set cache (C6),
// built from each server's sorted-by-construction-order selected
// transformation names plus the index of the normalizing server (-1
// if none). Two ChainChoices that would compile to the same formula
// shape hash equal.
func (c ChainChoice) Hash() string {
	normIdx := -1
	for i, v := range c.NormalizeFlags {
		if v {
			normIdx = i
			break
		}
	}
	h := fmt.Sprintf("norm=%d", normIdx)
	for i, sel := range c.Selected {
		h += fmt.Sprintf("|s%d:", i)
		for _, t := range sel {
			h += t.Name + ","
		}
	}
	return h
}
