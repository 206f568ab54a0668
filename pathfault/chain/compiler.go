package chain

import (
	"fmt"

	"github.com/koreacsl/pathfault-go/pathfault/rewrite"
	"github.com/koreacsl/pathfault-go/pathfault/server"
	"github.com/koreacsl/pathfault-go/pathfault/smt"
)

// ExploitConstraint is supplied by the caller and asserted over the
// chain's symbolic input and final output -- spec.md §4.5 leaves its
// shape open ("ends with a path not present upstream", "differs from
// U0 structurally", etc.).
type ExploitConstraint func(u0, uN smt.Expr) smt.Bool

// Result is the compiled formula's handles: the solver extracts a
// model for U0 (and, for the validator's trace, every intermediate
// hop variable).
type Result struct {
	Context *smt.Context
	U0      smt.Expr
	UN      smt.Expr
	// Hops holds U0..UN inclusive, one declared string constant per
	// hop boundary -- len(Hops) == len(servers)+1.
	Hops []smt.Expr
}

// Compile builds the chain formula from spec.md §4.5's pseudocode:
// pre-conditions, decode, if-guard-folded optional transformations,
// hard-asserted essential transformations, optional normalization,
// post-conditions, then an equality binding to the next hop's fresh
// symbolic input. The exploit constraint is asserted last, over U0 and
// the final hop's variable.
func Compile(servers []*server.Server, choice ChainChoice, exploit ExploitConstraint) (Result, error) {
	if len(servers) == 0 {
		return Result{}, fmt.Errorf("chain: no servers to compile")
	}
	if err := choice.Validate(servers, maxSelectedBound(choice)); err != nil {
		return Result{}, err
	}

	ctx := smt.NewContext()
	u0 := ctx.DeclareString("U0")
	hops := make([]smt.Expr, 0, len(servers)+1)
	hops = append(hops, u0)

	cur := u0
	for i, srv := range servers {
		_, preFormula := srv.ApplyPreConditions(cur)
		ctx.Assert(preFormula)

		decoded := srv.ApplyDecoding(cur)
		transformed := srv.ApplyTransformations(decoded, choice.Selected[i])

		essentialResult, essentialGuard := srv.ApplyEssentialTransformations(transformed)
		ctx.Assert(essentialGuard)

		normalized := essentialResult
		if choice.NormalizeFlags[i] {
			var variant *rewrite.Transformation
			if i < len(choice.NormalizationVariant) {
				variant = choice.NormalizationVariant[i]
			}
			normalized = srv.ApplyNormalization(essentialResult, variant)
		}

		_, postFormula := srv.ApplyPostConditions(normalized)
		ctx.Assert(postFormula)

		next := ctx.DeclareString(fmt.Sprintf("U%d", i+1))
		ctx.Assert(smt.Eq(next, normalized))
		hops = append(hops, next)
		cur = next
	}

	uN := cur
	ctx.Assert(exploit(u0, uN))

	return Result{Context: ctx, U0: u0, UN: uN, Hops: hops}, nil
}

// maxSelectedBound derives a permissive per-server cap from the choice
// itself so Compile's structural checks (subset membership, at-most-
// one-normalize) run independent of any enumeration budget. The actual
// max_transforms ceiling is enforced once, by the enumerator, which is
// the only caller that knows the configured budget (spec.md §4.6);
// re-deriving it here would just duplicate that check trivially.
func maxSelectedBound(c ChainChoice) int {
	max := 0
	for _, sel := range c.Selected {
		if len(sel) > max {
			max = len(sel)
		}
	}
	return max
}
