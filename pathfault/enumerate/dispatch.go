package enumerate

import (
	"context"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/koreacsl/pathfault-go/pathfault/chain"
	"github.com/koreacsl/pathfault-go/pathfault/server"
	"github.com/koreacsl/pathfault-go/pathfault/smt"
)

// ChoiceResult is one choice's outcome after compilation and solving.
type ChoiceResult struct {
	Choice     chain.ChainChoice
	CompileErr error
	Solve      smt.Result
	SolveErr   error
	Elapsed    time.Duration
}

// Dispatch compiles and solves every choice concurrently, bounded to
// concurrency simultaneous queries (spec.md §5's "enumerator caps
// total concurrent queries to a configured width"). Each choice owns
// its own *smt.Context and the Solver spawns one subprocess per query,
// so workers share nothing. Results are returned in choice order
// regardless of completion order, preserving the exhaustive
// enumerator's reproducible ordering guarantee.
func Dispatch(ctx context.Context, choices []chain.ChainChoice, servers []*server.Server, exploit chain.ExploitConstraint, solver *smt.Solver, concurrency int) ([]ChoiceResult, error) {
	results := make([]ChoiceResult, len(choices))

	pool := pond.NewPool(concurrency)
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)

	for i, choice := range choices {
		i, choice := i, choice
		group.SubmitErr(func() error {
			if ctx.Err() != nil {
				return nil
			}
			start := time.Now()
			compiled, err := chain.Compile(servers, choice, exploit)
			if err != nil {
				results[i] = ChoiceResult{Choice: choice, CompileErr: err, Elapsed: time.Since(start)}
				return nil
			}
			res, solveErr := solver.Solve(ctx, compiled.Context)
			results[i] = ChoiceResult{Choice: choice, Solve: res, SolveErr: solveErr, Elapsed: time.Since(start)}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
