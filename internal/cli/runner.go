package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/slicingmelon/go-rawurlparser"

	"github.com/koreacsl/pathfault-go/internal/config"
	"github.com/koreacsl/pathfault-go/internal/logger"
	"github.com/koreacsl/pathfault-go/internal/perr"
	"github.com/koreacsl/pathfault-go/pathfault/chain"
	"github.com/koreacsl/pathfault-go/pathfault/enumerate"
	"github.com/koreacsl/pathfault-go/pathfault/server"
	"github.com/koreacsl/pathfault-go/pathfault/smt"
	"github.com/koreacsl/pathfault-go/pathfault/store"
	"github.com/koreacsl/pathfault-go/pathfault/surrogate"
	"github.com/koreacsl/pathfault-go/pathfault/validate"
)

// Runner drives one end-to-end PathFault run: build servers from a
// report, enumerate the combination space, dispatch compile+solve
// concurrently, validate every SAT candidate concretely, and persist
// the results.
type Runner struct {
	Options *Options
	Config  *config.RunConfig

	servers []*server.Server
	store   *store.Store
}

func NewRunner() *Runner {
	return &Runner{}
}

// Initialize parses flags (or, if -config was given, loads the run
// configuration from that YAML file alone, ignoring the other flags),
// builds the server chain from the configured report, and opens the
// result store.
func (r *Runner) Initialize() error {
	opts, err := parseFlags()
	if err != nil {
		return err
	}
	r.Options = opts

	var cfg *config.RunConfig
	if opts.ConfigFile != "" {
		cfg, err = config.Load(opts.ConfigFile)
		if err != nil {
			return err
		}
	} else {
		cfg, err = opts.ToRunConfig()
		if err != nil {
			return err
		}
	}
	r.Config = cfg

	if cfg.Verbose {
		logger.EnableVerbose()
	}
	if cfg.Debug {
		logger.EnableDebug()
	}

	reportData, err := os.ReadFile(cfg.ReportPath)
	if err != nil {
		return fmt.Errorf("runner: read report: %w", err)
	}
	report, err := surrogate.ParseReport(reportData)
	if err != nil {
		return fmt.Errorf("runner: parse report: %w", err)
	}

	servers, err := surrogate.BuildServers(report, cfg.ServerOrder, surrogate.DefaultBuildOptions())
	if err != nil {
		return fmt.Errorf("runner: build servers: %w", err)
	}
	r.servers = servers

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("runner: open store: %w", err)
	}
	r.store = st

	return nil
}

// Close releases the run's resources. Safe to call even if
// Initialize failed partway through.
func (r *Runner) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}

// structuralMismatch is the default exploit constraint named in
// spec.md §4.5's open-ended examples ("differs from U0 structurally"):
// the final hop's path must not equal the candidate that started it,
// i.e. the chain actually transformed the request somewhere.
func structuralMismatchSymbolic(u0, uN smt.Expr) smt.Bool {
	return smt.Not(smt.Eq(u0, uN))
}

func structuralMismatchConcrete(u0, uN []byte) bool {
	return !bytes.Equal(u0, uN)
}

// Run enumerates the combination space, dispatches every choice to the
// solver, validates each SAT candidate concretely, records the run and
// its candidates in the store, and prints a summary header.
func (r *Runner) Run(ctx context.Context) (store.RunSummary, error) {
	runID := runIDFromServers(r.Config.ServerOrder)

	if err := r.store.StartRun(ctx, runID, r.Config.ServerOrder); err != nil {
		return store.RunSummary{}, fmt.Errorf("runner: start run: %w", err)
	}

	enumerator := enumerate.New(r.servers, r.Config.MaxTransforms)
	var choices []chain.ChainChoice
	if r.Config.Random {
		choices = enumerator.Random(int64(r.Config.SampleSize))
	} else {
		choices = enumerator.Exhaustive()
	}
	choices = enumerate.ExpandNormalizationVariants(r.servers, choices)

	logger.PrintRunHeader(runID, len(choices), chainDescription(r.Config.ServerOrder))

	solver := smt.NewSolver(r.Config.SolverBinaryPath, r.Config.SolverTimeout)
	results, err := enumerate.Dispatch(ctx, choices, r.servers, structuralMismatchSymbolic, solver, r.Config.Concurrency)
	if err != nil {
		return store.RunSummary{}, fmt.Errorf("runner: dispatch: %w", err)
	}

	var stats perr.RunStats

	var pairs []validate.CandidatePair
	for _, res := range results {
		if res.CompileErr != nil {
			stats.Record(perr.GuardConflict(res.CompileErr.Error()))
			logger.Debug().Msgf("compile error: %v", res.CompileErr)
			continue
		}
		if res.SolveErr != nil {
			if errors.Is(res.SolveErr, context.DeadlineExceeded) {
				stats.Record(perr.SolverTimeout(res.SolveErr))
			} else {
				stats.Record(perr.SolverUnknown())
			}
			logger.Debug().Msgf("solve error: %v", res.SolveErr)
			continue
		}
		if res.Solve.Status == smt.StatusUnknown {
			stats.Record(perr.SolverUnknown())
			continue
		}
		if res.Solve.Status != smt.StatusSat {
			continue
		}
		candidate, ok := res.Solve.Model["U0"]
		if !ok {
			continue
		}
		pairs = append(pairs, validate.CandidatePair{Choice: res.Choice, CandidateURL: candidate})
	}

	traces := validate.ValidateBatch(r.servers, pairs, structuralMismatchConcrete)

	candidates := make([]store.Candidate, 0, len(traces))
	for _, tr := range traces {
		hops := make([]store.HopTraceRecord, 0, len(tr.Hops))
		for _, h := range tr.Hops {
			hops = append(hops, store.HopTraceRecord{
				Server:     h.Server,
				Inbound:    string(h.Inbound),
				Outbound:   string(h.Outbound),
				DurationNs: h.Duration.Nanoseconds(),
			})
		}
		candidates = append(candidates, store.Candidate{
			CandidateURL: string(tr.CandidateURL),
			FinalURL:     string(tr.FinalURL),
			Pass:         tr.Pass,
			Hops:         hops,
		})

		if tr.Pass {
			logPassingCandidate(tr.CandidateURL)
			continue
		}
		mismatch := perr.ValidatorMismatch(string(tr.CandidateURL))
		stats.Record(mismatch)
		logger.Warning().Msgf("%v", mismatch)
	}

	if err := r.store.AppendCandidates(ctx, runID, candidates); err != nil {
		return store.RunSummary{}, fmt.Errorf("runner: append candidates: %w", err)
	}
	if err := r.store.FinishRun(ctx, runID); err != nil {
		return store.RunSummary{}, fmt.Errorf("runner: finish run: %w", err)
	}

	logger.Info().Msgf("%s", stats.Summary())

	return r.store.GetRunSummary(ctx, runID)
}

func runIDFromServers(order []string) string {
	id := "run"
	for _, name := range order {
		id += "-" + name
	}
	return id
}

// logPassingCandidate logs a passing candidate's path/query split
// using a raw, non-normalizing URL parse -- net/url.Parse would
// percent-decode and clean the path on the way in, which would hide
// exactly the byte-level confusion a passing candidate depends on.
func logPassingCandidate(candidate []byte) {
	parsed, err := rawurlparser.RawURLParse("http://candidate" + string(candidate))
	if err != nil {
		logger.Verbose().Msgf("candidate passed: %s", candidate)
		return
	}
	logger.Verbose().Metadata("path", parsed.Path).Metadata("query", parsed.Query).
		Msgf("candidate passed: %s", candidate)
}

func chainDescription(order []string) string {
	desc := ""
	for i, name := range order {
		if i > 0 {
			desc += " -> "
		}
		desc += name
	}
	return desc
}
