package cli

import (
	"github.com/projectdiscovery/goflags"

	"github.com/koreacsl/pathfault-go/internal/config"
)

// parseFlags builds a goflags.FlagSet grouped the way the teacher's
// multiFlag list is grouped by comment header, replacing its
// hand-rolled registration loop and custom flag.Usage override with
// goflags' own CreateGroup/VarP/generated usage.
func parseFlags() (*Options, error) {
	opts := &Options{}

	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription("PathFault: synthesize path-confusion exploit URLs across an HTTP intermediary chain from a recorded inconsistency report.")

	flagSet.CreateGroup("config", "Config",
		flagSet.StringVarP(&opts.ConfigFile, "config", "cfg", "", "YAML run configuration file (overrides defaults; when set, every other flag is ignored)"),
	)

	flagSet.CreateGroup("input", "Input",
		flagSet.StringVarP(&opts.ReportPath, "report", "r", "", "path to the inconsistency report JSON"),
		flagSet.StringSliceVarP(&opts.ServerOrder, "servers", "s", nil,
			"comma separated chain order of server names to build and compile", goflags.CommaSeparatedStringSliceOptions),
	)

	flagSet.CreateGroup("enumeration", "Enumeration",
		flagSet.IntVarP(&opts.MaxTransforms, "max-transforms", "mt", config.DefaultMaxTransforms,
			"maximum optional transformations selected per hop"),
		flagSet.IntVarP(&opts.Concurrency, "concurrency", "c", config.DefaultConcurrency,
			"concurrent solver queries dispatched at once"),
		flagSet.BoolVarP(&opts.Random, "random", "rand", false,
			"sample the combination space randomly instead of exhaustively"),
		flagSet.IntVarP(&opts.SampleSize, "sample-size", "ss", 0,
			"seed for the random enumeration order when -random is set (every choice is still produced)"),
	)

	flagSet.CreateGroup("solver", "Solver",
		flagSet.StringVarP(&opts.SolverBinaryPath, "solver-path", "sp", config.DefaultSolverBinaryPath,
			"path to the z3 binary"),
		flagSet.DurationVarP(&opts.SolverTimeout, "solver-timeout", "st", config.DefaultSolverTimeout,
			"per-query solver timeout"),
	)

	flagSet.CreateGroup("storage", "Storage",
		flagSet.StringVarP(&opts.StorePath, "store", "o", config.DefaultStorePath,
			"sqlite database path for run and candidate results"),
	)

	flagSet.CreateGroup("debug", "Debug",
		flagSet.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output"),
		flagSet.BoolVarP(&opts.Debug, "debug", "d", false, "debug output"),
	)

	if err := flagSet.Parse(); err != nil {
		return nil, err
	}

	return opts, nil
}
