// Package cli wires command-line flags into a RunConfig and drives one
// end-to-end PathFault run, using goflags for grouped flags, typed
// VarP registration, and generated usage.
package cli

import (
	"fmt"
	"time"

	"github.com/projectdiscovery/goflags"

	"github.com/koreacsl/pathfault-go/internal/config"
)

// Options is the CLI-flag-shaped mirror of config.RunConfig: every
// field goflags can bind a pointer to directly. ToRunConfig converts
// this into a RunConfig once parsing is done.
type Options struct {
	ConfigFile string

	ReportPath  string
	ServerOrder goflags.StringSlice

	MaxTransforms int
	Concurrency   int
	Random        bool
	SampleSize    int

	SolverBinaryPath string
	SolverTimeout    time.Duration

	ExplorerCapacity int

	StorePath string

	Verbose bool
	Debug   bool
}

// ToRunConfig builds a RunConfig from parsed flag values, applying
// defaults to anything left at its zero value and validating the
// result -- the same two steps config.Load applies to a YAML file, so
// a flag-built run and a file-built run are held to one standard.
func (o *Options) ToRunConfig() (*config.RunConfig, error) {
	c := &config.RunConfig{
		ReportPath:       o.ReportPath,
		ServerOrder:      []string(o.ServerOrder),
		MaxTransforms:    o.MaxTransforms,
		Concurrency:      o.Concurrency,
		Random:           o.Random,
		SampleSize:       o.SampleSize,
		SolverBinaryPath: o.SolverBinaryPath,
		SolverTimeout:    o.SolverTimeout,
		ExplorerCapacity: o.ExplorerCapacity,
		StorePath:        o.StorePath,
		Verbose:          o.Verbose,
		Debug:            o.Debug,
	}

	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("cli: %w", err)
	}
	return c, nil
}
