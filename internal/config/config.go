// Package config adapts the teacher's flat Config struct into
// RunConfig: the settings one end-to-end PathFault run needs, loadable
// from a YAML file (gopkg.in/yaml.v3, as lcalzada-xor-AethonX's
// deps.yaml loader does) or built up directly by a CLI flag binding.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values, named the way the teacher's config.go names its
// defaultTimeout/maxIdleConns constants.
const (
	DefaultMaxTransforms    = 2
	DefaultConcurrency      = 8
	DefaultSolverTimeout    = 30 * time.Second
	DefaultSolverBinaryPath = "z3"
	DefaultExplorerCapacity = 10000
	DefaultStorePath        = "pathfault.sqlite"
)

// RunConfig is one end-to-end run's settings: which report to build
// servers from, in what chain order, how hard the enumerator searches,
// where the solver binary lives, and where results land.
type RunConfig struct {
	ReportPath  string   `yaml:"report_path"`
	ServerOrder []string `yaml:"server_order"`

	MaxTransforms int  `yaml:"max_transforms"`
	Concurrency   int  `yaml:"concurrency"`
	Random        bool `yaml:"random"`
	SampleSize    int  `yaml:"sample_size"`

	SolverBinaryPath string        `yaml:"solver_binary_path"`
	SolverTimeout    time.Duration `yaml:"solver_timeout"`

	ExplorerCapacity int `yaml:"explorer_capacity"`

	StorePath string `yaml:"store_path"`

	Verbose bool `yaml:"verbose"`
	Debug   bool `yaml:"debug"`
}

// rawRunConfig mirrors RunConfig field-for-field except SolverTimeout,
// which yaml.v3 can't decode straight into time.Duration (an int64
// alias) from a duration string like "5s" -- UnmarshalYAML below
// parses that string itself via time.ParseDuration.
type rawRunConfig struct {
	ReportPath       string   `yaml:"report_path"`
	ServerOrder      []string `yaml:"server_order"`
	MaxTransforms    int      `yaml:"max_transforms"`
	Concurrency      int      `yaml:"concurrency"`
	Random           bool     `yaml:"random"`
	SampleSize       int      `yaml:"sample_size"`
	SolverBinaryPath string   `yaml:"solver_binary_path"`
	SolverTimeout    string   `yaml:"solver_timeout"`
	ExplorerCapacity int      `yaml:"explorer_capacity"`
	StorePath        string   `yaml:"store_path"`
	Verbose          bool     `yaml:"verbose"`
	Debug            bool     `yaml:"debug"`
}

// UnmarshalYAML implements yaml.Unmarshaler so SolverTimeout can be
// written as a duration string ("30s", "2m") in the config file.
func (c *RunConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw rawRunConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	var timeout time.Duration
	if raw.SolverTimeout != "" {
		d, err := time.ParseDuration(raw.SolverTimeout)
		if err != nil {
			return fmt.Errorf("solver_timeout: %w", err)
		}
		timeout = d
	}

	*c = RunConfig{
		ReportPath:       raw.ReportPath,
		ServerOrder:      raw.ServerOrder,
		MaxTransforms:    raw.MaxTransforms,
		Concurrency:      raw.Concurrency,
		Random:           raw.Random,
		SampleSize:       raw.SampleSize,
		SolverBinaryPath: raw.SolverBinaryPath,
		SolverTimeout:    timeout,
		ExplorerCapacity: raw.ExplorerCapacity,
		StorePath:        raw.StorePath,
		Verbose:          raw.Verbose,
		Debug:            raw.Debug,
	}
	return nil
}

// New returns a RunConfig with every field at its documented default,
// matching the teacher's config.go's "other constants" block rather
// than leaving zero values for time-based fields.
func New() *RunConfig {
	c := &RunConfig{}
	c.setDefaults()
	return c
}

// Load reads and parses a YAML file at path into a RunConfig, applying
// defaults to any field the file leaves unset before validating.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	c := &RunConfig{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// setDefaults fills in zero-valued fields, never overwriting anything
// the file or a flag already set.
func (c *RunConfig) setDefaults() {
	if c.MaxTransforms == 0 {
		c.MaxTransforms = DefaultMaxTransforms
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.SolverBinaryPath == "" {
		c.SolverBinaryPath = DefaultSolverBinaryPath
	}
	if c.SolverTimeout == 0 {
		c.SolverTimeout = DefaultSolverTimeout
	}
	if c.ExplorerCapacity == 0 {
		c.ExplorerCapacity = DefaultExplorerCapacity
	}
	if c.StorePath == "" {
		c.StorePath = DefaultStorePath
	}
}

// validate enforces the invariants a downstream library call would
// otherwise panic or silently misbehave on.
func (c *RunConfig) validate() error {
	if c.ReportPath == "" {
		return fmt.Errorf("report_path is required")
	}
	if len(c.ServerOrder) == 0 {
		return fmt.Errorf("server_order must list at least one server")
	}
	if c.MaxTransforms < 0 {
		return fmt.Errorf("max_transforms must be >= 0, got %d", c.MaxTransforms)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.Random && c.SampleSize < 1 {
		return fmt.Errorf("sample_size must be >= 1 when random is true, got %d", c.SampleSize)
	}
	return nil
}

// Validate runs the same checks Load applies, exposed for a CLI path
// that builds RunConfig from flags instead of a YAML file.
func (c *RunConfig) Validate() error {
	return c.validate()
}

// ApplyDefaults exposes setDefaults for a CLI path that builds
// RunConfig directly from flags instead of going through Load.
func (c *RunConfig) ApplyDefaults() {
	c.setDefaults()
}
