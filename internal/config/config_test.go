package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewAppliesDefaults(t *testing.T) {
	c := New()
	if c.MaxTransforms != DefaultMaxTransforms {
		t.Errorf("MaxTransforms = %d, want %d", c.MaxTransforms, DefaultMaxTransforms)
	}
	if c.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", c.Concurrency, DefaultConcurrency)
	}
	if c.SolverBinaryPath != DefaultSolverBinaryPath {
		t.Errorf("SolverBinaryPath = %q, want %q", c.SolverBinaryPath, DefaultSolverBinaryPath)
	}
	if c.SolverTimeout != DefaultSolverTimeout {
		t.Errorf("SolverTimeout = %v, want %v", c.SolverTimeout, DefaultSolverTimeout)
	}
}

func TestLoadParsesYAMLAndFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	contents := `
report_path: report.json
server_order: [s1, s2]
concurrency: 4
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ReportPath != "report.json" {
		t.Errorf("ReportPath = %q, want report.json", c.ReportPath)
	}
	if len(c.ServerOrder) != 2 || c.ServerOrder[0] != "s1" || c.ServerOrder[1] != "s2" {
		t.Errorf("ServerOrder = %v, want [s1 s2]", c.ServerOrder)
	}
	if c.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4 (from file, not default)", c.Concurrency)
	}
	if c.MaxTransforms != DefaultMaxTransforms {
		t.Errorf("MaxTransforms = %d, want default %d", c.MaxTransforms, DefaultMaxTransforms)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Errorf("Load(missing file): want error, got nil")
	}
}

func TestValidateRequiresReportPath(t *testing.T) {
	c := New()
	c.ServerOrder = []string{"s1"}
	if err := c.Validate(); err == nil {
		t.Errorf("Validate with empty ReportPath: want error, got nil")
	}
}

func TestValidateRequiresServerOrder(t *testing.T) {
	c := New()
	c.ReportPath = "report.json"
	if err := c.Validate(); err == nil {
		t.Errorf("Validate with empty ServerOrder: want error, got nil")
	}
}

func TestValidateRandomRequiresSampleSize(t *testing.T) {
	c := New()
	c.ReportPath = "report.json"
	c.ServerOrder = []string{"s1"}
	c.Random = true
	if err := c.Validate(); err == nil {
		t.Errorf("Validate with Random=true and SampleSize=0: want error, got nil")
	}
	c.SampleSize = 100
	if err := c.Validate(); err != nil {
		t.Errorf("Validate with SampleSize set: %v", err)
	}
}

func TestValidateRejectsNegativeMaxTransforms(t *testing.T) {
	c := New()
	c.ReportPath = "report.json"
	c.ServerOrder = []string{"s1"}
	c.MaxTransforms = -1
	if err := c.Validate(); err == nil {
		t.Errorf("Validate with negative MaxTransforms: want error, got nil")
	}
}

func TestValidateRejectsZeroConcurrency(t *testing.T) {
	c := &RunConfig{ReportPath: "r.json", ServerOrder: []string{"s1"}, Concurrency: 0}
	if err := c.Validate(); err == nil {
		t.Errorf("Validate with Concurrency=0: want error, got nil")
	}
}

func TestSolverTimeoutRoundTripsThroughYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	contents := "report_path: r.json\nserver_order: [s1]\nsolver_timeout: 5s\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.SolverTimeout != 5*time.Second {
		t.Errorf("SolverTimeout = %v, want 5s", c.SolverTimeout)
	}
}
