package perr

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// RunStats tallies recoverable errors by kind across an enumeration
// run, adapting error_stats.go's atomic per-category counters (the
// teacher tallies timeout/connection/TLS/payload counts the same way;
// here the categories are spec.md §7's error kinds instead).
type RunStats struct {
	reportMalformed          uint64
	unprocessedInconsistency uint64
	guardConflict            uint64
	solverTimeout            uint64
	solverUnknown            uint64
	validatorMismatch        uint64
	artifactIOError          uint64
}

// Record tallies err under its Kind. Errors with no recognized Kind
// (or nil) are ignored -- RunStats only tracks spec.md §7's named
// kinds, not arbitrary failures.
func (s *RunStats) Record(err error) {
	switch Kind(err) {
	case KindReportMalformed:
		atomic.AddUint64(&s.reportMalformed, 1)
	case KindUnprocessedInconsistency:
		atomic.AddUint64(&s.unprocessedInconsistency, 1)
	case KindGuardConflict:
		atomic.AddUint64(&s.guardConflict, 1)
	case KindSolverTimeout:
		atomic.AddUint64(&s.solverTimeout, 1)
	case KindSolverUnknown:
		atomic.AddUint64(&s.solverUnknown, 1)
	case KindValidatorMismatch:
		atomic.AddUint64(&s.validatorMismatch, 1)
	case KindArtifactIOError:
		atomic.AddUint64(&s.artifactIOError, 1)
	}
}

// Counts returns a snapshot keyed by kind identifier, suitable for
// logging or an artifact's run summary. Keys match the ids passed to
// NewPrimitiveErrKind in errors.go.
func (s *RunStats) Counts() map[string]uint64 {
	return map[string]uint64{
		"pathfault-report-malformed":          atomic.LoadUint64(&s.reportMalformed),
		"pathfault-unprocessed-inconsistency": atomic.LoadUint64(&s.unprocessedInconsistency),
		"pathfault-guard-conflict":            atomic.LoadUint64(&s.guardConflict),
		"pathfault-solver-timeout":            atomic.LoadUint64(&s.solverTimeout),
		"pathfault-solver-unknown":            atomic.LoadUint64(&s.solverUnknown),
		"pathfault-validator-mismatch":        atomic.LoadUint64(&s.validatorMismatch),
		"pathfault-artifact-io-error":         atomic.LoadUint64(&s.artifactIOError),
	}
}

// Summary renders a human-readable end-of-run report, mirroring
// error_stats.go's GenerateReport layout.
func (s *RunStats) Summary() string {
	var b strings.Builder
	b.WriteString("Run Error Summary\n")
	b.WriteString("=================\n\n")
	for kind, count := range s.Counts() {
		fmt.Fprintf(&b, "%-40s %d\n", kind, count)
	}
	return b.String()
}
