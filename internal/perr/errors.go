// Package perr defines the typed error kinds a run can produce and a
// RunStats accumulator that tallies them for the end-of-run summary,
// adapting error.go's errkit-based kind system to the kinds spec.md
// §7 names.
package perr

import (
	"fmt"

	"github.com/projectdiscovery/utils/errkit"
)

// Kind identifiers, one per spec.md §7 error kind. Each carries no
// automatic classifier (unlike the teacher's temporary-connection-error
// kind) because these are assigned explicitly at the call site that
// detects them, never inferred from a cause string.
var (
	KindReportMalformed          = errkit.NewPrimitiveErrKind("pathfault-report-malformed", "malformed inconsistency report", nil)
	KindUnprocessedInconsistency = errkit.NewPrimitiveErrKind("pathfault-unprocessed-inconsistency", "report entry fit no synthesis rule", nil)
	KindGuardConflict            = errkit.NewPrimitiveErrKind("pathfault-guard-conflict", "essential guard unsatisfiable for choice", nil)
	KindSolverTimeout            = errkit.NewPrimitiveErrKind("pathfault-solver-timeout", "solver query exceeded its timeout", nil)
	KindSolverUnknown            = errkit.NewPrimitiveErrKind("pathfault-solver-unknown", "solver returned unknown", nil)
	KindValidatorMismatch        = errkit.NewPrimitiveErrKind("pathfault-validator-mismatch", "solver SAT disagrees with concrete simulation", nil)
	KindArtifactIOError          = errkit.NewPrimitiveErrKind("pathfault-artifact-io-error", "surrogate artifact persistence failed", nil)
)

// ReportMalformed wraps cause as a KindReportMalformed error, carrying
// the offending JSON path for diagnostics (spec.md §7: "surface with
// offending path").
func ReportMalformed(path string, cause error) error {
	built := errkit.New(fmt.Sprintf("malformed inconsistency report at %s", path)).
		SetKind(KindReportMalformed).
		Build()
	if cause == nil {
		return built
	}
	return errkit.WithMessagef(built, "%v", cause)
}

// UnprocessedInconsistency marks a report entry that fit no synthesis
// rule -- non-fatal, recorded on the server's Unprocessed bucket and
// counted here.
func UnprocessedInconsistency(serverName, requestType string) error {
	return errkit.New(fmt.Sprintf("server %s: unprocessed %s entry", serverName, requestType)).
		SetKind(KindUnprocessedInconsistency).
		Build()
}

// GuardConflict reports a choice whose essential transformation guard
// is unsatisfiable -- the choice is dropped, enumeration continues.
func GuardConflict(serverName string) error {
	return errkit.New(fmt.Sprintf("server %s: essential guard conflict for choice", serverName)).
		SetKind(KindGuardConflict).
		Build()
}

// SolverTimeout reports a choice whose query exceeded its wall-clock
// budget.
func SolverTimeout(cause error) error {
	built := errkit.New("solver query timed out").SetKind(KindSolverTimeout).Build()
	if cause == nil {
		return built
	}
	return errkit.WithMessagef(built, "%v", cause)
}

// SolverUnknown reports a choice the solver could not decide.
func SolverUnknown() error {
	return errkit.New("solver returned unknown").SetKind(KindSolverUnknown).Build()
}

// ValidatorMismatch reports a SAT candidate whose concrete fixpoint
// trace disagrees with the exploit constraint.
func ValidatorMismatch(candidateURL string) error {
	return errkit.New(fmt.Sprintf("validator mismatch for candidate %q", candidateURL)).
		SetKind(KindValidatorMismatch).
		Build()
}

// ArtifactIOError wraps a persistence failure -- fatal for the
// current build or validation step.
func ArtifactIOError(op string, cause error) error {
	built := errkit.New(fmt.Sprintf("artifact %s failed", op)).SetKind(KindArtifactIOError).Build()
	if cause == nil {
		return built
	}
	return errkit.WithMessagef(built, "%v", cause)
}

// Kind extracts the errkit Kind attached to err, if any.
func Kind(err error) errkit.ErrKind {
	if err == nil {
		return nil
	}
	return errkit.FromError(err).Kind()
}
