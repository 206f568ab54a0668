package perr

import (
	"errors"
	"strings"
	"testing"
)

func TestKindRoundTripsThroughConstructors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"report-malformed", ReportMalformed("servers.s1.transformation.bad", errors.New("eof")), KindReportMalformed},
		{"unprocessed", UnprocessedInconsistency("s1", "transformation_composite_middle"), KindUnprocessedInconsistency},
		{"guard-conflict", GuardConflict("s1"), KindGuardConflict},
		{"solver-timeout", SolverTimeout(errors.New("deadline exceeded")), KindSolverTimeout},
		{"solver-unknown", SolverUnknown(), KindSolverUnknown},
		{"validator-mismatch", ValidatorMismatch("/a/b"), KindValidatorMismatch},
		{"artifact-io", ArtifactIOError("save", errors.New("disk full")), KindArtifactIOError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Kind(c.err); got != c.want {
				t.Fatalf("Kind() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestReportMalformedCarriesCauseMessage(t *testing.T) {
	err := ReportMalformed("servers.s1", errors.New("unexpected EOF"))
	if !strings.Contains(err.Error(), "unexpected EOF") {
		t.Fatalf("error %q does not mention its cause", err.Error())
	}
	if !strings.Contains(err.Error(), "servers.s1") {
		t.Fatalf("error %q does not mention the offending path", err.Error())
	}
}

func TestKindOfNilIsNil(t *testing.T) {
	if Kind(nil) != nil {
		t.Fatal("Kind(nil) should be nil")
	}
}

func TestRunStatsRecordsByKind(t *testing.T) {
	var s RunStats
	s.Record(GuardConflict("s1"))
	s.Record(GuardConflict("s2"))
	s.Record(SolverUnknown())
	s.Record(errors.New("untyped error, should be ignored"))

	counts := s.Counts()
	if counts["pathfault-guard-conflict"] != 2 {
		t.Fatalf("guard conflict count = %d, want 2", counts["pathfault-guard-conflict"])
	}
	if counts["pathfault-solver-unknown"] != 1 {
		t.Fatalf("solver unknown count = %d, want 1", counts["pathfault-solver-unknown"])
	}
	if counts["pathfault-report-malformed"] != 0 {
		t.Fatalf("report malformed count = %d, want 0", counts["pathfault-report-malformed"])
	}
}

func TestRunStatsSummaryMentionsEachKind(t *testing.T) {
	var s RunStats
	s.Record(ArtifactIOError("save", errors.New("disk full")))
	summary := s.Summary()
	if !strings.Contains(summary, "pathfault-artifact-io-error") {
		t.Fatalf("summary missing artifact-io-error line: %s", summary)
	}
}
