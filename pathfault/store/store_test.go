package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pathfault.sqlite")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStartRunAndGetSummary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.StartRun(ctx, "run-1", []string{"s1", "s2"}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	summary, err := s.GetRunSummary(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRunSummary: %v", err)
	}
	if summary.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", summary.RunID)
	}
	if len(summary.Servers) != 2 || summary.Servers[0] != "s1" || summary.Servers[1] != "s2" {
		t.Errorf("Servers = %v, want [s1 s2]", summary.Servers)
	}
	if summary.TotalCandidates != 0 || summary.PassedCandidates != 0 {
		t.Errorf("fresh run has nonzero totals: %+v", summary)
	}
	if summary.FinishedAt.Valid {
		t.Errorf("FinishedAt should be NULL before FinishRun")
	}
}

func TestAppendCandidatesUpdatesTotals(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.StartRun(ctx, "run-2", []string{"s1"}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	candidates := []Candidate{
		{CandidateURL: "/a;/../b", FinalURL: "/b", Pass: true, Hops: []HopTraceRecord{{Server: "s1", Inbound: "/a;/../b", Outbound: "/b", DurationNs: 100}}},
		{CandidateURL: "/x", FinalURL: "/x", Pass: false},
	}
	if err := s.AppendCandidates(ctx, "run-2", candidates); err != nil {
		t.Fatalf("AppendCandidates: %v", err)
	}

	summary, err := s.GetRunSummary(ctx, "run-2")
	if err != nil {
		t.Fatalf("GetRunSummary: %v", err)
	}
	if summary.TotalCandidates != 2 {
		t.Errorf("TotalCandidates = %d, want 2", summary.TotalCandidates)
	}
	if summary.PassedCandidates != 1 {
		t.Errorf("PassedCandidates = %d, want 1", summary.PassedCandidates)
	}

	passing, err := s.ListPassingCandidates(ctx, "run-2")
	if err != nil {
		t.Fatalf("ListPassingCandidates: %v", err)
	}
	if len(passing) != 1 {
		t.Fatalf("len(passing) = %d, want 1", len(passing))
	}
	if passing[0].CandidateURL != "/a;/../b" || passing[0].FinalURL != "/b" {
		t.Errorf("passing[0] = %+v, want candidate_url=/a;/../b final_url=/b", passing[0])
	}
	if len(passing[0].Hops) != 1 || passing[0].Hops[0].Server != "s1" {
		t.Errorf("passing[0].Hops = %+v, want one hop for s1", passing[0].Hops)
	}
}

func TestAppendCandidatesEmptyIsNoop(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.StartRun(ctx, "run-3", nil); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := s.AppendCandidates(ctx, "run-3", nil); err != nil {
		t.Fatalf("AppendCandidates(nil): %v", err)
	}
	summary, err := s.GetRunSummary(ctx, "run-3")
	if err != nil {
		t.Fatalf("GetRunSummary: %v", err)
	}
	if summary.TotalCandidates != 0 {
		t.Errorf("TotalCandidates = %d, want 0", summary.TotalCandidates)
	}
}

func TestFinishRunStampsTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.StartRun(ctx, "run-4", []string{"s1"}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := s.FinishRun(ctx, "run-4"); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	summary, err := s.GetRunSummary(ctx, "run-4")
	if err != nil {
		t.Fatalf("GetRunSummary: %v", err)
	}
	if !summary.FinishedAt.Valid {
		t.Errorf("FinishedAt should be set after FinishRun")
	}
}

func TestGetRunSummaryUnknownRun(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetRunSummary(context.Background(), "does-not-exist"); err == nil {
		t.Errorf("GetRunSummary(unknown run): want error, got nil")
	}
}
