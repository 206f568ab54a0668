// Package store persists candidate payload lists and run summaries to
// a local SQLite file -- the findings store spec.md §6 calls
// "Output: candidate payload list" and "run summary", backed by a
// pure-Go driver so the whole module stays CGO-free.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id            TEXT NOT NULL UNIQUE,
	servers           TEXT NOT NULL,
	total_candidates  INTEGER NOT NULL DEFAULT 0,
	passed_candidates INTEGER NOT NULL DEFAULT 0,
	started_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	finished_at       TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_run_id ON runs(run_id);

CREATE TABLE IF NOT EXISTS candidates (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	candidate_url TEXT NOT NULL,
	final_url     TEXT NOT NULL,
	pass          INTEGER NOT NULL CHECK (pass IN (0,1)),
	hop_trace     TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(run_id) REFERENCES runs(run_id)
);
CREATE INDEX IF NOT EXISTS idx_candidates_run_id ON candidates(run_id);
CREATE INDEX IF NOT EXISTS idx_candidates_pass ON candidates(pass);
`

// Store wraps a single-writer SQLite connection. It is a value the
// caller owns and closes explicitly, rather than a package-level
// singleton, so a CLI invocation that runs multiple reports in one
// process (or a test) doesn't fight over global state.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and migrates the SQLite file at path, with
// WAL mode and a generous busy timeout so concurrent readers don't
// fail under a single writer, using the modernc.org/sqlite DSN dialect.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// A single writer connection avoids SQLITE_BUSY under WAL the same
	// way results.go's InitDB does.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// HopTraceRecord is the JSON-serializable per-hop shape persisted
// alongside each candidate, mirroring pathfault/validate.HopTrace
// without importing it (store stays a leaf package -- nothing in
// pathfault/* depends on persistence).
type HopTraceRecord struct {
	Server     string `json:"server"`
	Inbound    string `json:"inbound"`
	Outbound   string `json:"outbound"`
	DurationNs int64  `json:"duration_ns"`
}

// Candidate is one validated payload ready for persistence.
type Candidate struct {
	CandidateURL string
	FinalURL     string
	Pass         bool
	Hops         []HopTraceRecord
}

// StartRun inserts a new run row keyed by the caller-supplied runID, so
// callers can generate their own id scheme (timestamp, UUID, CLI flag)
// rather than have the store impose one.
func (s *Store) StartRun(ctx context.Context, runID string, servers []string) error {
	serverList, err := json.Marshal(servers)
	if err != nil {
		return fmt.Errorf("store: encode servers: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, servers) VALUES (?, ?)`,
		runID, string(serverList),
	)
	if err != nil {
		return fmt.Errorf("store: start run %s: %w", runID, err)
	}
	return nil
}

// AppendCandidates batch-inserts candidates for runID inside a single
// immediate transaction, matching results.go's AppendResultsToDB
// batching, and updates the run's running totals.
func (s *Store) AppendCandidates(ctx context.Context, runID string, candidates []Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candidates (run_id, candidate_url, final_url, pass, hop_trace)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	passed := 0
	for _, c := range candidates {
		hopJSON, err := json.Marshal(c.Hops)
		if err != nil {
			return fmt.Errorf("store: encode hop trace: %w", err)
		}
		passInt := 0
		if c.Pass {
			passInt = 1
			passed++
		}
		if _, err := stmt.ExecContext(ctx, runID, c.CandidateURL, c.FinalURL, passInt, string(hopJSON)); err != nil {
			return fmt.Errorf("store: insert candidate: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET total_candidates = total_candidates + ?, passed_candidates = passed_candidates + ? WHERE run_id = ?`,
		len(candidates), passed, runID,
	); err != nil {
		return fmt.Errorf("store: update run totals: %w", err)
	}

	return tx.Commit()
}

// FinishRun stamps finished_at for runID.
func (s *Store) FinishRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ? WHERE run_id = ?`,
		time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("store: finish run %s: %w", runID, err)
	}
	return nil
}

// RunSummary is one run's totals, the row shape spec.md §6's "run
// summary" output maps onto.
type RunSummary struct {
	RunID            string
	Servers          []string
	TotalCandidates  int
	PassedCandidates int
	StartedAt        time.Time
	FinishedAt       sql.NullTime
}

// GetRunSummary reads back one run's totals by run_id.
func (s *Store) GetRunSummary(ctx context.Context, runID string) (RunSummary, error) {
	var (
		summary    RunSummary
		serverJSON string
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, servers, total_candidates, passed_candidates, started_at, finished_at FROM runs WHERE run_id = ?`,
		runID,
	)
	if err := row.Scan(&summary.RunID, &serverJSON, &summary.TotalCandidates, &summary.PassedCandidates, &summary.StartedAt, &summary.FinishedAt); err != nil {
		return RunSummary{}, fmt.Errorf("store: get run summary %s: %w", runID, err)
	}
	if err := json.Unmarshal([]byte(serverJSON), &summary.Servers); err != nil {
		return RunSummary{}, fmt.Errorf("store: decode servers: %w", err)
	}
	return summary, nil
}

// ListPassingCandidates returns every candidate for runID whose Pass
// flag was true, ordered by insertion -- the payload list an operator
// would act on first.
func (s *Store) ListPassingCandidates(ctx context.Context, runID string) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT candidate_url, final_url, hop_trace FROM candidates WHERE run_id = ? AND pass = 1 ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list passing candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		var hopJSON string
		if err := rows.Scan(&c.CandidateURL, &c.FinalURL, &hopJSON); err != nil {
			return nil, fmt.Errorf("store: scan candidate: %w", err)
		}
		if err := json.Unmarshal([]byte(hopJSON), &c.Hops); err != nil {
			return nil, fmt.Errorf("store: decode hop trace: %w", err)
		}
		c.Pass = true
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate candidates: %w", err)
	}
	return out, nil
}
