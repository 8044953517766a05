// Package history keeps a SQLite log of checker runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"checker/internal/logging"
	"checker/internal/match"
)

// Run is one recorded invocation against an annotation file.
type Run struct {
	ID         string
	StartedAt  time.Time
	Source     string
	Dump       string
	TargetArch string
	Debuggable bool
	Selected   int
	Passed     int
	Failed     int
	Fatal      string
	Duration   time.Duration
}

// OK reports whether the run had no failures.
func (r Run) OK() bool {
	return r.Fatal == "" && r.Failed == 0
}

// CaseRecord is the stored outcome of one test case.
type CaseRecord struct {
	RunID    string
	TestCase string
	Passed   bool
	DumpLine int
	Message  string
}

// Store persists runs in SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Get(logging.CategoryHistory).Debugw("history store opened", "path", path)
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at_ns INTEGER NOT NULL,
		source TEXT NOT NULL,
		dump TEXT NOT NULL,
		target_arch TEXT NOT NULL DEFAULT '',
		debuggable INTEGER NOT NULL DEFAULT 0,
		selected INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		fatal TEXT NOT NULL DEFAULT '',
		duration_us INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at_ns);

	CREATE TABLE IF NOT EXISTS case_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		test_case TEXT NOT NULL,
		passed INTEGER NOT NULL,
		dump_line INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_case_results_run ON case_results(run_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a run summary and its case results, returning the run ID.
func (s *Store) Record(ctx context.Context, summary match.Summary, targetArch string, debuggable bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	fatal := ""
	if summary.Fatal != nil {
		fatal = summary.Fatal.Error()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at_ns, source, dump, target_arch, debuggable, selected, passed, failed, fatal, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.now().UnixNano(), summary.Source, summary.Dump, targetArch, debuggable,
		summary.Selected, summary.Passed, summary.Failed, fatal, summary.Duration.Microseconds())
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for _, res := range summary.Results {
		msg := ""
		if res.Failure != nil {
			msg = res.Failure.Message(res.DumpLine())
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO case_results (run_id, test_case, passed, dump_line, message)
			VALUES (?, ?, ?, ?, ?)`,
			id, res.TestCase.Name, res.Passed(), res.DumpLine(), msg)
		if err != nil {
			return "", fmt.Errorf("failed to insert case result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	logging.Get(logging.CategoryHistory).Debugw("run recorded", "id", id, "source", summary.Source, "cases", len(summary.Results))
	return id, nil
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, started_at_ns, source, dump, target_arch, debuggable, selected, passed, failed, fatal, duration_us
		FROM runs ORDER BY started_at_ns DESC, rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			startedNS  int64
			durationUS int64
		)
		if err := rows.Scan(&r.ID, &startedNS, &r.Source, &r.Dump, &r.TargetArch, &r.Debuggable,
			&r.Selected, &r.Passed, &r.Failed, &r.Fatal, &durationUS); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = time.Unix(0, startedNS).UTC()
		r.Duration = time.Duration(durationUS) * time.Microsecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Cases returns the case results of a run in recorded order.
func (s *Store) Cases(ctx context.Context, runID string) ([]CaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, test_case, passed, dump_line, message
		FROM case_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query case results: %w", err)
	}
	defer rows.Close()

	var cases []CaseRecord
	for rows.Next() {
		var c CaseRecord
		if err := rows.Scan(&c.RunID, &c.TestCase, &c.Passed, &c.DumpLine, &c.Message); err != nil {
			return nil, fmt.Errorf("failed to scan case result: %w", err)
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}
