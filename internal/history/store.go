// Package history persists one row per regeneration run in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Outcome is the final state of a run.
type Outcome string

const (
	OutcomeRunning Outcome = "running"
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// RunRecord is one regeneration run.
type RunRecord struct {
	ID         string
	Target     string
	ScanDir    string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    Outcome
	Error      string
	Coalesced  int
}

// Duration is zero for runs that have not finished.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Finish carries the fields known once a run ends.
type Finish struct {
	ScanDir   string
	Outcome   Outcome
	Err       error
	Coalesced int
}

// ErrUnknownRun is returned when finishing a run id that was never started.
var ErrUnknownRun = errors.New("unknown run")

// Store implements run history on SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// Open creates or opens the database at path.
// Use ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Each pooled connection to :memory: would see its own database.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		target TEXT NOT NULL,
		scan_dir TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		coalesced INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Start inserts a running record for target and returns it.
func (s *Store) Start(ctx context.Context, target string) (RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := RunRecord{
		ID:        uuid.NewString(),
		Target:    target,
		StartedAt: s.now(),
		Outcome:   OutcomeRunning,
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, target, started_at, outcome) VALUES (?, ?, ?, ?)",
		rec.ID, rec.Target, rec.StartedAt.UnixMilli(), string(rec.Outcome),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}
	return rec, nil
}

// Finish records the end of run id.
func (s *Store) Finish(ctx context.Context, id string, f Finish) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errText := ""
	if f.Err != nil {
		errText = f.Err.Error()
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET scan_dir = ?, finished_at = ?, outcome = ?, error = ?, coalesced = ? WHERE id = ?",
		f.ScanDir, s.now().UnixMilli(), string(f.Outcome), errText, f.Coalesced, id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, id)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, target, scan_dir, started_at, finished_at, outcome, error, coalesced FROM runs ORDER BY seq DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunRecord
	for rows.Next() {
		var (
			rec               RunRecord
			started, finished int64
			outcome           string
		)
		if err := rows.Scan(&rec.ID, &rec.Target, &rec.ScanDir, &started, &finished, &outcome, &rec.Error, &rec.Coalesced); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.StartedAt = time.UnixMilli(started)
		if finished > 0 {
			rec.FinishedAt = time.UnixMilli(finished)
		}
		rec.Outcome = Outcome(outcome)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Prune deletes runs started before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
