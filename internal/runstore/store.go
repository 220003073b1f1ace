// Package runstore persists inversion runs to SQLite so reconstructions can
// be compared across camera shots and served by the monitor.
package runstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fusion-imaging/sitsi/internal/monitoring"
)

// ErrNotFound indicates a run ID with no stored record.
var ErrNotFound = errors.New("runstore: run not found")

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Run is a persisted inversion run.
type Run struct {
	ID          int64      `json:"id"`
	RunID       string     `json:"run_id"`
	Source      string     `json:"source"`
	Method      string     `json:"method"`
	Status      string     `json:"status"`
	Alpha       float64    `json:"alpha,omitempty"`
	Fitness     float64    `json:"fitness,omitempty"`
	Solution    []float64  `json:"solution,omitempty"`
	Synthetic   []float64  `json:"synthetic,omitempty"`
	Measured    []float64  `json:"measured,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Store provides persistence for inversion runs.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the run database at path and applies
// pending migrations.
func Open(path string) (*Store, error) {
	s, err := OpenRaw(path)
	if err != nil {
		return nil, err
	}
	if err := s.MigrateUp(); err != nil {
		s.Close()
		return nil, err
	}

	monitoring.Logf("runstore: opened %q", path)
	return s, nil
}

// OpenRaw opens the run database without touching the schema. Migration
// commands use it so a dirty database can still be inspected and repaired.
func OpenRaw(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("runstore: open %q: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("runstore: set busy timeout: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for ad-hoc queries.
func (s *Store) DB() *sql.DB { return s.db }

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// InsertRun records the start of an inversion run. A zero StartedAt is
// filled with the current time; an empty RunID gets a fresh UUID. The
// (possibly updated) run is returned.
func (s *Store) InsertRun(run Run) (Run, error) {
	if run.RunID == "" {
		run.RunID = NewRunID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}

	const query = `
		INSERT INTO inversion_runs (run_id, source, method, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := s.db.Exec(query,
		run.RunID,
		run.Source,
		run.Method,
		run.Status,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("runstore: insert run: %w", err)
	}
	run.ID, _ = res.LastInsertId()
	return run, nil
}

// CompleteRun stores the result of a finished run, including the measured
// vector so fits can be re-examined later.
func (s *Store) CompleteRun(runID string, alpha, fitness float64, solution, synthetic, measured []float64) error {
	sol, err := json.Marshal(solution)
	if err != nil {
		return fmt.Errorf("runstore: marshal solution: %w", err)
	}
	syn, err := json.Marshal(synthetic)
	if err != nil {
		return fmt.Errorf("runstore: marshal synthetic: %w", err)
	}
	mea, err := json.Marshal(measured)
	if err != nil {
		return fmt.Errorf("runstore: marshal measured: %w", err)
	}

	const query = `
		UPDATE inversion_runs
		SET status = ?, alpha = ?, fitness = ?, solution = ?, synthetic = ?, measured = ?, completed_at = ?
		WHERE run_id = ?
	`
	res, err := s.db.Exec(query,
		StatusComplete, alpha, fitness, string(sol), string(syn), string(mea),
		time.Now().UTC().Format(time.RFC3339Nano), runID)
	if err != nil {
		return fmt.Errorf("runstore: complete run: %w", err)
	}
	return affectedOne(res, runID)
}

// FailRun marks a run as failed with the given message.
func (s *Store) FailRun(runID, message string) error {
	const query = `
		UPDATE inversion_runs
		SET status = ?, error = ?, completed_at = ?
		WHERE run_id = ?
	`
	res, err := s.db.Exec(query,
		StatusFailed, message, time.Now().UTC().Format(time.RFC3339Nano), runID)
	if err != nil {
		return fmt.Errorf("runstore: fail run: %w", err)
	}
	return affectedOne(res, runID)
}

func affectedOne(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("runstore: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}

const runColumns = `
	id, run_id, source, method, status,
	COALESCE(alpha, 0), COALESCE(fitness, 0),
	COALESCE(solution, ''), COALESCE(synthetic, ''), COALESCE(measured, ''),
	COALESCE(error, ''),
	started_at, completed_at
`

// GetRun fetches a run by its run ID.
func (s *Store) GetRun(runID string) (Run, error) {
	row := s.db.QueryRow(
		`SELECT `+runColumns+` FROM inversion_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM inversion_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("runstore: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var solution, synthetic, measured, started string
	var completed sql.NullString

	err := sc.Scan(
		&run.ID, &run.RunID, &run.Source, &run.Method, &run.Status,
		&run.Alpha, &run.Fitness, &solution, &synthetic, &measured, &run.Error,
		&started, &completed,
	)
	if err != nil {
		return Run{}, err
	}

	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("runstore: parse started_at: %w", err)
	}
	if completed.Valid {
		t, err := time.Parse(time.RFC3339Nano, completed.String)
		if err != nil {
			return Run{}, fmt.Errorf("runstore: parse completed_at: %w", err)
		}
		run.CompletedAt = &t
	}
	if solution != "" {
		if err := json.Unmarshal([]byte(solution), &run.Solution); err != nil {
			return Run{}, fmt.Errorf("runstore: decode solution: %w", err)
		}
	}
	if synthetic != "" {
		if err := json.Unmarshal([]byte(synthetic), &run.Synthetic); err != nil {
			return Run{}, fmt.Errorf("runstore: decode synthetic: %w", err)
		}
	}
	if measured != "" {
		if err := json.Unmarshal([]byte(measured), &run.Measured); err != nil {
			return Run{}, fmt.Errorf("runstore: decode measured: %w", err)
		}
	}
	return run, nil
}
