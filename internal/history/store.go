package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"dockside/internal/reconciler"
)

//go:embed schema.sql
var schemaSQL string

// Outcomes of a recorded run.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeAborted = "aborted"
)

// Store records runs in SQLite.
type Store struct {
	db     *sql.DB
	retain int
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Outcome summarizes a report as one of the Outcome constants.
func Outcome(report *reconciler.Report) string {
	switch {
	case report.Err != nil:
		return OutcomeAborted
	case report.Failed():
		return OutcomeFailed
	default:
		return OutcomeSuccess
	}
}

// Record stores a finished run and its unit events in one transaction.
func (s *Store) Record(ctx context.Context, report *reconciler.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	errText := ""
	if report.Err != nil {
		errText = report.Err.Error()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, duration_ms, outcome, sources, failed_sources,
			applied, apply_failed, torn_down, teardown_failed, retired, promoted, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.Started.UnixMilli(),
		report.Duration.Milliseconds(),
		Outcome(report),
		len(report.Sources),
		len(report.FailedSources()),
		len(report.Applied),
		reconciler.CountFailed(report.Applied),
		len(report.TornDown),
		reconciler.CountFailed(report.TornDown),
		len(report.Retired),
		report.Promoted,
		errText,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", report.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO unit_events (run_id, unit, phase, change, digest, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare unit event insert: %w", err)
	}
	defer stmt.Close()

	insert := func(phase string, outcomes []reconciler.UnitOutcome) error {
		for _, o := range outcomes {
			errText := ""
			if o.Err != nil {
				errText = o.Err.Error()
			}
			if _, err := stmt.ExecContext(ctx, report.RunID, string(o.ID), phase, string(o.Change), o.Digest, o.Duration.Milliseconds(), errText); err != nil {
				return fmt.Errorf("failed to insert %s event of %s: %w", phase, o.ID, err)
			}
		}
		return nil
	}
	if err := insert(PhaseApply, report.Applied); err != nil {
		return err
	}
	if err := insert(PhaseTeardown, report.TornDown); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", report.RunID, err)
	}
	return nil
}

// SetRetention makes RunFinished prune all but the newest keep runs.
func (s *Store) SetRetention(keep int) {
	s.retain = keep
}

// RunFinished records the run and applies the retention. It lets a Store
// observe an engine.
func (s *Store) RunFinished(ctx context.Context, report *reconciler.Report) error {
	if err := s.Record(ctx, report); err != nil {
		return err
	}
	_, err := s.Prune(ctx, s.retain)
	return err
}

// Prune deletes all but the newest keep runs. keep <= 0 keeps everything.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

// Phases of a unit event.
const (
	PhaseApply    = "apply"
	PhaseTeardown = "teardown"
)

// Run is one recorded reconciliation.
type Run struct {
	ID             string        `json:"id"`
	Started        time.Time     `json:"started"`
	Duration       time.Duration `json:"duration"`
	Outcome        string        `json:"outcome"`
	Sources        int           `json:"sources"`
	FailedSources  int           `json:"failedSources"`
	Applied        int           `json:"applied"`
	ApplyFailed    int           `json:"applyFailed"`
	TornDown       int           `json:"tornDown"`
	TeardownFailed int           `json:"teardownFailed"`
	Retired        int           `json:"retired"`
	Promoted       bool          `json:"promoted"`
	Error          string        `json:"error,omitempty"`
}

// UnitEvent is the apply or teardown of one unit within a run.
type UnitEvent struct {
	RunID    string        `json:"runId"`
	Unit     string        `json:"unit"`
	Phase    string        `json:"phase"`
	Change   string        `json:"change"`
	Digest   string        `json:"digest,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}
