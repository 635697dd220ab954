package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned by Get for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, started_at, duration_ms, outcome, sources, failed_sources,
	applied, apply_failed, torn_down, teardown_failed, retired, promoted, error`

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// Get returns a single run. A unique prefix of the run id is accepted; the
// prefix is compared literally.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE substr(id, 1, length(?)) = ? LIMIT 2`, id, id)
	if err != nil {
		return Run{}, fmt.Errorf("failed to query run %s: %w", id, err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("failed to iterate runs: %w", err)
	}
	switch len(found) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return found[0], nil
	default:
		return Run{}, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// Events returns the unit events of a run ordered by phase and unit.
func (s *Store) Events(ctx context.Context, runID string) ([]UnitEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, unit, phase, change, digest, duration_ms, error
		FROM unit_events WHERE run_id = ?
		ORDER BY CASE phase WHEN 'apply' THEN 0 ELSE 1 END, unit`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events of %s: %w", runID, err)
	}
	defer rows.Close()

	var events []UnitEvent
	for rows.Next() {
		var (
			e  UnitEvent
			ms int64
		)
		if err := rows.Scan(&e.RunID, &e.Unit, &e.Phase, &e.Change, &e.Digest, &ms, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan unit event: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unit events: %w", err)
	}
	return events, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		r          Run
		startedMs  int64
		durationMs int64
	)
	err := rows.Scan(&r.ID, &startedMs, &durationMs, &r.Outcome, &r.Sources, &r.FailedSources,
		&r.Applied, &r.ApplyFailed, &r.TornDown, &r.TeardownFailed, &r.Retired, &r.Promoted, &r.Error)
	if err != nil {
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	r.Started = time.UnixMilli(startedMs)
	r.Duration = time.Duration(durationMs) * time.Millisecond
	return r, nil
}
