package reconciler

import (
	"context"
	"errors"
	"time"

	"dockside/internal/unit"
)

// ErrRunFailed is returned by Engine.Run when one or more sources failed to
// generate. The run still applied and promoted what was generated.
var ErrRunFailed = errors.New("reconciliation run had failed sources")

// Change classifies what a run does to a unit.
type Change string

const (
	// ChangeAdded is a unit that was not recorded before.
	ChangeAdded Change = "Added"

	// ChangeModified is a recorded unit whose descriptor changed.
	ChangeModified Change = "Modified"

	// ChangeUnchanged is a recorded unit with an identical descriptor.
	ChangeUnchanged Change = "Unchanged"

	// ChangeRemoved is a recorded unit no longer declared by any source.
	ChangeRemoved Change = "Removed"

	// ChangeRetried is a unit whose earlier teardown failed.
	ChangeRetried Change = "Retried"
)

// SourceOutcome is the generation result of one source.
type SourceOutcome struct {
	URL      string
	ID       string
	Dir      string
	Units    []unit.ID
	Err      error
	Duration time.Duration
}

// Failed reports whether the source failed to generate completely.
func (o SourceOutcome) Failed() bool { return o.Err != nil }

// UnitOutcome is the apply or teardown result of one unit.
type UnitOutcome struct {
	ID       unit.ID
	Change   Change
	Digest   string
	Err      error
	Duration time.Duration
}

// Failed reports whether the runtime call for the unit failed.
func (o UnitOutcome) Failed() bool { return o.Err != nil }

// Report describes a finished run.
type Report struct {
	RunID         string
	Started       time.Time
	Duration      time.Duration
	ResetWarnings []error
	Sources       []SourceOutcome
	Applied       []UnitOutcome
	TornDown      []UnitOutcome
	// Retired lists the units pinned for teardown retry after the run.
	Retired []unit.ID
	// Promoted is true once staging replaced current.
	Promoted bool
	// Err is the fatal error that ended the run early, if any.
	Err error
}

// FailedSources returns the sources that failed to generate.
func (r *Report) FailedSources() []SourceOutcome {
	var failed []SourceOutcome
	for _, s := range r.Sources {
		if s.Failed() {
			failed = append(failed, s)
		}
	}
	return failed
}

// Failed reports whether the run should be reported as unsuccessful.
func (r *Report) Failed() bool {
	return r.Err != nil || len(r.FailedSources()) > 0
}

// CountFailed returns how many outcomes failed.
func CountFailed(outcomes []UnitOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

// Observer is notified after every run, successful or not.
type Observer interface {
	RunFinished(ctx context.Context, report *Report) error
}

// PlannedUnit is one entry of a Plan.
type PlannedUnit struct {
	ID     unit.ID
	Change Change
	Digest string
}

// Plan describes what a run would do without doing it.
type Plan struct {
	Sources  []SourceOutcome
	Apply    []PlannedUnit
	Teardown []PlannedUnit
}
