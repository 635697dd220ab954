package containerizer

import (
	"context"
	"fmt"

	"dockside/internal/unit"
)

// Runtime defines the operations the reconciliation engine needs from the
// container runtime.
type Runtime interface {
	// Apply ensures the unit is running with its persisted descriptor
	Apply(ctx context.Context, target Target) error

	// Teardown stops and removes the unit
	Teardown(ctx context.Context, target Target) error
}

// Target identifies a unit and the store holding its descriptor.
type Target struct {
	ID  unit.ID
	Dir string
}

// ApplyError reports a unit that could not be brought up.
type ApplyError struct {
	Unit unit.ID
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("applying unit %s: %v", e.Unit, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// TeardownError reports a unit that could not be stopped and removed.
type TeardownError struct {
	Unit unit.ID
	Err  error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("tearing down unit %s: %v", e.Unit, e.Err)
}

func (e *TeardownError) Unwrap() error { return e.Err }
