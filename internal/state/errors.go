package state

import (
	"errors"
	"fmt"
)

// ErrLocked is returned by Lock when another run holds the state lock.
var ErrLocked = errors.New("another reconciliation run holds the state lock")

// TransitionError reports a failed filesystem mutation of the state layout.
type TransitionError struct {
	Op   string
	Path string
	Err  error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("state %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

// DuplicateUnitError is returned when a unit store already exists in a
// snapshot, meaning two definitions resolved to the same unit ID.
type DuplicateUnitError struct {
	ID   string
	Path string
}

func (e *DuplicateUnitError) Error() string {
	return fmt.Sprintf("duplicate unit %s: store %s already exists", e.ID, e.Path)
}
