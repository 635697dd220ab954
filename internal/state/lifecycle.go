package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"dockside/internal/unit"
	"dockside/pkg/logging"
)

const subsystem = "State"

// Manager performs the snapshot transitions of one state root.
// It holds no in-memory state; every method works from the directories.
type Manager struct {
	layout Layout
}

// NewManager creates a manager for the given state root.
func NewManager(root string) *Manager {
	return &Manager{layout: Layout{Root: root}}
}

// Layout returns the paths managed by m.
func (m *Manager) Layout() Layout {
	return m.layout
}

// EnsureAbsent removes path and everything below it. A path that does not
// exist is already absent and is not an error.
func EnsureAbsent(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return &TransitionError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// exists reports whether path exists. Errors other than non-existence are
// returned.
func exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// moveIfPresent renames from to to. A missing source is not an error and
// reports moved=false.
func moveIfPresent(from, to string) (bool, error) {
	present, err := exists(from)
	if err != nil {
		return false, &TransitionError{Op: "stat", Path: from, Err: err}
	}
	if !present {
		return false, nil
	}
	if err := os.Rename(from, to); err != nil {
		return false, &TransitionError{Op: "rename", Path: from + " -> " + to, Err: err}
	}
	return true, nil
}

// Reset prepares the layout for a new run: it restores an interrupted
// run's previous snapshot, drops a stale previous snapshot, demotes current
// to previous, drops a stale staging snapshot and creates an empty one.
//
// Every step except the creation of staging is best effort; its failure is
// logged, returned in warnings and does not stop the following steps. The
// returned error is non-nil only when staging could not be created.
func (m *Manager) Reset() (warnings []error, err error) {
	l := m.layout

	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		return nil, &TransitionError{Op: "mkdir", Path: l.Root, Err: err}
	}

	warn := func(err error) {
		if err == nil {
			return
		}
		logging.Warn(subsystem, "Reset step failed, continuing: %v", err)
		warnings = append(warnings, err)
	}

	// current missing while previous exists: the last run stopped after
	// demotion and before promotion. previous is the last known-good state.
	currentPresent, statErr := exists(l.Current())
	if statErr != nil {
		warn(&TransitionError{Op: "stat", Path: l.Current(), Err: statErr})
	} else if !currentPresent {
		restored, err := moveIfPresent(l.Previous(), l.Current())
		warn(err)
		if restored {
			logging.Warn(subsystem, "Restored interrupted run's previous snapshot to %s", l.Current())
		}
	}

	warn(EnsureAbsent(l.Previous()))

	demoted, err := moveIfPresent(l.Current(), l.Previous())
	warn(err)
	if demoted {
		logging.Debug(subsystem, "Demoted %s to %s", l.Current(), l.Previous())
	} else if err == nil {
		logging.Info(subsystem, "No current snapshot at %s, starting from empty state", l.Current())
	}

	warn(EnsureAbsent(l.Staging()))

	if err := os.Mkdir(l.Staging(), 0o755); err != nil {
		return warnings, &TransitionError{Op: "mkdir", Path: l.Staging(), Err: err}
	}
	return warnings, nil
}

// Promote atomically replaces current with staging and then discards
// previous. Only the rename is fatal; a previous snapshot that cannot be
// removed is left for the next Reset.
func (m *Manager) Promote() error {
	l := m.layout
	if err := os.Rename(l.Staging(), l.Current()); err != nil {
		return &TransitionError{Op: "promote", Path: l.Staging() + " -> " + l.Current(), Err: err}
	}
	logging.Info(subsystem, "Promoted %s to %s", l.Staging(), l.Current())

	if err := EnsureAbsent(l.Previous()); err != nil {
		logging.Warn(subsystem, "Could not discard previous snapshot, it will be removed on the next run: %v", err)
	}
	return nil
}

// Retire pins a unit store whose teardown failed so the next run retries
// it. The store is moved out of dir into the retired directory; retiring a
// store that already lives there is a no-op.
func (m *Manager) Retire(dir string, id unit.ID) error {
	l := m.layout
	if dir == l.Retired() {
		return nil
	}
	if err := os.MkdirAll(l.Retired(), 0o755); err != nil {
		return &TransitionError{Op: "mkdir", Path: l.Retired(), Err: err}
	}
	target := storePath(l.Retired(), id)
	if err := EnsureAbsent(target); err != nil {
		return err
	}
	moved, err := moveIfPresent(storePath(dir, id), target)
	if err != nil {
		return err
	}
	if !moved {
		return &TransitionError{Op: "retire", Path: storePath(dir, id), Err: fs.ErrNotExist}
	}
	return nil
}

// Forget drops a unit from the retired directory.
func (m *Manager) Forget(id unit.ID) error {
	return EnsureAbsent(storePath(m.layout.Retired(), id))
}

// String describes the layout for log messages.
func (m *Manager) String() string {
	return fmt.Sprintf("state root %s", m.layout.Root)
}

// Leftovers reports whether a staging or previous snapshot exists. Outside
// a run that means the last run did not finish.
func (m *Manager) Leftovers() bool {
	for _, path := range []string{m.layout.Staging(), m.layout.Previous()} {
		if present, err := exists(path); err != nil || present {
			return true
		}
	}
	return false
}

// Baseline returns the snapshot the next run diffs against: current, or
// previous when an interrupted run left no current snapshot behind.
func (m *Manager) Baseline() string {
	l := m.layout
	if present, err := exists(l.Current()); err == nil && !present {
		if present, err := exists(l.Previous()); err == nil && present {
			return l.Previous()
		}
	}
	return l.Current()
}
