package reconciler

import (
	"dockside/internal/state"
	"dockside/internal/unit"
)

// UnitStatus is one recorded unit.
type UnitStatus struct {
	ID     unit.ID
	Digest string
}

// Status describes the recorded state of the host.
type Status struct {
	StateDir string
	// Snapshot is the directory the units were read from.
	Snapshot string
	// Running is true while another run holds the state lock.
	Running bool
	// Interrupted is true when no run is active and the last one left a
	// staging or previous snapshot behind. When it stopped between demotion
	// and promotion the units come from the previous snapshot.
	Interrupted bool
	Units       []UnitStatus
	// Retired lists units whose teardown failed and is retried next run.
	Retired []UnitStatus
}

// Status reads the recorded snapshots without taking the run lock. While a
// run is active the snapshots are read as they are and the status is marked
// Running instead of Interrupted.
func (e *Engine) Status() (*Status, error) {
	layout := e.state.Layout()
	running, err := e.state.Held()
	if err != nil {
		return nil, err
	}
	st := &Status{StateDir: layout.Root, Running: running}

	snapshot := e.state.Baseline()
	st.Snapshot = snapshot
	st.Interrupted = !st.Running && (snapshot != layout.Current() || e.state.Leftovers())

	units, err := state.Units(snapshot)
	if err != nil {
		return nil, err
	}
	for _, id := range units {
		st.Units = append(st.Units, UnitStatus{ID: id, Digest: digestOf(snapshot, id)})
	}

	retired, err := state.Units(layout.Retired())
	if err != nil {
		return nil, err
	}
	for _, id := range retired {
		st.Retired = append(st.Retired, UnitStatus{ID: id, Digest: digestOf(layout.Retired(), id)})
	}
	return st, nil
}
