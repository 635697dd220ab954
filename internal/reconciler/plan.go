package reconciler

import (
	"context"
	"fmt"
	"os"

	"dockside/internal/descriptor"
	"dockside/internal/state"
	"dockside/internal/unit"
)

// Plan generates all sources into a scratch snapshot and reports what a run
// would apply and tear down, without calling the runtime or touching the
// recorded snapshots. Sources are still resolved, so checkouts are updated.
func (e *Engine) Plan(ctx context.Context) (*Plan, error) {
	unlock, err := e.state.Lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	layout := e.state.Layout()
	scratch, err := os.MkdirTemp(layout.Root, ".plan-")
	if err != nil {
		return nil, fmt.Errorf("creating plan snapshot: %w", err)
	}
	defer state.EnsureAbsent(scratch)

	plan := &Plan{Sources: e.generate(ctx, scratch)}

	staged, err := state.UnitSet(scratch)
	if err != nil {
		return nil, err
	}
	baselineDir := e.state.Baseline()
	baseline, err := state.UnitSet(baselineDir)
	if err != nil {
		return nil, err
	}
	retired, err := state.UnitSet(layout.Retired())
	if err != nil {
		return nil, err
	}

	for _, id := range staged.Sorted() {
		change, digest := classify(baselineDir, scratch, id, baseline.Has(id))
		plan.Apply = append(plan.Apply, PlannedUnit{ID: id, Change: change, Digest: digest})
	}
	for _, id := range baseline.Difference(staged).Sorted() {
		plan.Teardown = append(plan.Teardown, PlannedUnit{ID: id, Change: ChangeRemoved, Digest: digestOf(baselineDir, id)})
	}
	for _, id := range retired.Difference(staged).Difference(baseline).Sorted() {
		plan.Teardown = append(plan.Teardown, PlannedUnit{ID: id, Change: ChangeRetried, Digest: digestOf(layout.Retired(), id)})
	}
	return plan, nil
}

func digestOf(dir string, id unit.ID) string {
	data, err := state.ReadUnit(dir, id)
	if err != nil {
		return ""
	}
	return descriptor.Digest(data)
}
