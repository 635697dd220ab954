package reconciler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"dockside/internal/containerizer"
	"dockside/internal/state"
	"dockside/internal/unit"
	"dockside/pkg/logging"
)

// fanOut calls fn for 0..n-1 concurrently and waits for all calls. A
// positive limit bounds the number of concurrent calls. fn reports its own
// failures; one call never cancels another.
func fanOut(n, limit int, fn func(i int)) {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

// apply brings up every staged unit.
func (e *Engine) apply(ctx context.Context, staged, previous unit.Set) []UnitOutcome {
	layout := e.state.Layout()
	ids := staged.Sorted()
	outcomes := make([]UnitOutcome, len(ids))

	fanOut(len(ids), e.opts.Concurrency, func(i int) {
		id := ids[i]
		change, digest := classify(layout.Previous(), layout.Staging(), id, previous.Has(id))
		outcomes[i] = UnitOutcome{ID: id, Change: change, Digest: digest}

		start := e.now()
		uctx, cancel := e.unitContext(ctx)
		defer cancel()
		err := e.runtime.Apply(uctx, containerizer.Target{ID: id, Dir: state.StorePath(layout.Staging(), id)})
		outcomes[i].Duration = e.now().Sub(start)
		if err != nil {
			outcomes[i].Err = err
			logging.Error(subsystem, err, "Failed to bring up %s", id)
			logging.ErrorChain(subsystem, err)
			return
		}
		logging.Info(subsystem, "Brought up %s (%s)", id, change)
	})
	return outcomes
}

// teardownTarget is a unit to stop and the snapshot directory holding its
// store.
type teardownTarget struct {
	id     unit.ID
	dir    string
	change Change
}

// teardownTargets returns the units recorded in previous or pinned in
// retired that are no longer staged.
func teardownTargets(layout state.Layout, staged, previous, retired unit.Set) []teardownTarget {
	var targets []teardownTarget
	for _, id := range previous.Difference(staged).Sorted() {
		targets = append(targets, teardownTarget{id: id, dir: layout.Previous(), change: ChangeRemoved})
	}
	for _, id := range retired.Difference(staged).Difference(previous).Sorted() {
		targets = append(targets, teardownTarget{id: id, dir: layout.Retired(), change: ChangeRetried})
	}
	return targets
}

// teardown stops every target. A failed teardown is pinned in the retired
// directory; a successful one is unpinned.
func (e *Engine) teardown(ctx context.Context, targets []teardownTarget) []UnitOutcome {
	outcomes := make([]UnitOutcome, len(targets))

	fanOut(len(targets), e.opts.Concurrency, func(i int) {
		t := targets[i]
		outcomes[i] = UnitOutcome{ID: t.id, Change: t.change}

		start := e.now()
		uctx, cancel := e.unitContext(ctx)
		defer cancel()
		err := e.runtime.Teardown(uctx, containerizer.Target{ID: t.id, Dir: state.StorePath(t.dir, t.id)})
		outcomes[i].Duration = e.now().Sub(start)
		if err != nil {
			outcomes[i].Err = err
			logging.Error(subsystem, err, "Failed to tear down %s, it will be retried on the next run", t.id)
			logging.ErrorChain(subsystem, err)
			if err := e.state.Retire(t.dir, t.id); err != nil {
				logging.Error(subsystem, err, "Could not pin %s for retry", t.id)
			}
			return
		}
		logging.Info(subsystem, "Tore down %s", t.id)
		if err := e.state.Forget(t.id); err != nil {
			logging.Warn(subsystem, "Could not unpin %s: %v", t.id, err)
		}
	})
	return outcomes
}
