package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dockside/internal/config"
	"dockside/internal/containerizer"
	"dockside/internal/descriptor"
	"dockside/internal/source"
	"dockside/internal/state"
	"dockside/internal/unit"
	"dockside/pkg/logging"
)

const subsystem = "Engine"

// Options configures an Engine.
type Options struct {
	Sources        []config.Source
	DefinitionsDir string
	// UnitTimeout bounds each runtime call. Zero disables the timeout.
	UnitTimeout time.Duration
	// Concurrency limits each fan-out. Zero means unbounded.
	Concurrency int
}

// OptionsFromConfig derives engine options from the configuration.
func OptionsFromConfig(cfg config.DocksideConfig) Options {
	return Options{
		Sources:        cfg.Sources,
		DefinitionsDir: cfg.DefinitionsDir,
		UnitTimeout:    cfg.UnitTimeout,
		Concurrency:    cfg.Concurrency,
	}
}

// Engine runs staged reconciliations of one host.
type Engine struct {
	opts      Options
	state     *state.Manager
	resolver  source.Resolver
	loader    descriptor.Loader
	runtime   containerizer.Runtime
	observers []Observer
	now       func() time.Time
}

// NewEngine wires an engine from its collaborators.
func NewEngine(opts Options, st *state.Manager, resolver source.Resolver, loader descriptor.Loader, runtime containerizer.Runtime, observers ...Observer) *Engine {
	if opts.DefinitionsDir == "" {
		opts.DefinitionsDir = config.DefaultDefinitionsDir
	}
	return &Engine{
		opts:      opts,
		state:     st,
		resolver:  resolver,
		loader:    loader,
		runtime:   runtime,
		observers: observers,
		now:       time.Now,
	}
}

// Run performs one reconciliation. It holds the state lock for its whole
// duration and returns state.ErrLocked if another run is active.
//
// The report is returned whenever the run started. The error is
// ErrRunFailed (wrapped) when sources failed, or the fatal error that
// stopped the run before promotion.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	unlock, err := e.state.Lock()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(); err != nil {
			logging.Warn(subsystem, "Releasing state lock: %v", err)
		}
	}()

	report := &Report{RunID: uuid.NewString(), Started: e.now()}
	logging.SetRunID(report.RunID)
	defer logging.SetRunID("")
	logging.Info(subsystem, "Starting reconciliation of %d sources", len(e.opts.Sources))

	err = e.run(ctx, report)
	report.Err = err
	report.Duration = e.now().Sub(report.Started)
	if retired, listErr := state.Units(e.state.Layout().Retired()); listErr == nil {
		report.Retired = retired
	}
	e.notify(context.WithoutCancel(ctx), report)

	if err != nil {
		logging.Error(subsystem, err, "Reconciliation stopped before promotion")
		logging.ErrorChain(subsystem, err)
		return report, err
	}
	if failed := report.FailedSources(); len(failed) > 0 {
		logging.Warn(subsystem, "Reconciliation finished with %d failed sources in %s", len(failed), report.Duration)
		return report, fmt.Errorf("%w: %d of %d sources failed", ErrRunFailed, len(failed), len(report.Sources))
	}
	logging.Info(subsystem, "Reconciliation finished in %s: %d applied (%d failed), %d torn down (%d failed)",
		report.Duration, len(report.Applied), CountFailed(report.Applied), len(report.TornDown), CountFailed(report.TornDown))
	return report, nil
}

func (e *Engine) run(ctx context.Context, report *Report) error {
	layout := e.state.Layout()

	warnings, err := e.state.Reset()
	report.ResetWarnings = warnings
	if err != nil {
		return err
	}

	report.Sources = e.generate(ctx, layout.Staging())
	if err := interrupted(ctx, "generation"); err != nil {
		return err
	}

	staged, err := state.UnitSet(layout.Staging())
	if err != nil {
		return err
	}
	previous, err := state.UnitSet(layout.Previous())
	if err != nil {
		return err
	}
	retired, err := state.UnitSet(layout.Retired())
	if err != nil {
		return err
	}

	report.Applied = e.apply(ctx, staged, previous)
	if err := interrupted(ctx, "apply"); err != nil {
		return err
	}
	for id := range staged {
		if retired.Has(id) {
			// Declared again and just applied; no teardown pending anymore.
			if err := e.state.Forget(id); err != nil {
				logging.Warn(subsystem, "Could not unpin %s: %v", id, err)
			}
		}
	}

	report.TornDown = e.teardown(ctx, teardownTargets(layout, staged, previous, retired))
	if err := interrupted(ctx, "teardown"); err != nil {
		return err
	}

	if err := e.state.Promote(); err != nil {
		return err
	}
	report.Promoted = true
	return nil
}

// interrupted reports a cancelled run. The staging snapshot is incomplete
// then and must not be promoted; the next Reset restores previous.
func interrupted(ctx context.Context, phase string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted after %s: %w", phase, err)
	}
	return nil
}

func (e *Engine) notify(ctx context.Context, report *Report) {
	for _, o := range e.observers {
		if err := o.RunFinished(ctx, report); err != nil {
			logging.Warn(subsystem, "Run observer %T failed: %v", o, err)
		}
	}
}

// unitContext derives the context of a single runtime call.
func (e *Engine) unitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.UnitTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.opts.UnitTimeout)
}

// classify compares a staged descriptor with its previous version.
func classify(previousDir, stagingDir string, id unit.ID, inPrevious bool) (Change, string) {
	next, err := state.ReadUnit(stagingDir, id)
	if err != nil {
		return ChangeAdded, ""
	}
	digest := descriptor.Digest(next)
	if !inPrevious {
		return ChangeAdded, digest
	}
	prev, err := state.ReadUnit(previousDir, id)
	if err != nil || descriptor.Digest(prev) != digest {
		return ChangeModified, digest
	}
	return ChangeUnchanged, digest
}
