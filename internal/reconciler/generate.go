package reconciler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"dockside/internal/config"
	"dockside/internal/state"
	"dockside/internal/unit"
	"dockside/pkg/logging"
)

// generate populates dir with one store per unit of every source. Sources
// are generated concurrently and independently.
func (e *Engine) generate(ctx context.Context, dir string) []SourceOutcome {
	outcomes := make([]SourceOutcome, len(e.opts.Sources))
	fanOut(len(e.opts.Sources), 0, func(i int) {
		outcomes[i] = e.generateSource(ctx, dir, e.opts.Sources[i])
	})

	for _, o := range outcomes {
		if o.Failed() {
			logging.Error(subsystem, o.Err, "Source %s (%s) failed to generate", o.URL, o.ID)
			logging.ErrorChain(subsystem, o.Err)
		} else {
			logging.Info(subsystem, "Source %s (%s) generated %d units", o.URL, o.ID, len(o.Units))
		}
	}
	return outcomes
}

func (e *Engine) generateSource(ctx context.Context, dir string, src config.Source) SourceOutcome {
	start := e.now()
	outcome := SourceOutcome{URL: src.URL, ID: unit.SourceID(src.URL)}
	defer func() { outcome.Duration = e.now().Sub(start) }()

	checkout, err := e.resolver.Resolve(ctx, src)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Dir = checkout

	definitionsDir := filepath.Join(checkout, e.opts.DefinitionsDir)
	entries, err := os.ReadDir(definitionsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			outcome.Err = fmt.Errorf("no %s directory found in %s", e.opts.DefinitionsDir, src.URL)
		} else {
			outcome.Err = fmt.Errorf("listing unit definitions of %s: %w", src.URL, err)
		}
		return outcome
	}

	// entries are sorted by file name, so of two definitions naming the same
	// unit the first one in that order is generated and the other fails.
	var (
		files []string
		errs  []error
		seen  = make(map[string]string)
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := unit.NameFromFile(entry.Name())
		if !ok {
			continue
		}
		if first, dup := seen[name]; dup {
			id, _ := unit.NewID(name, outcome.ID)
			errs = append(errs, fmt.Errorf("%s declares the same unit as %s: %w", entry.Name(), first,
				&state.DuplicateUnitError{ID: string(id), Path: state.StorePath(dir, id)}))
			continue
		}
		seen[name] = entry.Name()
		files = append(files, entry.Name())
	}
	if len(files) == 0 {
		logging.Warn(subsystem, "Source %s declares no units", src.URL)
	}

	var (
		mu      sync.Mutex
		written []unit.ID
	)
	fanOut(len(files), e.opts.Concurrency, func(i int) {
		id, err := e.generateUnit(ctx, dir, filepath.Join(definitionsDir, files[i]), outcome.ID)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, err)
			return
		}
		written = append(written, id)
	})

	unit.SortIDs(written)
	outcome.Units = written
	outcome.Err = errors.Join(errs...)
	return outcome
}

// generateUnit loads one definition and persists it as a unit store.
func (e *Engine) generateUnit(ctx context.Context, dir, path, sourceID string) (unit.ID, error) {
	name, _ := unit.NameFromFile(path)
	id, err := unit.NewID(name, sourceID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	d, err := e.loader.Load(ctx, path)
	if err != nil {
		return "", err
	}
	if err := state.WriteUnit(dir, id, d); err != nil {
		return "", err
	}
	logging.Debug(subsystem, "Generated %s from %s", id, path)
	return id, nil
}
