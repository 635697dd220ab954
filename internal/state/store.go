package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"

	"dockside/internal/unit"
)

// writeFile is a variable to allow mocking in tests
var writeFile = atomicwriter.WriteFile

func storePath(dir string, id unit.ID) string {
	return filepath.Join(dir, string(id))
}

// WriteUnit creates the store for id inside the snapshot dir and persists
// the descriptor into it. The store directory must not exist yet: a second
// write for the same id fails with *DuplicateUnitError instead of
// overwriting the first unit. When the descriptor cannot be written the
// store is removed again.
func WriteUnit(dir string, id unit.ID, descriptor []byte) error {
	path := storePath(dir, id)
	if err := os.Mkdir(path, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &DuplicateUnitError{ID: string(id), Path: path}
		}
		return &TransitionError{Op: "mkdir", Path: path, Err: err}
	}
	descriptorPath := unit.DescriptorPath(dir, id)
	if err := writeFile(descriptorPath, descriptor, 0o644); err != nil {
		// A store without a descriptor must not be listed as a unit.
		if rmErr := EnsureAbsent(path); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		return &TransitionError{Op: "write", Path: descriptorPath, Err: err}
	}
	return nil
}

// ReadUnit returns the persisted descriptor of id in the snapshot dir.
func ReadUnit(dir string, id unit.ID) ([]byte, error) {
	data, err := os.ReadFile(unit.DescriptorPath(dir, id))
	if err != nil {
		return nil, fmt.Errorf("reading descriptor of %s: %w", id, err)
	}
	return data, nil
}

// Units lists the unit IDs stored in the snapshot dir, sorted. A missing
// snapshot holds no units.
func Units(dir string) ([]unit.ID, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing snapshot %s: %w", dir, err)
	}
	ids := make([]unit.ID, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, unit.ID(entry.Name()))
		}
	}
	unit.SortIDs(ids)
	return ids, nil
}

// UnitSet is Units as a set.
func UnitSet(dir string) (unit.Set, error) {
	ids, err := Units(dir)
	if err != nil {
		return nil, err
	}
	return unit.NewSet(ids...), nil
}

// StorePath returns the directory of the unit store for id in dir.
func StorePath(dir string, id unit.ID) string {
	return storePath(dir, id)
}
