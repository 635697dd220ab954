package state

import "path/filepath"

const (
	currentDir  = "state"
	stagingDir  = "state.new"
	previousDir = "state.old"
	retiredDir  = "state.retired"
	sourcesDir  = "sources"
	lockFile    = "dockside.lock"
)

// Layout resolves the fixed paths below a state root.
type Layout struct {
	Root string
}

func (l Layout) Current() string  { return filepath.Join(l.Root, currentDir) }
func (l Layout) Staging() string  { return filepath.Join(l.Root, stagingDir) }
func (l Layout) Previous() string { return filepath.Join(l.Root, previousDir) }
func (l Layout) Retired() string  { return filepath.Join(l.Root, retiredDir) }
func (l Layout) Sources() string  { return filepath.Join(l.Root, sourcesDir) }
func (l Layout) LockFile() string { return filepath.Join(l.Root, lockFile) }
