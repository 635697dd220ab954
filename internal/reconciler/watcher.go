package reconciler

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"dockside/pkg/logging"
)

const watcherSubsystem = "Watcher"

// Trigger asks the watch loop for a reconciliation run.
type Trigger struct {
	// Reason is a short human-readable cause.
	Reason string
	// Path is the changed file, if the trigger came from the filesystem.
	Path string
	// Timestamp is when the trigger was emitted.
	Timestamp time.Time
}

// Watcher emits a debounced Trigger whenever a watched file or a file in a
// watched directory changes.
//
// Files are watched through their parent directory, so editors that replace
// a file by renaming a temporary one are still noticed.
type Watcher struct {
	mu sync.Mutex

	// debounceInterval is how long to wait for additional changes
	debounceInterval time.Duration

	files map[string]bool
	dirs  map[string]bool

	watcher *fsnotify.Watcher
	pending *time.Timer
	last    Trigger

	stopCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher. A zero debounceInterval uses 500ms.
func NewWatcher(debounceInterval time.Duration) *Watcher {
	if debounceInterval == 0 {
		debounceInterval = 500 * time.Millisecond
	}
	return &Watcher{
		debounceInterval: debounceInterval,
		files:            make(map[string]bool),
		dirs:             make(map[string]bool),
		stopCh:           make(chan struct{}),
	}
}

// AddFile watches a single file.
func (w *Watcher) AddFile(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[filepath.Clean(path)] = true
}

// AddDir watches every file directly inside dir.
func (w *Watcher) AddDir(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirs[filepath.Clean(dir)] = true
}

// Start begins watching and sends triggers to the channel until ctx is done
// or Stop is called.
func (w *Watcher) Start(ctx context.Context, triggers chan<- Trigger) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.running = true
	w.stopCh = make(chan struct{})

	watched := w.watchedDirs(w.dirs)
	w.mu.Unlock()

	for dir := range watched {
		addWatch(watcher, dir)
	}

	go w.processEvents(ctx, triggers)
	return nil
}

// SetDirs replaces the watched directories. On a running watcher the
// filesystem watches are updated in place; watched files are kept.
func (w *Watcher) SetDirs(dirs []string) {
	next := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		next[filepath.Clean(dir)] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	before := w.watchedDirs(w.dirs)
	w.dirs = next
	if !w.running {
		return
	}
	after := w.watchedDirs(next)
	for dir := range before {
		if !after[dir] {
			if err := w.watcher.Remove(dir); err != nil {
				logging.Debug(watcherSubsystem, "Failed to stop watching %s: %v", dir, err)
			}
		}
	}
	for dir := range after {
		if !before[dir] {
			addWatch(w.watcher, dir)
		}
	}
}

// watchedDirs returns the directories to register for dirs plus the parent
// directories of the watched files. w.mu must be held.
func (w *Watcher) watchedDirs(dirs map[string]bool) map[string]bool {
	watched := make(map[string]bool, len(dirs)+len(w.files))
	for file := range w.files {
		watched[filepath.Dir(file)] = true
	}
	for dir := range dirs {
		watched[dir] = true
	}
	return watched
}

func addWatch(watcher *fsnotify.Watcher, dir string) {
	if err := watcher.Add(dir); err != nil {
		// Continue with the other paths
		logging.Warn(watcherSubsystem, "Failed to watch %s: %v", dir, err)
		return
	}
	logging.Debug(watcherSubsystem, "Watching directory: %s", dir)
}

func (w *Watcher) processEvents(ctx context.Context, triggers chan<- Trigger) {
	w.mu.Lock()
	watcher, stopCh := w.watcher, w.stopCh
	w.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return

		case <-stopCh:
			w.cancelPending()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event, triggers)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error(watcherSubsystem, err, "Filesystem watcher error")
		}
	}
}

func (w *Watcher) handleFsEvent(event fsnotify.Event, triggers chan<- Trigger) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	name := filepath.Clean(event.Name)
	w.mu.Lock()
	relevant := w.files[name] || w.dirs[filepath.Dir(name)]
	w.mu.Unlock()
	if !relevant {
		return
	}

	w.debounce(Trigger{Reason: "changed " + event.Op.String(), Path: name, Timestamp: time.Now()}, triggers)
}

// debounce collapses rapid successive changes into one trigger.
func (w *Watcher) debounce(trigger Trigger, triggers chan<- Trigger) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.last = trigger
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounceInterval, func() {
		w.mu.Lock()
		t := w.last
		w.pending = nil
		w.mu.Unlock()

		select {
		case triggers <- t:
			logging.Debug(watcherSubsystem, "Emitted trigger for %s", t.Path)
		default:
			// A run is already queued; it will see this change too.
			logging.Debug(watcherSubsystem, "Run already pending, coalescing change of %s", t.Path)
		}
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			logging.Error(watcherSubsystem, err, "Error closing filesystem watcher")
		}
		w.watcher = nil
	}
	return nil
}
