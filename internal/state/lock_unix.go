//go:build unix

package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const (
	lockAttempts   = 3
	lockRetryDelay = 20 * time.Millisecond
)

// Lock takes the exclusive, non-blocking run lock of the state root. The
// returned function releases it. ErrLocked is returned while another
// process holds the lock.
//
// A lock that is only briefly held, as by Held, is retried a few times.
func (m *Manager) Lock() (func() error, error) {
	if err := os.MkdirAll(m.layout.Root, 0o755); err != nil {
		return nil, &TransitionError{Op: "mkdir", Path: m.layout.Root, Err: err}
	}
	f, err := os.OpenFile(m.layout.LockFile(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	for attempt := 1; ; attempt++ {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if !errors.Is(err, unix.EWOULDBLOCK) || attempt == lockAttempts {
			break
		}
		time.Sleep(lockRetryDelay)
	}
	if err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("locking %s: %w", m.layout.LockFile(), err)
	}
	return func() error {
		defer f.Close()
		return unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}, nil
}

// Held reports whether a run currently holds the lock. It never waits and
// only holds a shared lock for the duration of the check.
func (m *Manager) Held() (bool, error) {
	f, err := os.Open(m.layout.LockFile())
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("opening lock file: %w", err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return true, nil
		}
		return false, fmt.Errorf("probing %s: %w", m.layout.LockFile(), err)
	}
	return false, unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
