//go:build !unix

package state

import "dockside/pkg/logging"

// Lock is a no-op on platforms without flock.
func (m *Manager) Lock() (func() error, error) {
	logging.Warn(subsystem, "Run lock is not supported on this platform")
	return func() error { return nil }, nil
}

// Held is always false on platforms without flock.
func (m *Manager) Held() (bool, error) {
	return false, nil
}
