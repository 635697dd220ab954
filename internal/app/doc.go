// Package app provides application bootstrap and lifecycle management for
// dockside.
//
// It sits between the cobra commands and the internal packages: it
// configures logging, loads the configuration, wires the reconciliation
// engine with its collaborators and exposes one method per command.
//
// # Components
//
//   - Config (config.go): runtime settings taken from command line flags
//   - Bootstrap (bootstrap.go): Application construction and the one-shot
//     operations (Run, Plan, Status, History)
//   - Services (services.go): construction of the state manager, source
//     resolver, definition loader, container runtime and run observers
//   - Watch (watch.go): the long-running mode that reconciles on an
//     interval and on file changes, with systemd readiness and watchdog
//     notifications
//
// # Configuration Loading
//
// When Config.DocksideConfig is already populated (tests, embedding) it is
// used as is. Otherwise the file at Config.ConfigPath, or the default path
// ~/.config/dockside/config.yaml, is loaded over the built-in defaults and
// the SOURCE_REPOS environment variable.
//
// # Logging
//
// Logs go to stderr so that command output on stdout stays machine
// readable. --log-format json switches to structured JSON lines, which is
// the recommended setting under systemd or in containers.
package app
