// Package logging provides the subsystem-tagged logging used throughout
// dockside.
//
// It is a thin layer over the standard slog package: messages are formatted
// printf-style, tagged with the subsystem that emitted them and, while a
// reconciliation run is active, with the run identifier.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Engine", "Generated %d units", n)
//	logging.Debug("State", "Promoting %s", path)
//	logging.Warn("Engine", "Source %s produced no units", id)
//	logging.Error("Compose", err, "Failed to bring up %s", unitID)
//
// Hosts that forward logs to an aggregator can select JSON output:
//
//	logging.Init(logging.LevelInfo, os.Stderr, logging.FormatJSON)
//
// # Error detail
//
// Error records carry the error message. With debug enabled, ErrorChain
// additionally emits one record per wrapped cause so the failing command,
// path, or unit can be traced through the layers that wrapped it.
//
// # Thread Safety
//
// All functions are safe for concurrent use. The reconciliation engine logs
// from many goroutines at once during fan-out.
package logging
