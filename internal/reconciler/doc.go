// Package reconciler implements the staged reconciliation engine.
//
// # Overview
//
// A run reconciles the units declared by all configured sources against the
// units recorded on the host. It never mutates the current snapshot in
// place; instead it builds a complete new snapshot and promotes it with a
// single rename:
//
//  1. Reset: demote current to previous and create an empty staging
//     snapshot (see package state).
//  2. Generate: resolve every source concurrently, load each of its unit
//     definitions concurrently and persist one store per unit into staging.
//     A failing source is recorded and does not stop the others.
//  3. Apply: bring up every unit in staging, concurrently, each with its own
//     timeout. A failing unit is logged and does not stop the others.
//  4. Teardown: stop every unit that is in previous (or pinned in retired)
//     but no longer in staging. A failing teardown pins the unit in retired
//     so the next run retries it.
//  5. Promote: rename staging to current and discard previous.
//
// Apply always completes before teardown starts, so a unit replaced in place
// is never stopped without being brought up again.
//
// The run reports failure (ErrRunFailed) when any source failed to generate,
// even though the rollout of everything that was generated went ahead.
// Failures of the state transitions themselves are returned as errors and
// leave the previous snapshot reachable for the next run.
//
// # Watching
//
// Watcher turns filesystem changes to the configuration file and to local
// sources into debounced triggers for the watch loop.
//
// # Metrics
//
// TextfileMetrics writes the outcome of each run in the Prometheus text
// format for the node exporter textfile collector.
package reconciler
