// Package history keeps a durable record of reconciliation runs in a local
// SQLite database.
//
// Every finished run is stored with its counters and one event per applied
// or torn down unit. The Store implements reconciler.Observer, so it is
// attached to the engine like any other observer and is read back by the
// history command.
package history
