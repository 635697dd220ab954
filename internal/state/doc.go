// Package state owns the durable snapshot directories of a host and the
// transitions between them.
//
// A state root holds three snapshot roles, each a directory of unit stores
// (one subdirectory per unit ID containing the persisted descriptor):
//
//   - state      the current snapshot, last promoted desired state
//   - state.new  the staging snapshot being generated by the active run
//   - state.old  the previous snapshot, displaced by the active run
//
// plus state.retired, which pins units whose teardown failed so that the
// next run retries them, and sources/, which holds source checkouts.
//
// The current snapshot is only ever replaced by a single rename of the
// staging directory. Reset brings any leftover layout from an interrupted
// run back to a clean starting point: if the current snapshot is missing
// while a previous one exists, the run was interrupted between demotion and
// promotion and the previous snapshot is restored first.
//
// A run must hold the state lock for its whole duration; see Lock.
package state
