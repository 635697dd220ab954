package config

import "time"

const (
	// DefaultStateDir is where state snapshots and checkouts live.
	DefaultStateDir = "/var/lib/dockside"

	// DefaultDefinitionsDir is the unit-definition directory in a source.
	DefaultDefinitionsDir = "services"

	// DefaultBranch is the branch tracked when a source names none.
	DefaultBranch = "main"

	// DefaultUnitTimeout bounds a single compose call.
	DefaultUnitTimeout = 10 * time.Minute

	// DefaultHistoryFile is the history database name below the state dir.
	DefaultHistoryFile = "history.db"

	// DefaultHistoryRetain is how many runs the history keeps.
	DefaultHistoryRetain = 1000

	// DefaultWatchInterval is the period of runs in watch mode.
	DefaultWatchInterval = 5 * time.Minute

	// DefaultWatchDebounce is the quiet period before a change triggers a run.
	DefaultWatchDebounce = 2 * time.Second
)

// GetDefaultConfig returns the configuration used for keys missing from the
// file.
func GetDefaultConfig() DocksideConfig {
	return DocksideConfig{
		StateDir:       DefaultStateDir,
		DefinitionsDir: DefaultDefinitionsDir,
		UnitTimeout:    DefaultUnitTimeout,
		Compose: ComposeConfig{
			Runtime: "docker",
			Binary:  "docker",
			Pull:    true,
		},
		History: HistoryConfig{
			Enabled: true,
			Retain:  DefaultHistoryRetain,
		},
		Watch: WatchConfig{
			Interval: DefaultWatchInterval,
			Debounce: DefaultWatchDebounce,
		},
	}
}
