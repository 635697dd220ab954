package app

import (
	"fmt"

	"dockside/internal/config"
	"dockside/internal/containerizer"
	"dockside/internal/descriptor"
	"dockside/internal/history"
	"dockside/internal/reconciler"
	"dockside/internal/shell"
	"dockside/internal/source"
	"dockside/internal/state"
	"dockside/pkg/logging"
)

// Services holds the initialized components used by the application.
type Services struct {
	// State owns the snapshot directories and the run lock.
	State *state.Manager

	// Engine performs runs and plans.
	Engine *reconciler.Engine

	// Metrics records every run and writes the Prometheus textfile when
	// configured.
	Metrics *reconciler.TextfileMetrics

	// History is nil when the run history is disabled or unavailable.
	History *history.Store
}

// InitializeServices builds the engine and its collaborators from the
// loaded configuration.
//
// A history database that cannot be opened only disables the history; it
// never prevents a reconciliation.
func InitializeServices(cfg *Config) (*Services, error) {
	dc := cfg.DocksideConfig
	if dc == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	st := state.NewManager(dc.StateDir)
	runner := shell.NewExecRunner()

	runtime, err := containerizer.NewRuntime(dc.Compose.Runtime, dc.Compose.Binary, dc.Compose.Pull, runner)
	if err != nil {
		return nil, fmt.Errorf("failed to create container runtime: %w", err)
	}
	resolver := source.NewGitResolver(st.Layout().Sources(), runner)

	s := &Services{
		State:   st,
		Metrics: reconciler.NewTextfileMetrics(dc.Metrics.Textfile),
	}
	observers := []reconciler.Observer{s.Metrics}

	if dc.History.Enabled {
		store, err := history.Open(dc.HistoryPath())
		if err != nil {
			logging.Warn("Services", "Run history disabled: %v", err)
		} else {
			store.SetRetention(dc.History.Retain)
			s.History = store
			observers = append(observers, store)
		}
	}

	s.Engine = reconciler.NewEngine(
		reconciler.OptionsFromConfig(*dc),
		st,
		resolver,
		descriptor.NewFileLoader(),
		runtime,
		observers...,
	)
	logging.Debug("Services", "Initialized engine for %d sources (%s)", len(dc.Sources), st)
	return s, nil
}

// Close releases the resources held by the services.
func (s *Services) Close() error {
	if s == nil || s.History == nil {
		return nil
	}
	return s.History.Close()
}

// loadConfig loads the configuration file named by cfg, or the default one.
func loadConfig(cfg *Config) (*config.DocksideConfig, error) {
	if cfg.ConfigPath == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		cfg.ConfigPath = path
	}
	dc, err := config.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	return &dc, nil
}
