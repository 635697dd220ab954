package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"dockside/internal/history"
	"dockside/internal/reconciler"
	"dockside/pkg/logging"
)

// ErrHistoryDisabled is returned by the history operations when no run
// history is kept.
var ErrHistoryDisabled = errors.New("run history is disabled")

// Application represents the main application structure that bootstraps and
// runs dockside.
//
// Example usage:
//
//	cfg := app.NewConfig(false, "text", "")
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	defer application.Close()
//	report, err := application.Run(ctx)
type Application struct {
	config *Config

	// mu guards services, which Watch replaces on reload.
	mu       sync.RWMutex
	services *Services

	// configFile is set when the configuration was loaded from a file,
	// which is then watched and reloaded by Watch.
	configFile string
}

// NewApplication configures logging, loads the configuration and
// initializes the services.
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel := logging.LevelInfo
	switch {
	case cfg.Debug:
		appLogLevel = logging.LevelDebug
	case cfg.Quiet:
		appLogLevel = logging.LevelWarn
	}
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	var logOutput io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		logOutput = cfg.LogOutput
	}
	logging.Init(appLogLevel, logOutput, format)

	var configFile string
	if cfg.DocksideConfig == nil {
		dc, err := loadConfig(cfg)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load dockside configuration")
			return nil, fmt.Errorf("failed to load dockside configuration: %w", err)
		}
		cfg.DocksideConfig = dc
		configFile = cfg.ConfigPath
		logging.Debug("Bootstrap", "Loaded configuration from %s", cfg.ConfigPath)
	}

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:     cfg,
		services:   services,
		configFile: configFile,
	}, nil
}

// Close releases the application's resources.
func (a *Application) Close() error {
	return a.current().Close()
}

func (a *Application) current() *Services {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.services
}

// Run performs one reconciliation.
func (a *Application) Run(ctx context.Context) (*reconciler.Report, error) {
	return a.current().Engine.Run(ctx)
}

// Plan reports what a reconciliation would change.
func (a *Application) Plan(ctx context.Context) (*reconciler.Plan, error) {
	return a.current().Engine.Plan(ctx)
}

// Status reports the recorded units.
func (a *Application) Status() (*reconciler.Status, error) {
	return a.current().Engine.Status()
}

// History returns the newest runs, at most limit.
func (a *Application) History(ctx context.Context, limit int) ([]history.Run, error) {
	store := a.current().History
	if store == nil {
		return nil, ErrHistoryDisabled
	}
	return store.Recent(ctx, limit)
}

// HistoryRun returns one run, addressed by a unique id prefix, and its unit
// events.
func (a *Application) HistoryRun(ctx context.Context, id string) (history.Run, []history.UnitEvent, error) {
	store := a.current().History
	if store == nil {
		return history.Run{}, nil, ErrHistoryDisabled
	}
	run, err := store.Get(ctx, id)
	if err != nil {
		return history.Run{}, nil, err
	}
	events, err := store.Events(ctx, run.ID)
	if err != nil {
		return history.Run{}, nil, err
	}
	return run, events, nil
}
