package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"dockside/internal/config"
	"dockside/internal/reconciler"
	"dockside/internal/source"
	"dockside/internal/state"
	"dockside/pkg/logging"
)

const watchSubsystem = "Watch"

// sdNotify is replaced in tests.
var sdNotify = daemon.SdNotify

// Watch reconciles once at start and then on every interval tick and
// whenever the configuration file or the definitions of a local source
// change, until ctx is cancelled.
//
// Under systemd (Type=notify) readiness is reported after the first run
// and the watchdog is kept alive while runs are in progress.
func (a *Application) Watch(ctx context.Context) error {
	dc := a.config.DocksideConfig

	watcher := reconciler.NewWatcher(dc.Watch.Debounce)
	if a.configFile != "" {
		watcher.AddFile(a.configFile)
	}
	watcher.SetDirs(localDefinitionDirs(dc))

	triggers := make(chan reconciler.Trigger, 1)
	if err := watcher.Start(ctx, triggers); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer watcher.Stop()

	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		go keepAlive(ctx, interval/2)
	}

	ticker := time.NewTicker(dc.Watch.Interval)
	defer ticker.Stop()

	logging.Info(watchSubsystem, "Watching %d sources, reconciling every %s", len(dc.Sources), dc.Watch.Interval)
	a.reconcile(ctx, "startup")
	notify(daemon.SdNotifyReady)
	defer notify(daemon.SdNotifyStopping)

	for {
		select {
		case <-ctx.Done():
			logging.Info(watchSubsystem, "Stopping watch")
			return nil
		case <-ticker.C:
			a.reconcile(ctx, "interval")
		case trigger := <-triggers:
			logging.Info(watchSubsystem, "Change detected: %s", trigger.Reason)
			if a.configFile != "" && filepath.Clean(trigger.Path) == filepath.Clean(a.configFile) {
				if err := a.reload(); err != nil {
					logging.Error(watchSubsystem, err, "Keeping previous configuration")
				} else {
					watcher.SetDirs(localDefinitionDirs(a.config.DocksideConfig))
				}
				ticker.Reset(a.config.DocksideConfig.Watch.Interval)
			}
			a.reconcile(ctx, trigger.Reason)
		}
	}
}

// reconcile performs one run and reports its outcome. Errors never stop
// the watch loop.
func (a *Application) reconcile(ctx context.Context, reason string) {
	logging.Debug(watchSubsystem, "Reconciling (%s)", reason)
	report, err := a.Run(ctx)
	switch {
	case errors.Is(err, state.ErrLocked):
		logging.Warn(watchSubsystem, "Skipping run, another reconciliation holds the lock")
		return
	case ctx.Err() != nil:
		return
	case errors.Is(err, reconciler.ErrRunFailed):
		logging.Warn(watchSubsystem, "Run finished with failures: %v", err)
	case err != nil:
		logging.Error(watchSubsystem, err, "Run stopped before promotion")
	}
	if report != nil {
		notify(fmt.Sprintf("STATUS=Last run %s: %d applied, %d torn down, %d sources failed",
			report.Started.Format(time.RFC3339), len(report.Applied), len(report.TornDown), len(report.FailedSources())))
	}
}

// reload re-reads the configuration file and rebuilds the services.
func (a *Application) reload() error {
	dc, err := loadConfig(a.config)
	if err != nil {
		return err
	}
	next := *a.config
	next.DocksideConfig = dc
	services, err := InitializeServices(&next)
	if err != nil {
		return err
	}

	notify(daemon.SdNotifyReloading)
	a.mu.Lock()
	previous := a.services
	a.config.DocksideConfig = dc
	a.services = services
	a.mu.Unlock()
	if err := previous.Close(); err != nil {
		logging.Warn(watchSubsystem, "Closing previous services: %v", err)
	}
	logging.Info(watchSubsystem, "Reloaded configuration from %s", a.configFile)
	notify(daemon.SdNotifyReady)
	return nil
}

// localDefinitionDirs returns the definitions directories of the sources
// that live on this host.
func localDefinitionDirs(dc *config.DocksideConfig) []string {
	var dirs []string
	for _, src := range dc.Sources {
		if dir, ok := source.LocalDir(src.URL); ok {
			dirs = append(dirs, filepath.Join(dir, dc.DefinitionsDir))
		}
	}
	return dirs
}

func keepAlive(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			notify(daemon.SdNotifyWatchdog)
		}
	}
}

func notify(msg string) {
	if _, err := sdNotify(false, msg); err != nil {
		logging.Debug(watchSubsystem, "sd_notify %q failed: %v", msg, err)
	}
}
