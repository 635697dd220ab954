package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dockside/internal/reconciler"
	"dockside/internal/state"
)

// Exit codes for CLI commands.
// These follow common conventions and let scripts and systemd units tell
// failure classes apart.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeRunFailed indicates a run that promoted its state but had failed sources.
	ExitCodeRunFailed = 2
	// ExitCodeStateError indicates the state directories could not be transitioned.
	ExitCodeStateError = 3
	// ExitCodeLocked indicates another reconciliation holds the state lock.
	ExitCodeLocked = 4
	// ExitCodeInterrupted indicates a run stopped by a signal before promotion.
	ExitCodeInterrupted = 130
)

// Flags shared by every command.
var (
	configPath string
	debug      bool
	logFormat  string
)

// rootCmd represents the base command for the dockside application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dockside",
	Short: "Reconcile docker compose services from git repositories",
	Long: `dockside keeps the compose services of a host in line with the
definitions declared in one or more git repositories.

Every run clones or updates the repositories, renders each definition into
a compose file in a staging snapshot, brings all declared services up,
tears down the ones no longer declared and finally promotes the staging
snapshot to the current state.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It runs the root command with a context that is cancelled on SIGINT or
// SIGTERM and exits with a code derived from the returned error.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "dockside version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if errors.Is(err, state.ErrLocked) {
		return ExitCodeLocked
	}

	if errors.Is(err, context.Canceled) {
		return ExitCodeInterrupted
	}

	var transitionErr *state.TransitionError
	if errors.As(err, &transitionErr) {
		return ExitCodeStateError
	}

	if errors.Is(err, reconciler.ErrRunFailed) {
		return ExitCodeRunFailed
	}

	// Default to general error
	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $HOME/.config/dockside/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging with error cause chains")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
