package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// defaultRepoSlug is the GitHub repository (owner/repo) releases are taken from.
const defaultRepoSlug = "dockside-dev/dockside"

// newSelfUpdateCmd creates the Cobra command for the self-update functionality.
func newSelfUpdateCmd() *cobra.Command {
	var repo string
	cmd := &cobra.Command{
		Use:   "self-update",
		Short: "Update dockside to the latest version",
		Long: `Checks for the latest release of dockside on GitHub and
updates the current binary if a newer version is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return selfUpdate(cmd.Context(), cmd.OutOrStdout(), rootCmd.Version, repo)
		},
	}
	cmd.Flags().StringVar(&repo, "repository", defaultRepoSlug, "GitHub repository to take releases from")
	return cmd
}

// selfUpdate replaces the running binary by the latest release of repo when
// it is newer than currentVersion.
func selfUpdate(ctx context.Context, w io.Writer, currentVersion, repo string) error {
	// Development builds do not follow semantic versioning.
	if currentVersion == "" || currentVersion == "dev" {
		return fmt.Errorf("cannot self-update a development version")
	}

	fmt.Fprintf(w, "Current version: %s\n", currentVersion)
	fmt.Fprintln(w, "Checking for updates...")

	updater, err := selfupdate.NewUpdater(selfupdate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create updater: %w", err)
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(repo))
	if err != nil {
		return fmt.Errorf("error detecting latest version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest release for %s could not be found", repo)
	}
	if !latest.GreaterThan(currentVersion) {
		fmt.Fprintln(w, "Current version is the latest.")
		return nil
	}

	fmt.Fprintf(w, "Found newer version: %s (published at %s)\n", latest.Version(), latest.PublishedAt)
	fmt.Fprintf(w, "Release notes:\n%s\n", latest.ReleaseNotes)

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	fmt.Fprintf(w, "Updating %s to version %s...\n", exe, latest.Version())
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	fmt.Fprintf(w, "Successfully updated to version %s\n", latest.Version())
	return nil
}
