// Package source resolves declared sources to local directories.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dockside/internal/config"
	"dockside/internal/shell"
	"dockside/internal/unit"
	"dockside/pkg/logging"
)

const subsystem = "Source"

// Resolver produces a local directory reflecting the latest content of a
// source. Resolve is idempotent.
type Resolver interface {
	Resolve(ctx context.Context, src config.Source) (string, error)
}

// ResolutionError reports a source that could not be fetched or updated.
type ResolutionError struct {
	URL string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving source %s: %v", e.URL, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// GitResolver keeps one clone per source under its checkout directory.
// Sources whose URL names an existing local directory are used in place.
type GitResolver struct {
	checkoutDir string
	runner      shell.Runner
}

// NewGitResolver creates a resolver cloning into checkoutDir.
func NewGitResolver(checkoutDir string, runner shell.Runner) *GitResolver {
	return &GitResolver{checkoutDir: checkoutDir, runner: runner}
}

// CheckoutPath returns where the clone of src lives.
func (r *GitResolver) CheckoutPath(src config.Source) string {
	return filepath.Join(r.checkoutDir, unit.SourceID(src.URL))
}

// Resolve clones src on first use and hard-resets it to the remote branch
// afterwards.
func (r *GitResolver) Resolve(ctx context.Context, src config.Source) (string, error) {
	if dir, ok := LocalDir(src.URL); ok {
		logging.Debug(subsystem, "Using local source %s", dir)
		return dir, nil
	}

	branch := src.BranchOrDefault()
	path := r.CheckoutPath(src)

	_, err := os.Stat(filepath.Join(path, ".git"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(r.checkoutDir, 0o755); err != nil {
			return "", &ResolutionError{URL: src.URL, Err: err}
		}
		// A half-finished clone leaves a directory without .git behind.
		if err := os.RemoveAll(path); err != nil {
			return "", &ResolutionError{URL: src.URL, Err: err}
		}
		logging.Info(subsystem, "Cloning %s (%s) into %s", src.URL, branch, path)
		if _, err := r.runner.Run(ctx, shell.Context{Dir: r.checkoutDir}, "git", "clone", "--branch", branch, "--", src.URL, path); err != nil {
			return "", &ResolutionError{URL: src.URL, Err: err}
		}
	case err != nil:
		return "", &ResolutionError{URL: src.URL, Err: err}
	default:
		ec := shell.Context{Dir: path}
		logging.Info(subsystem, "Updating %s to origin/%s", src.URL, branch)
		if _, err := r.runner.Run(ctx, ec, "git", "fetch", "origin", branch); err != nil {
			return "", &ResolutionError{URL: src.URL, Err: err}
		}
		if _, err := r.runner.Run(ctx, ec, "git", "reset", "--hard", "origin/"+branch); err != nil {
			return "", &ResolutionError{URL: src.URL, Err: err}
		}
	}
	return path, nil
}

// LocalDir reports whether url refers to a directory on this host.
func LocalDir(url string) (string, bool) {
	path := strings.TrimPrefix(url, "file://")
	if !filepath.IsAbs(path) {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return path, true
}
