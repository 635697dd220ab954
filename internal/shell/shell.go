// Package shell runs external commands on behalf of dockside.
//
// Each call carries its own Context value with the working directory and
// extra environment, so concurrent callers never share mutable state.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"dockside/pkg/logging"
)

const subsystem = "Shell"

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// Context is the execution context of a single command.
type Context struct {
	// Dir is the working directory. Empty means the process working directory.
	Dir string
	// Env is appended to the process environment.
	Env []string
}

// In returns a copy of c running in dir.
func (c Context) In(dir string) Context {
	c.Dir = dir
	return c
}

// Runner runs a command to completion and returns its standard output.
type Runner interface {
	Run(ctx context.Context, ec Context, name string, args ...string) (string, error)
}

// ExitError is returned when a command fails. It carries the command's
// standard error, which is usually the only useful diagnostic.
type ExitError struct {
	Command string
	Dir     string
	Stderr  string
	Err     error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes name with args in ec and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, ec Context, name string, args ...string) (string, error) {
	command := strings.Join(append([]string{name}, args...), " ")
	logging.Debug(subsystem, "Running %q in %s", command, ec.Dir)

	cmd := execCommandContext(ctx, name, args...)
	cmd.Dir = ec.Dir
	if len(ec.Env) > 0 {
		cmd.Env = append(os.Environ(), ec.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return stdout.String(), &ExitError{Command: command, Dir: ec.Dir, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}
