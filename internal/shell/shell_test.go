package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dockside/pkg/logging"
)

// init sets up the test environment
func init() {
	// Replace the exec command context with our mock in tests
	execCommandContext = mockExecCommandContext
	logging.InitForCLI(logging.LevelError, &bytes.Buffer{})
}

// mockExecCommandContext re-runs the test binary as a fake command
func mockExecCommandContext(ctx context.Context, command string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", command}
	cs = append(cs, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

// TestHelperProcess is a helper process for mocking exec.Command
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "No command\n")
		os.Exit(2)
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "echo":
		wd, _ := os.Getwd()
		fmt.Fprintf(os.Stdout, "%s|%s", strings.Join(args, " "), wd)
	case "fail":
		fmt.Fprintf(os.Stderr, "something went wrong")
		os.Exit(1)
	case "sleep":
		time.Sleep(10 * time.Second)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", cmd)
		os.Exit(2)
	}
	os.Exit(0)
}

func TestExecRunner_Run(t *testing.T) {
	dir := t.TempDir()
	r := NewExecRunner()

	out, err := r.Run(context.Background(), Context{}.In(dir), "echo", "hello", "world")
	require.NoError(t, err)

	parts := strings.SplitN(out, "|", 2)
	require.Len(t, parts, 2)
	assert.Equal(t, "hello world", parts[0])
	// Each call gets its own working directory.
	assert.Contains(t, parts[1], dir[strings.LastIndex(dir, "/"):])
}

func TestExecRunner_Failure(t *testing.T) {
	r := NewExecRunner()

	_, err := r.Run(context.Background(), Context{}, "fail")
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, "fail", exitErr.Command)
	assert.Contains(t, err.Error(), "something went wrong")
}

func TestExecRunner_Timeout(t *testing.T) {
	r := NewExecRunner()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx, Context{}, "sleep")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestContext_In(t *testing.T) {
	base := Context{Env: []string{"A=1"}}
	derived := base.In("/tmp")

	assert.Equal(t, "", base.Dir, "In must not mutate the receiver")
	assert.Equal(t, "/tmp", derived.Dir)
	assert.Equal(t, []string{"A=1"}, derived.Env)
}
