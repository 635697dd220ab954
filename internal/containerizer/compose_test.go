package containerizer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dockside/internal/shell"
	"dockside/pkg/logging"
)

func init() {
	logging.InitForCLI(logging.LevelError, &bytes.Buffer{})
}

type recordingRunner struct {
	mu       sync.Mutex
	commands []string
	dirs     []string
	failOn   string
}

func (r *recordingRunner) Run(_ context.Context, ec shell.Context, name string, args ...string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	line := strings.Join(append([]string{name}, args...), " ")
	r.commands = append(r.commands, line)
	r.dirs = append(r.dirs, ec.Dir)
	if r.failOn != "" && strings.Contains(line, r.failOn) {
		return "", errors.New("exit status 1")
	}
	return "", nil
}

func TestComposeRuntime_Apply(t *testing.T) {
	runner := &recordingRunner{}
	rt := NewComposeRuntime("docker", true, runner)

	err := rt.Apply(context.Background(), Target{ID: "web-abc123", Dir: "/state/web-abc123"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"docker compose --project-name web-abc123 --file docker-compose.yml pull",
		"docker compose --project-name web-abc123 --file docker-compose.yml up --detach --remove-orphans",
	}, runner.commands)
	assert.Equal(t, []string{"/state/web-abc123", "/state/web-abc123"}, runner.dirs)
}

func TestComposeRuntime_ApplyWithoutPull(t *testing.T) {
	runner := &recordingRunner{}
	rt := NewComposeRuntime("podman", false, runner)

	require.NoError(t, rt.Apply(context.Background(), Target{ID: "web-abc123", Dir: "/s"}))
	assert.Equal(t, []string{
		"podman compose --project-name web-abc123 --file docker-compose.yml up --detach --remove-orphans",
	}, runner.commands)
}

func TestComposeRuntime_ApplyFailure(t *testing.T) {
	runner := &recordingRunner{failOn: "pull"}
	rt := NewComposeRuntime("docker", true, runner)

	err := rt.Apply(context.Background(), Target{ID: "web-abc123", Dir: "/s"})
	var applyErr *ApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, "web-abc123", applyErr.Unit.String())
	assert.Len(t, runner.commands, 1, "up must not run after a failed pull")
}

func TestComposeRuntime_Teardown(t *testing.T) {
	runner := &recordingRunner{}
	rt := NewComposeRuntime("docker", true, runner)

	require.NoError(t, rt.Teardown(context.Background(), Target{ID: "worker-abc123", Dir: "/old/worker-abc123"}))
	assert.Equal(t, []string{
		"docker compose --project-name worker-abc123 --file docker-compose.yml down --remove-orphans",
	}, runner.commands)

	runner.failOn = "down"
	err := rt.Teardown(context.Background(), Target{ID: "worker-abc123", Dir: "/old/worker-abc123"})
	var tdErr *TeardownError
	assert.ErrorAs(t, err, &tdErr)
}

func TestNewRuntime(t *testing.T) {
	original := lookPath
	defer func() { lookPath = original }()

	var looked []string
	lookPath = func(file string) (string, error) {
		looked = append(looked, file)
		if file == "missing" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + file, nil
	}

	rt, err := NewRuntime("", "", true, &recordingRunner{})
	require.NoError(t, err)
	assert.Equal(t, "docker", rt.(*ComposeRuntime).binary)

	rt, err = NewRuntime("Podman", "", true, &recordingRunner{})
	require.NoError(t, err)
	assert.Equal(t, "podman", rt.(*ComposeRuntime).binary)

	_, err = NewRuntime("docker", "missing", true, &recordingRunner{})
	assert.Error(t, err)

	_, err = NewRuntime("containerd", "", true, &recordingRunner{})
	assert.Error(t, err)

	assert.Equal(t, []string{"docker", "podman", "missing"}, looked)
}
