package containerizer

import (
	"fmt"
	"os/exec"
	"strings"

	"dockside/internal/shell"
)

// RuntimeType defines the type of container runtime
type RuntimeType string

const (
	RuntimeTypeDocker RuntimeType = "docker"
	RuntimeTypePodman RuntimeType = "podman"
)

// lookPath is a variable to allow mocking in tests
var lookPath = exec.LookPath

// NewRuntime creates a compose runtime for the given runtime type. An empty
// binary selects the runtime's own executable.
func NewRuntime(runtimeType, binary string, pull bool, runner shell.Runner) (Runtime, error) {
	rt := RuntimeType(strings.ToLower(runtimeType))

	switch rt {
	case RuntimeTypeDocker, "":
		// Default to Docker if not specified
		rt = RuntimeTypeDocker
	case RuntimeTypePodman:
	default:
		return nil, fmt.Errorf("unsupported container runtime: %s", runtimeType)
	}

	if binary == "" {
		binary = string(rt)
	}
	if _, err := lookPath(binary); err != nil {
		return nil, fmt.Errorf("%s command not found in PATH: %w", binary, err)
	}
	return NewComposeRuntime(binary, pull, runner), nil
}
