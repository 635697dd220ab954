package containerizer

import (
	"context"

	"dockside/internal/shell"
	"dockside/internal/unit"
	"dockside/pkg/logging"
)

const composeSubsystem = "Compose"

// ComposeRuntime implements Runtime using the compose CLI plugin.
type ComposeRuntime struct {
	binary string
	pull   bool
	runner shell.Runner
}

// NewComposeRuntime creates a runtime invoking "<binary> compose".
func NewComposeRuntime(binary string, pull bool, runner shell.Runner) *ComposeRuntime {
	return &ComposeRuntime{binary: binary, pull: pull, runner: runner}
}

func (c *ComposeRuntime) compose(ctx context.Context, target Target, args ...string) error {
	full := append([]string{"compose", "--project-name", string(target.ID), "--file", unit.DescriptorFile}, args...)
	_, err := c.runner.Run(ctx, shell.Context{Dir: target.Dir}, c.binary, full...)
	return err
}

// Apply pulls the unit's images when configured and brings it up detached.
func (c *ComposeRuntime) Apply(ctx context.Context, target Target) error {
	if c.pull {
		logging.Debug(composeSubsystem, "Pulling images for %s", target.ID)
		if err := c.compose(ctx, target, "pull"); err != nil {
			return &ApplyError{Unit: target.ID, Err: err}
		}
	}

	logging.Info(composeSubsystem, "Bringing up %s", target.ID)
	if err := c.compose(ctx, target, "up", "--detach", "--remove-orphans"); err != nil {
		return &ApplyError{Unit: target.ID, Err: err}
	}
	return nil
}

// Teardown stops the unit and removes its containers and networks.
func (c *ComposeRuntime) Teardown(ctx context.Context, target Target) error {
	logging.Info(composeSubsystem, "Tearing down %s", target.ID)
	if err := c.compose(ctx, target, "down", "--remove-orphans"); err != nil {
		return &TeardownError{Unit: target.ID, Err: err}
	}
	return nil
}
