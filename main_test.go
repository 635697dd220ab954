package main

import (
	"testing"

	"dockside/cmd"
)

func TestVersion(t *testing.T) {
	if version != "dev" {
		t.Errorf("Expected default version to be 'dev', got %s", version)
	}
}

func TestSetVersionPropagates(t *testing.T) {
	original := cmd.GetVersion()
	defer cmd.SetVersion(original)

	cmd.SetVersion(version)
	if cmd.GetVersion() != version {
		t.Errorf("Expected command version %s, got %s", version, cmd.GetVersion())
	}
}
