package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dockside/pkg/logging"
)

func init() {
	logging.InitForCLI(logging.LevelError, &bytes.Buffer{})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
stateDir: /srv/dockside
sources:
  - url: https://git.example/fleet.git
    branch: production
  - https://git.example/edge.git
unitTimeout: 90s
concurrency: 4
compose:
  pull: false
metrics:
  textfile: /tmp/dockside.prom
watch:
  interval: 1m
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/dockside", cfg.StateDir)
	assert.Equal(t, DefaultDefinitionsDir, cfg.DefinitionsDir)
	assert.Equal(t, []Source{
		{URL: "https://git.example/fleet.git", Branch: "production"},
		{URL: "https://git.example/edge.git"},
	}, cfg.Sources)
	assert.Equal(t, 90*time.Second, cfg.UnitTimeout)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.False(t, cfg.Compose.Pull)
	assert.Equal(t, "docker", cfg.Compose.Binary, "unset keys keep defaults")
	assert.Equal(t, "/tmp/dockside.prom", cfg.Metrics.Textfile)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "/srv/dockside/history.db", cfg.HistoryPath())
	assert.Equal(t, "main", cfg.Sources[1].BranchOrDefault())
	assert.Equal(t, time.Minute, cfg.Watch.Interval)
	assert.Equal(t, DefaultWatchDebounce, cfg.Watch.Debounce)
	assert.Equal(t, DefaultHistoryRetain, cfg.History.Retain)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "sources:\n  - https://git.example/fleet.git\n")
	t.Setenv(SourcesEnv, "https://git.example/a.git, https://git.example/b.git,")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []Source{
		{URL: "https://git.example/a.git"},
		{URL: "https://git.example/b.git"},
	}, cfg.Sources)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(SourcesEnv, "https://git.example/fleet.git")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultStateDir, cfg.StateDir)
	assert.Equal(t, DefaultUnitTimeout, cfg.UnitTimeout)
	assert.Len(t, cfg.Sources, 1)
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := writeConfig(t, "sources: [unclosed\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading config")
}

func TestValidate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Sources = []Source{{URL: "https://git.example/a.git"}, {URL: "https://git.example/a.git"}, {URL: ""}}
	cfg.UnitTimeout = 0
	cfg.Concurrency = -1

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))

	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"sources[1].url", "sources[2].url", "unitTimeout", "concurrency"}, fields)
}

func TestValidate_NoSources(t *testing.T) {
	err := GetDefaultConfig().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one source")
}
