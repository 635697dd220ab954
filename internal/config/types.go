package config

import (
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DocksideConfig is the top-level configuration structure for dockside.
type DocksideConfig struct {
	StateDir       string        `yaml:"stateDir"`       // Root of the state layout and source checkouts
	DefinitionsDir string        `yaml:"definitionsDir"` // Unit-definition directory inside each source
	Sources        []Source      `yaml:"sources"`
	UnitTimeout    time.Duration `yaml:"unitTimeout"` // Per-unit timeout of compose calls
	Concurrency    int           `yaml:"concurrency"` // Fan-out limit, 0 means unbounded
	Compose        ComposeConfig `yaml:"compose"`
	Metrics        MetricsConfig `yaml:"metrics"`
	History        HistoryConfig `yaml:"history"`
	Watch          WatchConfig   `yaml:"watch"`
}

// Source is a git repository declaring units.
type Source struct {
	URL    string `yaml:"url"`
	Branch string `yaml:"branch,omitempty"`
}

// BranchOrDefault returns the branch to track.
func (s Source) BranchOrDefault() string {
	if s.Branch == "" {
		return DefaultBranch
	}
	return s.Branch
}

// UnmarshalYAML accepts either a mapping or a bare URL string.
func (s *Source) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.URL = node.Value
		return nil
	}
	type plain Source
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = Source(p)
	return nil
}

// ComposeConfig configures the container runtime facade.
type ComposeConfig struct {
	Runtime string `yaml:"runtime"` // Runtime kind, see containerizer.NewRuntime
	Binary  string `yaml:"binary"`  // Executable providing the compose subcommand
	Pull    bool   `yaml:"pull"`    // Pull images before bringing a unit up
}

// MetricsConfig configures the Prometheus textfile written after each run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
	Retain  int    `yaml:"retain"` // Runs kept after pruning, 0 keeps all
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Interval time.Duration `yaml:"interval"` // Time between periodic runs
	Debounce time.Duration `yaml:"debounce"` // Quiet period after a file change
}

// HistoryPath returns the database location, defaulting below the state dir.
func (c DocksideConfig) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(c.StateDir, DefaultHistoryFile)
}
