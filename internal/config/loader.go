package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dockside/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/dockside"
	configFileName = "config.yaml"

	// SourcesEnv overrides the configured sources.
	SourcesEnv = "SOURCE_REPOS"
)

// DefaultConfigPath returns the per-user configuration file path.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

// LoadConfig loads the configuration file at configPath, applies the
// environment override and validates the result. An empty configPath
// selects DefaultConfigPath.
func LoadConfig(configPath string) (DocksideConfig, error) {
	if configPath == "" {
		var err error
		if configPath, err = DefaultConfigPath(); err != nil {
			return DocksideConfig{}, err
		}
	}

	config := GetDefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Info("ConfigLoader", "No config file found at %s, using defaults", configPath)
	case err != nil:
		return DocksideConfig{}, fmt.Errorf("error reading config %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return DocksideConfig{}, fmt.Errorf("error loading config from %s: %w", configPath, err)
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configPath)
	}

	applyEnv(&config)

	if err := config.Validate(); err != nil {
		return DocksideConfig{}, fmt.Errorf("invalid configuration %s: %w", configPath, err)
	}
	return config, nil
}

func applyEnv(config *DocksideConfig) {
	value, ok := os.LookupEnv(SourcesEnv)
	if !ok {
		return
	}
	var sources []Source
	for _, url := range strings.Split(value, ",") {
		if url = strings.TrimSpace(url); url != "" {
			sources = append(sources, Source{URL: url})
		}
	}
	logging.Debug("ConfigLoader", "%s overrides configured sources (%d sources)", SourcesEnv, len(sources))
	config.Sources = sources
}
