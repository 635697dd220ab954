package app

import (
	"io"

	"dockside/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug enables debug logging and error cause chains.
	Debug bool

	// Quiet limits logging to warnings and errors unless Debug is set.
	Quiet bool

	// LogFormat is "text" or "json".
	LogFormat string

	// LogOutput receives the logs. Defaults to os.Stderr.
	LogOutput io.Writer

	// Custom configuration file (optional)
	ConfigPath string

	// DocksideConfig skips configuration loading when set.
	DocksideConfig *config.DocksideConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, logFormat, configPath string) *Config {
	return &Config{
		Debug:      debug,
		LogFormat:  logFormat,
		ConfigPath: configPath,
	}
}
