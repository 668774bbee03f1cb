// Package config loads cpopen defaults from CPOPEN_* environment variables.
// Command-line flags override every value.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name.
const Prefix = "CPOPEN"

// Config holds the spawn defaults and logging settings.
type Config struct {
	CloseFDs       bool   `envconfig:"CLOSE_FDS" default:"false"`
	DeathSignal    string `split_words:"true"` // name or number, empty for none
	Umask          string `split_words:"true"` // octal, empty leaves the umask alone
	RestoreSigpipe bool   `split_words:"true" default:"false"`
	Retries        int    `split_words:"true" default:"0"`
	LogLevel       string `split_words:"true" default:"warn"`
	LogDev         bool   `split_words:"true" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("failed to load config: %s_RETRIES must not be negative", Prefix)
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		LogLevel: "warn",
	}
}
