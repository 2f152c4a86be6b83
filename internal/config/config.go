// Package config centralizes runtime configuration for the licensing tool.
// Values come from three sources in order of precedence: environment
// variables (LICFORGE_* namespace), an optional YAML file, and built-in
// defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces all environment variables.
const EnvPrefix = "LICFORGE"

// Config is the complete tool configuration.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Discovery DiscoveryConfig `yaml:"discovery" envconfig:"DISCOVERY"`
	Preseed   PreseedConfig   `yaml:"preseed" envconfig:"PRESEED"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// DiscoveryConfig bounds the auto-discovery directory scan.
type DiscoveryConfig struct {
	MaxDepth int `yaml:"max_depth" envconfig:"MAX_DEPTH"`
	MaxFiles int `yaml:"max_files" envconfig:"MAX_FILES"`
}

// PreseedConfig carries the environment fallback for a preseed commitment,
// used when discovery finds a plain-text key file with no preseed of its
// own. Set via LICFORGE_PRESEED_VALUE.
type PreseedConfig struct {
	Value string `yaml:"-" envconfig:"VALUE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Discovery: DiscoveryConfig{
			MaxDepth: 3,
			MaxFiles: 512,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty and the file exists), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			slog.Debug("config file absent, using defaults", slog.String("path", path))
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// Environment always wins. No default tags on the struct, so only
	// variables actually set in the environment are applied here.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	return cfg, nil
}

// SlogLevel translates the configured level name.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger from the logging configuration.
func (c LoggingConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
