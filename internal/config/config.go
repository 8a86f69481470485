package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/fntrace/internal/export"
	"github.com/ethpandaops/fntrace/internal/recorder"
)

// Config is the top-level configuration for fntrace.
type Config struct {
	// LogLevel sets the logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Recorder configures the trace buffer and output file.
	Recorder recorder.Config `yaml:"recorder"`

	// Health configures the Prometheus health metrics server.
	Health export.HealthConfig `yaml:"health"`

	// Demo configures the built-in traced program.
	Demo DemoConfig `yaml:"demo"`
}

// DemoConfig configures the built-in traced program.
type DemoConfig struct {
	// Depth is the recursion depth of the innermost function.
	// Defaults to 4.
	Depth int `yaml:"depth"`

	// SleepUnit is multiplied by the recursion level to get each
	// level's sleep. Defaults to 1ms.
	SleepUnit time.Duration `yaml:"sleep_unit"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Recorder: recorder.DefaultConfig(),
		Demo: DemoConfig{
			Depth:     4,
			SleepUnit: time.Millisecond,
		},
	}
}

// LoadConfig reads and parses a YAML configuration file. An empty path
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for required fields and consistency.
func (c *Config) Validate() error {
	if err := c.Recorder.Validate(); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}

	if c.Demo.Depth < 0 {
		return fmt.Errorf("demo.depth must not be negative")
	}

	if c.Demo.SleepUnit < 0 {
		return fmt.Errorf("demo.sleep_unit must not be negative")
	}

	return nil
}
