package recorder

import (
	"errors"
	"fmt"

	"github.com/ethpandaops/fntrace/internal/buffer"
	"github.com/ethpandaops/fntrace/internal/event"
)

// DefaultOutputPath is where traces are written when no path is set.
const DefaultOutputPath = "./trace.out"

// Config holds the recorder's deploy-time settings. They are read once by
// Start and fixed for the recorder's lifetime.
type Config struct {
	// OutputPath is the trace file. It is truncated on start.
	OutputPath string `yaml:"output_path"`

	// Generation selects the record layout. Defaults to v3.
	Generation event.Generation `yaml:"generation"`

	// Capacity is the buffer arena size in bytes, excluding headroom.
	// Defaults to 256KiB.
	Capacity int `yaml:"capacity"`

	// Threshold is the power-of-two byte offset at which the buffer is
	// flushed. Defaults to 64KiB.
	Threshold int `yaml:"threshold"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		OutputPath: DefaultOutputPath,
		Generation: event.DefaultGeneration,
		Capacity:   buffer.DefaultCapacity,
		Threshold:  buffer.DefaultThreshold,
	}
}

// Validate checks the configuration for required fields and consistency.
func (c *Config) Validate() error {
	if c.OutputPath == "" {
		return errors.New("output_path is required")
	}

	if c.Generation.Width() == 0 {
		return fmt.Errorf("%w: %d", event.ErrUnknownGeneration, c.Generation)
	}

	if err := buffer.Validate(c.Capacity, c.Threshold); err != nil {
		return fmt.Errorf("invalid buffer size: %w", err)
	}

	return nil
}
