package recorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/fntrace/internal/event"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "./trace.out", cfg.OutputPath)
	assert.Equal(t, event.GenerationV3, cfg.Generation)
	assert.Equal(t, 1<<16, cfg.Threshold)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"missing path", func(c *Config) { c.OutputPath = "" }, "output_path is required"},
		{"bad generation", func(c *Config) { c.Generation = 7 }, "unknown generation"},
		{"odd threshold", func(c *Config) { c.Threshold = 3000 }, "not a power of two"},
		{"threshold past capacity", func(c *Config) { c.Capacity = 1024 }, "exceeds capacity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
