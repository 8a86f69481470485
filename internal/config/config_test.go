package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/fntrace/internal/event"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "./trace.out", cfg.Recorder.OutputPath)
	assert.Equal(t, event.GenerationV3, cfg.Recorder.Generation)
	assert.Equal(t, "", cfg.Health.Addr)
	assert.Equal(t, 4, cfg.Demo.Depth)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	yaml := `
log_level: debug
recorder:
  output_path: /var/tmp/fish.trace
  generation: v1
  capacity: 8192
  threshold: 4096
health:
  addr: ":9091"
demo:
  depth: 6
  sleep_unit: 250us
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/tmp/fish.trace", cfg.Recorder.OutputPath)
	assert.Equal(t, event.GenerationV1, cfg.Recorder.Generation)
	assert.Equal(t, 8192, cfg.Recorder.Capacity)
	assert.Equal(t, 4096, cfg.Recorder.Threshold)
	assert.Equal(t, ":9091", cfg.Health.Addr)
	assert.Equal(t, 6, cfg.Demo.Depth)
	assert.Equal(t, 250*time.Microsecond, cfg.Demo.SleepUnit)
}

func TestLoadConfig_PartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recorder:\n  output_path: out.bin\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "out.bin", cfg.Recorder.OutputPath)
	assert.Equal(t, event.GenerationV3, cfg.Recorder.Generation)
	assert.Equal(t, 1<<16, cfg.Recorder.Threshold)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	// Use a tab character at the start which is invalid YAML indentation.
	require.NoError(t, os.WriteFile(path, []byte("\t- bad"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoadConfig_UnknownGeneration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recorder:\n  generation: v9\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown generation")
}

func TestValidate_InvalidThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Recorder.Threshold = 1000

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recorder: invalid buffer size")
}

func TestValidate_NegativeDepth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Demo.Depth = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "demo.depth must not be negative")
}
