package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
log_format: json
server_address: 0.0.0.0:9000
weights_dir: /srv/weights
warn_on_sentinel: false
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "0.0.0.0:9000", cfg.ServerAddress)
	assert.Equal(t, "/srv/weights", cfg.WeightsDir)
	assert.False(t, cfg.warnOnSentinel())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: [oops"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_WarnOnSentinelDefault(t *testing.T) {
	assert.True(t, Config{}.warnOnSentinel())
	assert.True(t, configFromContext(context.Background()).warnOnSentinel())

	off := false
	ctx := withConfig(context.Background(), Config{WarnOnSentinel: &off})
	assert.False(t, configFromContext(ctx).warnOnSentinel())
}

func TestCheckWeightsDir(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, checkWeightsDir(""))
	assert.NoError(t, checkWeightsDir(dir))
	assert.Error(t, checkWeightsDir(filepath.Join(dir, "missing")))

	file := filepath.Join(dir, "w.safetensors")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	assert.Error(t, checkWeightsDir(file))
}
