package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "citadel.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "Citadel", cfg.Name)
	assert.Equal(t, uint32(1280), cfg.Width)
	assert.Equal(t, "vulkan", cfg.Renderer.Backend)
	assert.Equal(t, time.Duration(0), cfg.StallTimeout())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
name = "Keep"
width = 800
height = 600
log_level = "debug"

[renderer]
backend = "null"
stall_timeout_ms = 2500
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Keep", cfg.Name)
	assert.Equal(t, uint32(800), cfg.Width)
	assert.Equal(t, "null", cfg.Renderer.Backend)
	assert.Equal(t, 2500*time.Millisecond, cfg.StallTimeout())
	// Fields the file does not mention keep their defaults.
	assert.Equal(t, "assets/shaders/castle.vert.spv", cfg.Renderer.VertexShaderPath)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
[renderer]
backend = "dx12"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dx12")
}

func TestLoadRejectsZeroWindowSize(t *testing.T) {
	path := writeConfig(t, "width = 0\nheight = 600\n")
	_, err := Load(path)
	require.Error(t, err)
}
