package hdmoonshine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moonshine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
debug: true
texture_cache_size: 16
default_color: [0.2, 0.3, 0.4]
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, 16, cfg.TextureCacheSize)
	assert.Equal(t, [3]float32{0.2, 0.3, 0.4}, cfg.DefaultColor)
	// untouched keys keep their defaults
	assert.Equal(t, "moonshine", cfg.LogPrefix)
	assert.True(t, cfg.FlipTextures)
	assert.Equal(t, float32(1.5), cfg.DefaultIOR)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("texture_cache_size: [1, 2"), 0o644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "parse config")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("texture_cache_size: -1\n"), 0o644))
	_, err = LoadConfig(invalid)
	assert.ErrorContains(t, err, "texture_cache_size")
}

func TestConfig_ValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.TextureCacheSize = 0
	cfg.DefaultIOR = 0.5
	cfg.DefaultColor = [3]float32{0, 2, 0}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "texture_cache_size")
	assert.ErrorContains(t, err, "default_ior")
	assert.ErrorContains(t, err, "default_color[1]")
}

func TestConfig_ApplySettings(t *testing.T) {
	cfg := DefaultConfig().ApplySettings(map[hd.Token]any{
		SettingDebug:            true,
		SettingTextureCacheSize: 32,
		SettingFlipTextures:     "no",
		"moonshine:unknown":     1,
	})

	assert.True(t, cfg.Debug)
	assert.Equal(t, 32, cfg.TextureCacheSize)
	assert.True(t, cfg.FlipTextures, "mistyped values are ignored")

	assert.Equal(t, DefaultConfig(), DefaultConfig().ApplySettings(nil))
}
