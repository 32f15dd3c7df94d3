package hdmoonshine

import (
	"errors"
	"fmt"
	"os"

	"github.com/gekko3d/hdmoonshine/hd"
	"gopkg.in/yaml.v3"
)

// Config holds the render delegate settings.
type Config struct {
	Debug     bool   `yaml:"debug"`
	LogPrefix string `yaml:"log_prefix"`

	// TextureCacheSize bounds how many decoded image files keep their engine
	// texture handle for reuse by other materials.
	TextureCacheSize int `yaml:"texture_cache_size"`

	// FlipTextures stores images last row first, matching the engine's UV
	// convention.
	FlipTextures bool `yaml:"flip_textures"`

	// DefaultColor is the albedo of the fallback material.
	DefaultColor [3]float32 `yaml:"default_color"`
	DefaultIOR   float32    `yaml:"default_ior"`
}

func DefaultConfig() Config {
	return Config{
		LogPrefix:        "moonshine",
		TextureCacheSize: 128,
		FlipTextures:     true,
		DefaultColor:     [3]float32{0.5, 0.5, 0.5},
		DefaultIOR:       1.5,
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.TextureCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("texture_cache_size must be positive, got %d", c.TextureCacheSize))
	}
	if c.DefaultIOR < 1 {
		errs = append(errs, fmt.Errorf("default_ior must be at least 1, got %g", c.DefaultIOR))
	}
	for i, v := range c.DefaultColor {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("default_color[%d] out of [0, 1]: %g", i, v))
		}
	}
	return errors.Join(errs...)
}

// Render setting keys understood by ApplySettings.
const (
	SettingDebug            hd.Token = "moonshine:debug"
	SettingTextureCacheSize hd.Token = "moonshine:textureCacheSize"
	SettingFlipTextures     hd.Token = "moonshine:flipTextures"
)

// ApplySettings overrides config fields from a host render settings map.
// Unknown keys and mistyped values are ignored.
func (c Config) ApplySettings(settings map[hd.Token]any) Config {
	if v, ok := settings[SettingDebug].(bool); ok {
		c.Debug = v
	}
	switch v := settings[SettingTextureCacheSize].(type) {
	case int:
		c.TextureCacheSize = v
	case int32:
		c.TextureCacheSize = int(v)
	}
	if v, ok := settings[SettingFlipTextures].(bool); ok {
		c.FlipTextures = v
	}
	return c
}
