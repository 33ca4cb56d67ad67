// Package config handles demo configuration loading and management.
package config

import "fmt"

// Blur modes.
const (
	BlurOff       = "off"
	BlurSingle    = "single"
	BlurSeparable = "separable"
)

// Shading modes.
const (
	ShadingEmissive      = "emissive"
	ShadingShadows       = "shadows"
	ShadingNoShadows     = "no_shadows"
	ShadingRays          = "rays"
	ShadingRaysNoShadows = "rays_no_shadows"
)

// Config holds all settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Shaders  ShadersConfig  `yaml:"shaders"`
	Assets   AssetsConfig   `yaml:"assets"`
	Passes   PassesConfig   `yaml:"passes"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// ShadersConfig locates shader sources.
type ShadersConfig struct {
	Dir string `yaml:"dir"` // Empty means the sources built into the binary
}

// AssetsConfig locates meshes.
type AssetsConfig struct {
	MeshManifest string `yaml:"mesh_manifest"` // Empty means the built-in rectangle
}

// PassesConfig selects which passes run each frame.
type PassesConfig struct {
	Blur    string `yaml:"blur"`
	Mipmap  bool   `yaml:"mipmap"`
	Shading string `yaml:"shading"`
	Lights  int    `yaml:"lights"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
		},
		Passes: PassesConfig{
			Blur:    BlurSeparable,
			Mipmap:  true,
			Shading: ShadingNoShadows,
			Lights:  4,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Graphics.Width <= 0 || c.Graphics.Height <= 0 {
		return fmt.Errorf("graphics: invalid size %dx%d", c.Graphics.Width, c.Graphics.Height)
	}
	switch c.Passes.Blur {
	case BlurOff, BlurSingle, BlurSeparable:
	default:
		return fmt.Errorf("passes: unknown blur mode %q", c.Passes.Blur)
	}
	switch c.Passes.Shading {
	case ShadingEmissive, ShadingShadows, ShadingNoShadows, ShadingRays, ShadingRaysNoShadows:
	default:
		return fmt.Errorf("passes: unknown shading mode %q", c.Passes.Shading)
	}
	if c.Passes.Lights < 0 {
		return fmt.Errorf("passes: negative light count %d", c.Passes.Lights)
	}
	return nil
}
