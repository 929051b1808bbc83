// Package config loads and validates the daemon configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"CamSession/internal/backend"
	"CamSession/internal/session"
)

// Config aggregates all daemon configuration.
type Config struct {
	// Listen is the HTTP control surface address, e.g. ":9981".
	Listen string `yaml:"listen"`

	// Preset is the session preset handed to the capture backend.
	Preset string `yaml:"preset"`

	// PreferFacing selects the initial camera: "back", "front" or "any".
	PreferFacing string `yaml:"prefer_facing"`

	// RecordingDir is where recorded files are written. One fresh,
	// uniquely named file per recording; cleanup is the caller's business.
	RecordingDir string `yaml:"recording_dir"`

	// FlashMode is the initial flash mode: "off", "on" or "auto".
	FlashMode string `yaml:"flash_mode"`

	// Profile selects orientation/mirroring policy: "handheld" or "fixed".
	Profile string `yaml:"profile"`

	// Recording optionally selects the structured video output.
	Recording *backend.RecordingSettings `yaml:"recording"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:       ":9981",
		Preset:       "hd1280x720",
		PreferFacing: "back",
		RecordingDir: os.TempDir(),
		FlashMode:    "off",
		Profile:      "handheld",
		LogLevel:     "info",
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks enum fields and required values.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address is required")
	}
	if c.RecordingDir == "" {
		return fmt.Errorf("config: recording_dir is required")
	}
	if _, ok := backend.ParseFacing(c.PreferFacing); !ok {
		return fmt.Errorf("config: unknown prefer_facing %q", c.PreferFacing)
	}
	if _, ok := backend.ParseFlashMode(c.FlashMode); !ok {
		return fmt.Errorf("config: unknown flash_mode %q", c.FlashMode)
	}
	if _, ok := session.ParseProfile(c.Profile); !ok {
		return fmt.Errorf("config: unknown profile %q", c.Profile)
	}
	return nil
}

// Facing returns the parsed prefer_facing value.
func (c Config) Facing() backend.Facing {
	f, _ := backend.ParseFacing(c.PreferFacing)
	return f
}

// Flash returns the parsed flash_mode value.
func (c Config) Flash() backend.FlashMode {
	m, _ := backend.ParseFlashMode(c.FlashMode)
	return m
}

// SessionProfile returns the parsed profile value.
func (c Config) SessionProfile() session.Profile {
	p, _ := session.ParseProfile(c.Profile)
	return p
}
