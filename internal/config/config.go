// Package config loads and validates the daemon configuration from
// ~/.config/anydrag/config.yaml. Missing files and missing keys fall back
// to defaults, so a bare installation runs without any config at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// LoggingConfig configures daemon logging.
type LoggingConfig struct {
	// Level controls verbosity: debug, info, warn, error
	Level string `yaml:"level,omitempty"`
	// File is an optional log file path; empty logs to stderr only
	File string `yaml:"file,omitempty"`
}

// Config is the effective daemon configuration.
type Config struct {
	// Modifier is the key that arms dragging: alt, super, ctrl or shift
	Modifier string `yaml:"modifier"`

	// RefreshIntervalMs bounds window-inventory staleness and query cost
	RefreshIntervalMs int `yaml:"refresh_interval_ms"`
	// EventThrottleMs is the minimum spacing between processed input events
	EventThrottleMs int `yaml:"event_throttle_ms"`
	// MatchTolerance is the per-edge slack when joining inventory records
	// to live window handles
	MatchTolerance int `yaml:"match_tolerance"`
	// MaxAncestorDepth bounds the fallback point-query tree walk
	MaxAncestorDepth int `yaml:"max_ancestor_depth"`
	// RaiseDelayMs delays the repeated raise after activation
	RaiseDelayMs int `yaml:"raise_delay_ms"`

	// MinWindowWidth/MinWindowHeight exclude non-window UI chrome from
	// the inventory
	MinWindowWidth  int `yaml:"min_window_width"`
	MinWindowHeight int `yaml:"min_window_height"`
	// ExcludedOwners lists process names whose windows are never dragged
	ExcludedOwners []string `yaml:"excluded_owners,omitempty"`

	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Modifier:          "super",
		RefreshIntervalMs: 100,
		EventThrottleMs:   8,
		MatchTolerance:    5,
		MaxAncestorDepth:  8,
		RaiseDelayMs:      40,
		MinWindowWidth:    50,
		MinWindowHeight:   30,
		ExcludedOwners: []string{
			"plasmashell", "polybar", "xfce4-panel", "gnome-shell",
			"picom", "dunst", "i3bar",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "anydrag", "config.yaml"), nil
}

// Load reads the configuration from the standard location.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from path, layered over defaults.
// A missing file yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the loaded values for usability.
func (c *Config) Validate() error {
	switch c.Modifier {
	case "alt", "mod1", "super", "mod4", "win", "cmd", "ctrl", "control", "shift":
	default:
		return fmt.Errorf("modifier %q is not one of alt/mod1, super/mod4/win/cmd, ctrl/control, shift", c.Modifier)
	}

	if c.RefreshIntervalMs < 10 || c.RefreshIntervalMs > 5000 {
		return fmt.Errorf("refresh_interval_ms %d out of range [10,5000]", c.RefreshIntervalMs)
	}
	if c.EventThrottleMs < 1 || c.EventThrottleMs > 1000 {
		return fmt.Errorf("event_throttle_ms %d out of range [1,1000]", c.EventThrottleMs)
	}
	if c.MatchTolerance < 0 || c.MatchTolerance > 100 {
		return fmt.Errorf("match_tolerance %d out of range [0,100]", c.MatchTolerance)
	}
	if c.MaxAncestorDepth < 1 || c.MaxAncestorDepth > 64 {
		return fmt.Errorf("max_ancestor_depth %d out of range [1,64]", c.MaxAncestorDepth)
	}
	if c.RaiseDelayMs < 0 || c.RaiseDelayMs > 1000 {
		return fmt.Errorf("raise_delay_ms %d out of range [0,1000]", c.RaiseDelayMs)
	}
	if c.MinWindowWidth < 1 || c.MinWindowHeight < 1 {
		return fmt.Errorf("minimum window size %dx%d must be positive", c.MinWindowWidth, c.MinWindowHeight)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

// RefreshInterval returns the inventory refresh interval as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMs) * time.Millisecond
}

// EventThrottle returns the input throttle as a duration.
func (c *Config) EventThrottle() time.Duration {
	return time.Duration(c.EventThrottleMs) * time.Millisecond
}

// RaiseDelay returns the re-raise delay as a duration.
func (c *Config) RaiseDelay() time.Duration {
	return time.Duration(c.RaiseDelayMs) * time.Millisecond
}
