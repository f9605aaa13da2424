package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/frameship/pkg/log"
)

// Frame source kinds.
const (
	SourcePattern   = "pattern"
	SourceDirectory = "dir"
)

// Config holds CLI configuration for frameship.
type Config struct {
	ListenAddr string

	TargetFPS       int
	BufferSlots     int
	MaxFrameSize    int
	ConsumerTimeout time.Duration
	StopTimeout     time.Duration

	Source      string
	SourceDir   string
	Width       int
	Height      int
	JPEGQuality int

	SingleClient bool

	RelayURL     string
	RelayTimeout time.Duration

	StatsInterval time.Duration
	StateDir      string
	LogLevel      string
	WatchConfig   bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8080",
		TargetFPS:       3,
		BufferSlots:     3,
		MaxFrameSize:    100 * 1024,
		ConsumerTimeout: time.Second,
		StopTimeout:     time.Second,
		Source:          SourcePattern,
		Width:           320,
		Height:          240,
		JPEGQuality:     60,
		SingleClient:    true,
		RelayTimeout:    10 * time.Second,
		StatsInterval:   30 * time.Second,
		StateDir:        "", // Derived during Validate
		LogLevel:        "info",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.TargetFPS < 1 || c.TargetFPS > 30 {
		return fmt.Errorf("fps must be between 1 and 30, got %d", c.TargetFPS)
	}
	if c.BufferSlots < 1 {
		return fmt.Errorf("buffer-slots must be at least 1")
	}
	if c.MaxFrameSize < 1 {
		return fmt.Errorf("max-frame-size must be at least 1 byte")
	}
	if c.ConsumerTimeout < 0 {
		return fmt.Errorf("consumer-timeout must not be negative")
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("stop-timeout must be positive")
	}

	switch c.Source {
	case SourcePattern:
		if c.Width <= 0 || c.Height <= 0 {
			return fmt.Errorf("width and height must be positive")
		}
		if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
			return fmt.Errorf("quality must be between 1 and 100, got %d", c.JPEGQuality)
		}
	case SourceDirectory:
		if c.SourceDir == "" {
			return fmt.Errorf("source-dir is required for the dir source")
		}
	default:
		return fmt.Errorf("unknown source %q (want %s or %s)", c.Source, SourcePattern, SourceDirectory)
	}

	// Ensure no trailing slash
	c.RelayURL = strings.TrimRight(c.RelayURL, "/")
	if c.RelayURL != "" && c.RelayTimeout <= 0 {
		return fmt.Errorf("relay-timeout must be positive")
	}

	if c.StatsInterval <= 0 {
		return fmt.Errorf("stats-interval must be positive")
	}

	if c.StateDir == "" {
		c.StateDir = DefaultStateDir()
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// DefaultStateDir returns ~/.frameship, or a directory under the system temp
// dir when the home directory is unavailable.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".frameship")
	}
	return filepath.Join(os.TempDir(), "frameship")
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
