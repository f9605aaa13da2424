package frameship

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/frameship/internal/domain"
)

// Frame source kinds.
const (
	SourcePattern   = "pattern"
	SourceDirectory = "dir"
)

// Config holds the configuration of an embedded frameship instance.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config struct {
	// ListenAddr is the HTTP listen address. Empty disables the transport.
	ListenAddr string

	// TargetFPS is the capture rate, 1..30.
	TargetFPS int

	// BufferSlots is the ring buffer capacity in frames.
	BufferSlots int

	// MaxFrameSize is the largest frame, in bytes, a slot can hold.
	MaxFrameSize int

	// ConsumerTimeout bounds a single /capture read.
	ConsumerTimeout time.Duration

	// StopTimeout bounds the wait for the producer on Stop.
	StopTimeout time.Duration

	// Source selects the built-in frame source ("pattern" or "dir").
	// Ignored when WithFrameSource is given.
	Source    string
	SourceDir string

	// Test pattern geometry and JPEG quality.
	Width       int
	Height      int
	JPEGQuality int

	// SingleClient rejects a second live viewer.
	SingleClient bool

	// RelayURL enables forwarding every frame to a remote ingest service.
	RelayURL     string
	RelayTimeout time.Duration

	// StatsInterval is the period of the stats reporter.
	StatsInterval time.Duration

	// StateDir receives status.json. Empty disables persistence.
	StateDir string
}

// DefaultConfig returns a Config with sensible default values.
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
	}
}

// SetDefaults fills zero fields with their defaults.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.TargetFPS == 0 {
		c.TargetFPS = d.TargetFPS
	}
	if c.BufferSlots == 0 {
		c.BufferSlots = d.BufferSlots
	}
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = d.MaxFrameSize
	}
	if c.ConsumerTimeout == 0 {
		c.ConsumerTimeout = d.ConsumerTimeout
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = d.StopTimeout
	}
	if c.Source == "" {
		c.Source = d.Source
	}
	if c.Width == 0 {
		c.Width = d.Width
	}
	if c.Height == 0 {
		c.Height = d.Height
	}
	if c.JPEGQuality == 0 {
		c.JPEGQuality = d.JPEGQuality
	}
	if c.RelayTimeout == 0 {
		c.RelayTimeout = d.RelayTimeout
	}
	if c.StatsInterval == 0 {
		c.StatsInterval = d.StatsInterval
	}
	c.RelayURL = strings.TrimRight(c.RelayURL, "/")
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Source != SourcePattern && c.Source != SourceDirectory {
		return fmt.Errorf("%w: unknown source %q", domain.ErrInvalidConfig, c.Source)
	}
	if c.Source == SourceDirectory && c.SourceDir == "" {
		return fmt.Errorf("%w: source dir is required for the dir source", domain.ErrInvalidConfig)
	}
	if c.StatsInterval < 0 {
		return fmt.Errorf("%w: stats interval must not be negative", domain.ErrInvalidConfig)
	}
	if c.RelayURL != "" && c.RelayTimeout <= 0 {
		return fmt.Errorf("%w: relay timeout must be positive", domain.ErrInvalidConfig)
	}
	return c.streamConfig().Validate()
}
