package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	ListenAddr      string `toml:"listen_addr"`
	TargetFPS       int    `toml:"target_fps"`
	BufferSlots     int    `toml:"buffer_slots"`
	MaxFrameSize    int    `toml:"max_frame_size"`
	ConsumerTimeout string `toml:"consumer_timeout"`
	StopTimeout     string `toml:"stop_timeout"`
	Source          string `toml:"source"`
	SourceDir       string `toml:"source_dir"`
	Width           int    `toml:"width"`
	Height          int    `toml:"height"`
	JPEGQuality     int    `toml:"jpeg_quality"`
	SingleClient    *bool  `toml:"single_client"`
	RelayURL        string `toml:"relay_url"`
	RelayTimeout    string `toml:"relay_timeout"`
	StatsInterval   string `toml:"stats_interval"`
	StateDir        string `toml:"state_dir"`
	LogLevel        string `toml:"log_level"`
	WatchConfig     *bool  `toml:"watch_config"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.frameship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".frameship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("source", fc.Source, &cfg.Source)
	s.setString("source-dir", fc.SourceDir, &cfg.SourceDir)
	s.setString("relay-url", fc.RelayURL, &cfg.RelayURL)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("consumer-timeout", fc.ConsumerTimeout, &cfg.ConsumerTimeout); err != nil {
		return err
	}
	if err := s.setDuration("stop-timeout", fc.StopTimeout, &cfg.StopTimeout); err != nil {
		return err
	}
	if err := s.setDuration("relay-timeout", fc.RelayTimeout, &cfg.RelayTimeout); err != nil {
		return err
	}
	if err := s.setDuration("stats-interval", fc.StatsInterval, &cfg.StatsInterval); err != nil {
		return err
	}

	s.setInt("fps", fc.TargetFPS, &cfg.TargetFPS)
	s.setInt("buffer-slots", fc.BufferSlots, &cfg.BufferSlots)
	s.setInt("max-frame-size", fc.MaxFrameSize, &cfg.MaxFrameSize)
	s.setInt("width", fc.Width, &cfg.Width)
	s.setInt("height", fc.Height, &cfg.Height)
	s.setInt("quality", fc.JPEGQuality, &cfg.JPEGQuality)

	s.setBool("single-client", fc.SingleClient, &cfg.SingleClient)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
