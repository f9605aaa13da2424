package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (FRAMESHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", os.Getenv("FRAMESHIP_LISTEN_ADDR"), &cfg.ListenAddr)
	s.setString("source", os.Getenv("FRAMESHIP_SOURCE"), &cfg.Source)
	s.setString("source-dir", os.Getenv("FRAMESHIP_SOURCE_DIR"), &cfg.SourceDir)
	s.setString("relay-url", os.Getenv("FRAMESHIP_RELAY_URL"), &cfg.RelayURL)
	s.setString("state-dir", os.Getenv("FRAMESHIP_STATE_DIR"), &cfg.StateDir)
	s.setString("log-level", os.Getenv("FRAMESHIP_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("consumer-timeout", os.Getenv("FRAMESHIP_CONSUMER_TIMEOUT"), &cfg.ConsumerTimeout); err != nil {
		return err
	}
	if err := s.setDuration("stop-timeout", os.Getenv("FRAMESHIP_STOP_TIMEOUT"), &cfg.StopTimeout); err != nil {
		return err
	}
	if err := s.setDuration("relay-timeout", os.Getenv("FRAMESHIP_RELAY_TIMEOUT"), &cfg.RelayTimeout); err != nil {
		return err
	}
	if err := s.setDuration("stats-interval", os.Getenv("FRAMESHIP_STATS_INTERVAL"), &cfg.StatsInterval); err != nil {
		return err
	}

	if err := s.setIntFromString("fps", os.Getenv("FRAMESHIP_TARGET_FPS"), &cfg.TargetFPS); err != nil {
		return err
	}
	if err := s.setIntFromString("buffer-slots", os.Getenv("FRAMESHIP_BUFFER_SLOTS"), &cfg.BufferSlots); err != nil {
		return err
	}
	if err := s.setIntFromString("max-frame-size", os.Getenv("FRAMESHIP_MAX_FRAME_SIZE"), &cfg.MaxFrameSize); err != nil {
		return err
	}
	if err := s.setIntFromString("width", os.Getenv("FRAMESHIP_WIDTH"), &cfg.Width); err != nil {
		return err
	}
	if err := s.setIntFromString("height", os.Getenv("FRAMESHIP_HEIGHT"), &cfg.Height); err != nil {
		return err
	}
	if err := s.setIntFromString("quality", os.Getenv("FRAMESHIP_JPEG_QUALITY"), &cfg.JPEGQuality); err != nil {
		return err
	}

	s.setBoolFromString("single-client", os.Getenv("FRAMESHIP_SINGLE_CLIENT"), &cfg.SingleClient)
	s.setBoolFromString("watch-config", os.Getenv("FRAMESHIP_WATCH_CONFIG"), &cfg.WatchConfig)

	return nil
}
