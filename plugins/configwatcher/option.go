package configwatcher

import "github.com/bft-labs/frameship/pkg/frameship"

// WithConfigWatcher returns a frameship Option that enables config file
// watching. When enabled, the plugin reloads target_fps from the TOML file
// whenever it changes and applies it to the running streamer.
//
// Usage:
//
//	fs, err := frameship.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/frameship/config.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) frameship.Option {
	return frameship.WithPlugin(New(cfg))
}
