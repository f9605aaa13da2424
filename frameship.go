// Package frameship runs a live frame streamer.
//
// Example usage:
//
//	cfg := frameship.DefaultConfig()
//	cfg.ListenAddr = ":8080"
//	if err := frameship.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// For finer control (plugins, custom frame sources, event handlers) use
// github.com/bft-labs/frameship/pkg/frameship directly.
package frameship

import (
	"context"
	"errors"

	lib "github.com/bft-labs/frameship/pkg/frameship"
)

// Config holds the configuration of the streamer.
type Config = lib.Config

// Run starts the streamer and blocks until ctx is cancelled, then stops it
// and releases its resources.
func Run(ctx context.Context, cfg Config, opts ...lib.Option) error {
	fs, err := lib.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := fs.Start(ctx); err != nil {
		return errors.Join(err, fs.Close())
	}
	<-ctx.Done()
	return fs.Close()
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return lib.DefaultConfig()
}
