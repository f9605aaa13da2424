package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/frameship/internal/cliconfig"
	"github.com/bft-labs/frameship/pkg/frameship"
	"github.com/bft-labs/frameship/pkg/log"
	"github.com/bft-labs/frameship/plugins/configwatcher"
)

const helpDescription = `
Capture frames at a steady rate and serve them live over HTTP.

Highlights:
  - Bounded ring buffer: slow viewers drop old frames, never stall capture.
  - MJPEG /stream, /capture snapshots, websocket /ws, /status and /metrics.
  - Optional relay of every frame to a remote ingest service.
  - Configure via file, env, or flags; target_fps reloads live from the file.
`

var exampleUsage = strings.TrimSpace(`
  frameship --listen :8080 --fps 10
  frameship --source dir --source-dir /var/snapshots --relay-url https://ingest.example.com
  frameship --config $HOME/.frameship/config.toml --watch-config
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	logger := log.NewConsoleLogger(os.Stderr)

	root := &cobra.Command{
		Use:          "frameship",
		Short:        "Capture frames at a steady rate and serve them live over HTTP",
		Long:         strings.TrimSpace(helpDescription),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Environment (FRAMESHIP_*) overrides the file; flags override both.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return fmt.Errorf("environment: %w", err)
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			level, _ := log.ParseLevel(cfg.LogLevel)
			zerolog.SetGlobalLevel(level)
			logger.Info().Interface("config", cfg).Msg("configuration")

			opts := []frameship.Option{
				frameship.WithLogger(log.NewZerologAdapterWithLogger(logger)),
			}
			if cfg.WatchConfig {
				if cliconfig.FileExists(cfgFile) {
					opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.DefaultConfig(cfgFile)))
				} else {
					logger.Warn().Str("path", cfgFile).Msg("watch-config set but config file not found")
				}
			}

			fs, err := frameship.New(libConfig(cfg), opts...)
			if err != nil {
				return fmt.Errorf("create frameship: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := fs.Start(ctx); err != nil {
				_ = fs.Close()
				return fmt.Errorf("start frameship: %w", err)
			}
			logger.Info().Str("addr", fs.Addr()).Msg("frameship running")

			<-ctx.Done()
			logger.Info().Msg("received signal, stopping...")

			if err := fs.Close(); err != nil && !errors.Is(err, frameship.ErrStopTimeout) {
				return fmt.Errorf("stop frameship: %w", err)
			}
			return nil
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.frameship/config.toml)")
	root.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address")

	root.Flags().IntVar(&cfg.TargetFPS, "fps", cfg.TargetFPS, "capture rate in frames per second (1-30)")
	root.Flags().IntVar(&cfg.BufferSlots, "buffer-slots", cfg.BufferSlots, "ring buffer capacity in frames")
	root.Flags().IntVar(&cfg.MaxFrameSize, "max-frame-size", cfg.MaxFrameSize, "largest frame in bytes")
	root.Flags().DurationVar(&cfg.ConsumerTimeout, "consumer-timeout", cfg.ConsumerTimeout, "snapshot wait timeout")
	root.Flags().DurationVar(&cfg.StopTimeout, "stop-timeout", cfg.StopTimeout, "wait for the producer on stop")

	root.Flags().StringVar(&cfg.Source, "source", cfg.Source, "frame source: pattern or dir")
	root.Flags().StringVar(&cfg.SourceDir, "source-dir", cfg.SourceDir, "directory of JPEG snapshots for the dir source")
	root.Flags().IntVar(&cfg.Width, "width", cfg.Width, "test pattern width")
	root.Flags().IntVar(&cfg.Height, "height", cfg.Height, "test pattern height")
	root.Flags().IntVar(&cfg.JPEGQuality, "quality", cfg.JPEGQuality, "test pattern JPEG quality (1-100)")

	root.Flags().BoolVar(&cfg.SingleClient, "single-client", cfg.SingleClient, "allow only one live MJPEG viewer")

	root.Flags().StringVar(&cfg.RelayURL, "relay-url", cfg.RelayURL, "forward every frame to this ingest service")
	root.Flags().DurationVar(&cfg.RelayTimeout, "relay-timeout", cfg.RelayTimeout, "relay HTTP timeout")

	root.Flags().DurationVar(&cfg.StatsInterval, "stats-interval", cfg.StatsInterval, "stats log and status.json interval")
	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for status.json (default: $HOME/.frameship)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	root.Flags().BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload target_fps when the config file changes")

	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("frameship")
		os.Exit(1)
	}
}

// libConfig converts the CLI configuration for the library.
func libConfig(cfg cliconfig.Config) frameship.Config {
	return frameship.Config{
		ListenAddr:      cfg.ListenAddr,
		TargetFPS:       cfg.TargetFPS,
		BufferSlots:     cfg.BufferSlots,
		MaxFrameSize:    cfg.MaxFrameSize,
		ConsumerTimeout: cfg.ConsumerTimeout,
		StopTimeout:     cfg.StopTimeout,
		Source:          cfg.Source,
		SourceDir:       cfg.SourceDir,
		Width:           cfg.Width,
		Height:          cfg.Height,
		JPEGQuality:     cfg.JPEGQuality,
		SingleClient:    cfg.SingleClient,
		RelayURL:        cfg.RelayURL,
		RelayTimeout:    cfg.RelayTimeout,
		StatsInterval:   cfg.StatsInterval,
		StateDir:        cfg.StateDir,
	}
}
