package frameship

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/bft-labs/frameship/internal/adapters/clock"
	"github.com/bft-labs/frameship/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/frameship/internal/adapters/http"
	"github.com/bft-labs/frameship/internal/adapters/metrics"
	"github.com/bft-labs/frameship/internal/adapters/source"
	"github.com/bft-labs/frameship/internal/app"
	"github.com/bft-labs/frameship/internal/domain"
	"github.com/bft-labs/frameship/internal/ports"
)

// ShutdownTimeout bounds the wait for background workers in Stop.
const ShutdownTimeout = 10 * time.Second

// Frame is a borrowed frame. Its Data must not be used after ReleaseFrame.
type Frame = app.Frame

// StatusReport is a point-in-time view of the streamer.
type StatusReport = domain.StatusReport

// Frameship is a frame streaming service that can be embedded in other
// applications. Use New() to create an instance, then Start() to begin
// capturing and serving.
type Frameship struct {
	config    Config
	logger    ports.Logger
	streamer  *app.Streamer
	dirSource *source.DirectorySource
	collector *metrics.Collector
	server    *httpAdapter.Server
	reporter  *app.Reporter
	relay     *app.Relay
	plugins   []Plugin

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	addr    string
}

// New creates an initialized, stopped instance. Returns an error wrapping
// ErrInvalidConfig if cfg is invalid.
func New(cfg Config, opts ...Option) (*Frameship, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	clk := clock.NewSystem()

	f := &Frameship{
		config:  cfg,
		logger:  logger,
		plugins: o.plugins,
	}

	src := o.source
	var quality httpAdapter.QualitySetter
	if src == nil {
		switch cfg.Source {
		case SourceDirectory:
			f.dirSource = source.NewDirectorySource(cfg.SourceDir, logger)
			src = f.dirSource
		default:
			pattern, err := source.NewPatternSource(source.PatternConfig{
				Width:   cfg.Width,
				Height:  cfg.Height,
				Quality: cfg.JPEGQuality,
			}, clk.NowMicros)
			if err != nil {
				return nil, err
			}
			src, quality = pattern, pattern
		}
	}

	f.streamer = app.NewStreamer(src, clk, logger, emitter)
	if err := f.streamer.Init(cfg.streamConfig()); err != nil {
		return nil, err
	}

	f.collector = metrics.NewCollector(f.streamer)

	if cfg.ListenAddr != "" {
		f.server = httpAdapter.NewServer(httpAdapter.ServerConfig{
			Addr:         cfg.ListenAddr,
			SingleClient: cfg.SingleClient,
		}, f.streamer, quality, f.collector, logger)
	}

	var repo ports.StatusRepository
	if cfg.StateDir != "" {
		repo = fs.NewStatusFileRepository(cfg.StateDir)
	}
	if cfg.StatsInterval > 0 {
		f.reporter = app.NewReporter(f.streamer, repo, logger, cfg.StatsInterval)
	}

	if cfg.RelayURL != "" {
		client := o.httpClient
		if client == nil {
			client = &http.Client{Timeout: cfg.RelayTimeout}
		}
		f.relay = app.NewRelay(app.RelayConfig{
			Hostname:   hostname(),
			OSArch:     runtime.GOOS + "/" + runtime.GOARCH,
			ServiceURL: cfg.RelayURL,
		}, f.streamer, httpAdapter.NewFrameSender(client, logger), logger, sendEmitters{f.collector, emitter})
	}

	return f, nil
}

// Start binds the listener, starts the producer and launches the background
// workers. Returns ErrAlreadyRunning if already started.
func (f *Frameship) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		return domain.ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)

	if f.dirSource != nil {
		if err := f.dirSource.Start(runCtx); err != nil {
			cancel()
			return fmt.Errorf("start directory source: %w", err)
		}
	}

	var ln net.Listener
	if f.server != nil {
		var err error
		ln, err = net.Listen("tcp", f.config.ListenAddr)
		if err != nil {
			f.closeSource()
			cancel()
			return fmt.Errorf("listen %s: %w", f.config.ListenAddr, err)
		}
		f.addr = ln.Addr().String()
	}

	rollback := func() {
		if ln != nil {
			ln.Close()
		}
		f.closeSource()
		cancel()
	}

	if err := f.streamer.Start(); err != nil {
		rollback()
		return err
	}

	pluginCfg := PluginConfig{
		ListenAddr: f.addr,
		StateDir:   f.config.StateDir,
		Stream:     f.streamer,
		Logger:     f.logger,
	}
	for i, p := range f.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			f.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			for j := i - 1; j >= 0; j-- {
				_ = f.plugins[j].Shutdown(context.Background())
			}
			_ = f.streamer.Stop()
			rollback()
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		f.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	if f.server != nil {
		f.goWorker("http server", func() error { return f.server.Serve(runCtx, ln) })
	}
	if f.reporter != nil {
		f.goWorker("stats reporter", func() error { return f.reporter.Run(runCtx) })
	}
	if f.relay != nil {
		f.goWorker("relay", func() error { return f.relay.Run(runCtx) })
	}

	f.cancel = cancel
	f.running = true
	return nil
}

// goWorker runs fn in a tracked goroutine and logs unexpected errors.
func (f *Frameship) goWorker(name string, fn func() error) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
			f.logger.Error("worker exited", ports.String("worker", name), ports.Err(err))
		}
	}()
}

// Stop stops the producer, which wakes every blocked consumer, then stops
// the background workers and plugins. The instance can be started again.
// Returns ErrNotRunning if not started, and ErrStopTimeout if the producer
// or workers did not exit in time.
func (f *Frameship) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.running {
		return domain.ErrNotRunning
	}
	f.running = false

	stopErr := f.streamer.Stop()
	f.cancel()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	var waitErr error
	select {
	case <-done:
	case <-time.After(ShutdownTimeout):
		f.logger.Warn("workers did not stop in time", ports.Duration("timeout", ShutdownTimeout))
		waitErr = fmt.Errorf("%w: background workers", domain.ErrStopTimeout)
	}

	f.closeSource()

	shutdownCtx := context.Background()
	for i := len(f.plugins) - 1; i >= 0; i-- {
		p := f.plugins[i]
		if err := p.Shutdown(shutdownCtx); err != nil {
			f.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			f.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}

	return errors.Join(stopErr, waitErr)
}

// Close stops the instance if running and releases the ring buffer.
// The instance cannot be used afterwards.
func (f *Frameship) Close() error {
	var stopErr error
	if err := f.Stop(); err != nil && !errors.Is(err, domain.ErrNotRunning) {
		stopErr = err
	}
	return errors.Join(stopErr, f.streamer.Close())
}

func (f *Frameship) closeSource() {
	if f.dirSource != nil {
		_ = f.dirSource.Close()
	}
}

// State returns the streamer lifecycle state.
func (f *Frameship) State() State {
	return convertState(f.streamer.State())
}

// Status returns the current statistics and configuration snapshot.
// Safe to call concurrently from any goroutine.
func (f *Frameship) Status() StatusReport {
	return f.streamer.Status()
}

// Addr returns the bound HTTP address, or "" before Start or when the
// transport is disabled.
func (f *Frameship) Addr() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addr
}

// SetTargetFPS changes the capture rate while running.
// Returns false when fps is outside 1..30.
func (f *Frameship) SetTargetFPS(fps int) bool {
	return f.streamer.SetTargetFPS(fps)
}

// TargetFPS returns the current capture rate.
func (f *Frameship) TargetFPS() int {
	return f.streamer.TargetFPS()
}

// GetFrame borrows the oldest buffered frame, waiting up to timeout.
// A successful call must be paired with ReleaseFrame.
func (f *Frameship) GetFrame(timeout time.Duration) (Frame, bool) {
	return f.streamer.GetFrame(timeout)
}

// ReleaseFrame removes a frame returned by GetFrame from the buffer and
// reports whether it was the outstanding borrow. Releasing the same frame
// twice is a no-op.
func (f *Frameship) ReleaseFrame(frame Frame) bool {
	return f.streamer.ReleaseFrame(frame)
}

// WithFrame borrows a frame, passes it to fn and releases it.
// Returns false if no frame was available within timeout.
func (f *Frameship) WithFrame(timeout time.Duration, fn func(Frame) error) (bool, error) {
	return f.streamer.WithFrame(timeout, fn)
}

// streamConfig converts the public configuration for the streamer.
func (c Config) streamConfig() app.StreamConfig {
	return app.StreamConfig{
		TargetFPS:       c.TargetFPS,
		BufferSlots:     c.BufferSlots,
		MaxFrameSize:    c.MaxFrameSize,
		ConsumerTimeout: c.ConsumerTimeout,
		StopTimeout:     c.StopTimeout,
	}
}

// hostname returns the current hostname.
func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
