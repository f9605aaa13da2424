package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/frameship/internal/domain"
	"github.com/bft-labs/frameship/internal/ports"
	"github.com/bft-labs/frameship/pkg/ringbuffer"
)

// Frame-rate bounds accepted by SetTargetFPS and StreamConfig.
const (
	MinTargetFPS = 1
	MaxTargetFPS = 30
)

// StreamConfig holds the parameters consumed by Streamer.Init.
type StreamConfig struct {
	// TargetFPS is the capture rate (1-30)
	TargetFPS int

	// BufferSlots is the number of ring buffer slots
	BufferSlots int

	// MaxFrameSize is the per-slot byte capacity
	MaxFrameSize int

	// ConsumerTimeout is the GetFrame timeout callers are expected to use
	ConsumerTimeout time.Duration

	// StopTimeout bounds how long Stop waits for the producer to exit
	StopTimeout time.Duration
}

// DefaultStreamConfig returns a StreamConfig with default values.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		TargetFPS:       3,
		BufferSlots:     ringbuffer.DefaultSlots,
		MaxFrameSize:    ringbuffer.DefaultMaxFrameSize,
		ConsumerTimeout: time.Second,
		StopTimeout:     time.Second,
	}
}

// Validate checks that the configuration is usable.
func (c StreamConfig) Validate() error {
	if c.TargetFPS < MinTargetFPS || c.TargetFPS > MaxTargetFPS {
		return fmt.Errorf("%w: target fps %d out of range [%d, %d]", domain.ErrInvalidConfig, c.TargetFPS, MinTargetFPS, MaxTargetFPS)
	}
	if c.BufferSlots < 1 {
		return fmt.Errorf("%w: buffer slots must be at least 1", domain.ErrInvalidConfig)
	}
	if c.MaxFrameSize < 1 {
		return fmt.Errorf("%w: max frame size must be at least 1 byte", domain.ErrInvalidConfig)
	}
	if c.ConsumerTimeout < 0 {
		return fmt.Errorf("%w: consumer timeout must not be negative", domain.ErrInvalidConfig)
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("%w: stop timeout must be positive", domain.ErrInvalidConfig)
	}
	return nil
}

// Frame is a borrowed frame handed out by GetFrame.
// Data aliases buffer memory and must not be used after ReleaseFrame.
type Frame struct {
	Data      []byte
	Timestamp int64

	// gen identifies the borrow; zero for frames not obtained from GetFrame.
	gen uint64
}

// Streamer captures frames on a fixed schedule into a ring buffer and hands
// them to consumers through a blocking pull API.
//
// One producer goroutine exists between Start and Stop. Any number of
// consumers may call GetFrame concurrently, but only one frame is borrowed at
// a time: a consumer holds the borrow from a successful GetFrame until it
// passes the same Frame to ReleaseFrame. A borrow survives Stop and Start.
type Streamer struct {
	source    ports.FrameSource
	clock     ports.Clock
	logger    ports.Logger
	lifecycle *Lifecycle

	// mu serializes Init, Start, Stop and Close.
	mu     sync.Mutex
	cfg    StreamConfig
	cancel context.CancelFunc
	done   chan struct{}

	buffer ringbuffer.Buffer
	stats  Stats
	wake   *signal

	// borrowMu guards holder and nextGen. holder is the generation of the
	// outstanding borrow, zero when no frame is borrowed.
	borrowMu sync.Mutex
	holder   uint64
	nextGen  uint64

	intervalUs    atomic.Int64
	targetFPS     atomic.Int64
	stopRequested atomic.Bool
}

// NewStreamer creates a streamer reading from source and scheduling with clock.
// emitter may be nil.
func NewStreamer(source ports.FrameSource, clock ports.Clock, logger ports.Logger, emitter EventEmitter) *Streamer {
	return &Streamer{
		source:    source,
		clock:     clock,
		logger:    logger,
		lifecycle: NewLifecycle(logger, emitter),
		wake:      newSignal(),
	}
}

// Init allocates the ring buffer and computes the capture interval.
// Init on an initialized streamer is a no-op.
func (s *Streamer) Init(cfg StreamConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.lifecycle.State() {
	case StateUninitialized, StateTornDown:
	default:
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.buffer.Init(cfg.BufferSlots, cfg.MaxFrameSize); err != nil {
		return fmt.Errorf("init frame buffer: %w", err)
	}

	s.cfg = cfg
	s.setInterval(cfg.TargetFPS)

	s.logger.Info("streamer initialized",
		ports.TargetFPS(cfg.TargetFPS),
		ports.Int("buffer_slots", cfg.BufferSlots),
		ports.Int("max_frame_size", cfg.MaxFrameSize),
	)
	return s.lifecycle.TransitionTo(StateInitialized, "init")
}

// Start resets statistics, clears the buffer and launches the producer.
// A frame borrowed before Start stays in the buffer until it is released.
// Start on a running streamer is a no-op.
func (s *Streamer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		if s.lifecycle.State() == StateRunning {
			return nil
		}
		return domain.ErrNotInitialized
	}

	// A producer detached by a timed-out Stop may still be inside the source.
	if s.done != nil {
		select {
		case <-s.done:
		default:
			return fmt.Errorf("%w: previous producer has not exited", domain.ErrStopTimeout)
		}
	}

	s.stats.reset()
	s.buffer.ClearUnread()
	s.buffer.ResetStats()
	s.stopRequested.Store(false)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	done := make(chan struct{})
	go s.produce(ctx, started, done)
	<-started

	s.cancel = cancel
	s.done = done
	s.stats.running.Store(true)

	return s.lifecycle.TransitionTo(StateRunning, "start")
}

// Stop signals the producer to exit, wakes blocked consumers and waits for
// the producer up to the configured stop timeout. If the producer does not
// exit in time it is detached and ErrStopTimeout is returned; the streamer is
// stopped either way. Stop is safe to call in any state.
func (s *Streamer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Streamer) stopLocked() error {
	if !s.lifecycle.CanStop() {
		return nil
	}
	if err := s.lifecycle.TransitionTo(StateStopping, "stop requested"); err != nil {
		return err
	}

	s.stopRequested.Store(true)
	s.stats.running.Store(false)
	s.wake.Broadcast()
	s.cancel()

	err := s.lifecycle.WaitWithTimeout(s.done, s.cfg.StopTimeout)

	if terr := s.lifecycle.TransitionTo(StateInitialized, "stopped"); terr != nil {
		return terr
	}

	snap := s.stats.Snapshot()
	s.logger.Info("streamer stopped",
		ports.Uint64("captured", snap.Captured),
		ports.Uint64("sent", snap.Sent),
		ports.Uint64("dropped", snap.Dropped),
		ports.Uint64("capture_errors", snap.CaptureErrors),
	)
	return err
}

// Close stops the streamer and releases the ring buffer.
// The streamer may be initialized again afterwards.
func (s *Streamer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.stopLocked()
	if s.lifecycle.State() != StateInitialized {
		return err
	}

	s.borrowMu.Lock()
	s.holder = 0
	s.buffer.Deinit()
	s.borrowMu.Unlock()

	if terr := s.lifecycle.TransitionTo(StateTornDown, "close"); terr != nil {
		return terr
	}
	return err
}

// produce is the producer loop. It runs until ctx is cancelled.
func (s *Streamer) produce(ctx context.Context, started, done chan<- struct{}) {
	defer close(done)
	close(started)

	next := s.clock.NowMicros()
	for ctx.Err() == nil {
		now := s.clock.NowMicros()
		if now < next {
			s.clock.Sleep(ctx, time.Duration(next-now)*time.Microsecond)
			continue
		}

		s.captureOnce(ctx)

		interval := s.intervalUs.Load()
		next += interval
		if now = s.clock.NowMicros(); next < now {
			// Behind schedule: skip the backlog and let consumers catch up.
			next = now + interval
			s.clock.Yield()
		}
	}
}

// captureOnce acquires a single frame and pushes it into the buffer.
// The source is released on every path.
func (s *Streamer) captureOnce(ctx context.Context) {
	view, err := s.source.Acquire(ctx)
	defer s.source.Release()

	// Stop won the race with a slow acquire; this run is over.
	if ctx.Err() != nil {
		return
	}

	if err != nil || !view.Valid() {
		if err == nil {
			err = domain.ErrCaptureFailed
		}
		s.stats.captureErrors.Add(1)
		s.logger.Debug("frame capture failed", ports.Err(err))
		return
	}

	ts := view.Timestamp
	if ts == 0 {
		ts = s.clock.NowMicros()
	}

	if err := s.buffer.Push(view.Data, ts); err != nil {
		s.logger.Warn("frame rejected by buffer",
			ports.Bytes(view.Size()),
			ports.Err(err),
		)
		return
	}

	s.stats.captured.Add(1)
	s.stats.syncDropped(s.buffer.Dropped())
	s.wake.Broadcast()
}

// GetFrame waits up to timeout for a frame and borrows the oldest one.
// A timeout of zero checks once and never blocks. It returns false on
// timeout, when the streamer is stopped while waiting, or when another
// consumer holds the borrow. A successful call must be paired with
// ReleaseFrame of the returned Frame.
func (s *Streamer) GetFrame(timeout time.Duration) (Frame, bool) {
	if !s.buffer.Initialized() {
		return Frame{}, false
	}

	if timeout <= 0 {
		return s.tryBorrow()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		wake := s.wake.Wait()
		if s.stopRequested.Load() {
			return Frame{}, false
		}
		if f, ok := s.tryBorrow(); ok {
			return f, true
		}

		select {
		case <-wake:
		case <-timer.C:
			return Frame{}, false
		}
	}
}

// ReleaseFrame ends the borrow of f, removes the frame from the buffer and
// counts it as sent. It reports whether f was the outstanding borrow; a frame
// that was already released, or did not come from GetFrame, is ignored.
func (s *Streamer) ReleaseFrame(f Frame) bool {
	s.borrowMu.Lock()
	if f.gen == 0 || f.gen != s.holder {
		s.borrowMu.Unlock()
		return false
	}
	s.buffer.Pop()
	s.holder = 0
	s.borrowMu.Unlock()

	s.stats.sent.Add(1)
	s.wake.Broadcast()
	return true
}

// WithFrame borrows a frame, passes it to fn and releases it when fn returns.
// It reports whether a frame was available.
func (s *Streamer) WithFrame(timeout time.Duration, fn func(Frame) error) (bool, error) {
	f, ok := s.GetFrame(timeout)
	if !ok {
		return false, nil
	}
	defer s.ReleaseFrame(f)
	return true, fn(f)
}

// tryBorrow peeks the oldest frame and records a new borrow for it. It fails
// when another borrow is outstanding or the buffer is empty.
func (s *Streamer) tryBorrow() (Frame, bool) {
	s.borrowMu.Lock()
	defer s.borrowMu.Unlock()

	if s.holder != 0 {
		return Frame{}, false
	}
	v, err := s.buffer.Peek()
	if err != nil {
		return Frame{}, false
	}

	s.nextGen++
	s.holder = s.nextGen
	return Frame{Data: v.Data, Timestamp: v.Timestamp, gen: s.holder}, true
}

// SetTargetFPS changes the capture rate for subsequent scheduling.
// Values outside [1, 30] are ignored; the return value reports acceptance.
func (s *Streamer) SetTargetFPS(fps int) bool {
	if fps < MinTargetFPS || fps > MaxTargetFPS {
		return false
	}
	s.setInterval(fps)
	s.logger.Info("target fps changed", ports.TargetFPS(fps))
	return true
}

func (s *Streamer) setInterval(fps int) {
	s.targetFPS.Store(int64(fps))
	s.intervalUs.Store(1_000_000 / int64(fps))
}

// TargetFPS returns the current capture rate.
func (s *Streamer) TargetFPS() int { return int(s.targetFPS.Load()) }

// Stats returns a snapshot of the statistics block.
func (s *Streamer) Stats() domain.StatsSnapshot { return s.stats.Snapshot() }

// BufferedCount returns the number of frames waiting in the buffer.
func (s *Streamer) BufferedCount() int { return s.buffer.Available() }

// IsRunning reports whether the producer is running.
func (s *Streamer) IsRunning() bool { return s.stats.running.Load() }

// IsInitialized reports whether Init has succeeded and Close has not been called since.
func (s *Streamer) IsInitialized() bool {
	switch s.lifecycle.State() {
	case StateInitialized, StateRunning, StateStopping:
		return true
	default:
		return false
	}
}

// State returns the lifecycle state.
func (s *Streamer) State() State { return s.lifecycle.State() }

// ConsumerTimeout returns the configured GetFrame timeout for consumers.
func (s *Streamer) ConsumerTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.ConsumerTimeout
}

// Status assembles a status report from the current statistics.
func (s *Streamer) Status() domain.StatusReport {
	return domain.StatusReport{
		StatsSnapshot: s.stats.Snapshot(),
		Buffered:      s.BufferedCount(),
		TargetFPS:     s.TargetFPS(),
		UpdatedAt:     time.Now().UTC(),
	}
}
