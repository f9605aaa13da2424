package app

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bft-labs/frameship/internal/domain"
)

// mockSource implements ports.FrameSource for testing.
type mockSource struct {
	mu        sync.Mutex
	acquires  int
	releases  int
	failEvery int           // every nth acquire fails; 0 never fails
	failAll   bool          // every acquire fails
	block     chan struct{} // when set, Acquire waits for it to close
	frameSize int
}

func (m *mockSource) Acquire(ctx context.Context) (domain.FrameView, error) {
	if m.block != nil {
		<-m.block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquires++

	if m.failAll || (m.failEvery > 0 && m.acquires%m.failEvery == 0) {
		return domain.FrameView{}, errors.New("no frame")
	}

	size := m.frameSize
	if size == 0 {
		size = 16
	}
	return domain.FrameView{
		Data:   bytes.Repeat([]byte{byte(m.acquires)}, size),
		Width:  4,
		Height: 4,
	}, nil
}

func (m *mockSource) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
}

func (m *mockSource) setFailAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = true
}

func (m *mockSource) counts() (acquires, releases int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquires, m.releases
}

// mockClock advances virtual time on Sleep and Yield, sleeping only briefly
// in real time so the producer stays cancellable.
type mockClock struct {
	now    atomic.Int64
	yields atomic.Int64
}

func newMockClock() *mockClock {
	c := &mockClock{}
	c.now.Store(int64(time.Second / time.Microsecond))
	return c
}

func (c *mockClock) NowMicros() int64 { return c.now.Load() }

func (c *mockClock) Sleep(ctx context.Context, d time.Duration) {
	c.now.Add(d.Microseconds())
	select {
	case <-ctx.Done():
	case <-time.After(200 * time.Microsecond):
	}
}

func (c *mockClock) Yield() {
	c.yields.Add(1)
	c.now.Add(100)
	runtime.Gosched()
}

// timedSource records the clock at every Acquire. The acquire numbered
// stallOn (1-based) advances the clock by stall before returning.
type timedSource struct {
	clock   *mockClock
	stallOn int
	stall   time.Duration

	mu    sync.Mutex
	times []int64
}

func (m *timedSource) Acquire(ctx context.Context) (domain.FrameView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.times = append(m.times, m.clock.NowMicros())
	if len(m.times) == m.stallOn {
		m.clock.now.Add(m.stall.Microseconds())
	}
	return domain.FrameView{Data: []byte{byte(len(m.times))}, Width: 1, Height: 1}, nil
}

func (m *timedSource) Release() {}

func (m *timedSource) acquireTimes() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.times...)
}

// runUntilAcquires starts s and stops it once src has seen n acquires.
func runUntilAcquires(t *testing.T, s *Streamer, src *timedSource, n int) []int64 {
	t.Helper()
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(src.acquireTimes()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d acquires before deadline", len(src.acquireTimes()))
		}
		time.Sleep(time.Millisecond)
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	return src.acquireTimes()
}

// realClock uses wall time.
type realClock struct {
	start time.Time
}

func newRealClock() *realClock { return &realClock{start: time.Now()} }

func (c *realClock) NowMicros() int64 { return time.Since(c.start).Microseconds() }

func (c *realClock) Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c *realClock) Yield() { runtime.Gosched() }

func testConfig() StreamConfig {
	cfg := DefaultStreamConfig()
	cfg.TargetFPS = 30
	cfg.MaxFrameSize = 4096
	return cfg
}

func newTestStreamer(t *testing.T, src *mockSource, cfg StreamConfig) *Streamer {
	t.Helper()
	s := NewStreamer(src, newMockClock(), &mockLogger{}, nil)
	if err := s.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStreamConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*StreamConfig)
	}{
		{"fps zero", func(c *StreamConfig) { c.TargetFPS = 0 }},
		{"fps too high", func(c *StreamConfig) { c.TargetFPS = 31 }},
		{"no slots", func(c *StreamConfig) { c.BufferSlots = 0 }},
		{"zero frame size", func(c *StreamConfig) { c.MaxFrameSize = 0 }},
		{"negative consumer timeout", func(c *StreamConfig) { c.ConsumerTimeout = -time.Second }},
		{"zero stop timeout", func(c *StreamConfig) { c.StopTimeout = 0 }},
	}

	if err := DefaultStreamConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultStreamConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestStreamer_InitRejectsInvalidConfig(t *testing.T) {
	s := NewStreamer(&mockSource{}, &mockClock{}, &mockLogger{}, nil)

	cfg := testConfig()
	cfg.BufferSlots = 0
	if err := s.Init(cfg); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("Init() = %v, want ErrInvalidConfig", err)
	}
	if s.IsInitialized() {
		t.Error("IsInitialized() = true after failed Init")
	}
	if s.State() != StateUninitialized {
		t.Errorf("State() = %v, want Uninitialized", s.State())
	}
}

func TestStreamer_InitIdempotent(t *testing.T) {
	s := newTestStreamer(t, &mockSource{}, testConfig())

	other := testConfig()
	other.TargetFPS = 5
	if err := s.Init(other); err != nil {
		t.Fatalf("second Init() = %v", err)
	}
	if s.TargetFPS() != 30 {
		t.Errorf("TargetFPS() = %d after second Init, want 30", s.TargetFPS())
	}
}

func TestStreamer_StartRequiresInit(t *testing.T) {
	s := NewStreamer(&mockSource{}, &mockClock{}, &mockLogger{}, nil)
	if err := s.Start(); !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("Start() = %v, want ErrNotInitialized", err)
	}
}

func TestStreamer_StopIsIdempotent(t *testing.T) {
	s := NewStreamer(&mockSource{}, &mockClock{}, &mockLogger{}, nil)

	// Before Init
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() before Init = %v", err)
	}

	if err := s.Init(testConfig()); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() before Start = %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Errorf("second Start() = %v", err)
	}
	if !s.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}

	for i := 0; i < 3; i++ {
		if err := s.Stop(); err != nil {
			t.Errorf("Stop() #%d = %v", i, err)
		}
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	if s.State() != StateInitialized {
		t.Errorf("State() = %v after Stop, want Initialized", s.State())
	}
	_ = s.Close()
}

func TestStreamer_CaptureRate(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	src := &mockSource{}
	s := NewStreamer(src, newRealClock(), &mockLogger{}, nil)
	cfg := testConfig()
	if err := s.Init(cfg); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}

	stats := s.Stats()
	if stats.Captured < 4 || stats.Captured > 8 {
		t.Errorf("captured = %d over 200ms at 30fps, want about 6", stats.Captured)
	}
	if stats.Captured > uint64(cfg.BufferSlots) {
		want := stats.Captured - uint64(cfg.BufferSlots)
		if stats.Dropped != want {
			t.Errorf("dropped = %d, want %d", stats.Dropped, want)
		}
	}
	if s.BufferedCount() > cfg.BufferSlots {
		t.Errorf("BufferedCount() = %d exceeds %d slots", s.BufferedCount(), cfg.BufferSlots)
	}
}

func TestStreamer_ReleasesSourceOnEveryAcquire(t *testing.T) {
	src := &mockSource{failEvery: 3}
	s := newTestStreamer(t, src, testConfig())

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}

	acquires, releases := src.counts()
	if acquires == 0 {
		t.Fatal("source was never acquired")
	}
	if acquires != releases {
		t.Errorf("acquires = %d, releases = %d; want equal", acquires, releases)
	}

	// The acquire interrupted by Stop is released but not counted.
	stats := s.Stats()
	counted := stats.Captured + stats.CaptureErrors
	if counted > uint64(acquires) || counted+1 < uint64(acquires) {
		t.Errorf("captured(%d) + errors(%d) does not match acquires(%d)", stats.Captured, stats.CaptureErrors, acquires)
	}
	if acquires >= 3 && stats.CaptureErrors == 0 {
		t.Error("capture errors not counted")
	}
}

func TestStreamer_GetFrameZeroTimeoutDoesNotBlock(t *testing.T) {
	s := newTestStreamer(t, &mockSource{}, testConfig())

	start := time.Now()
	_, ok := s.GetFrame(0)
	elapsed := time.Since(start)

	if ok {
		t.Error("GetFrame(0) on empty streamer returned a frame")
	}
	if elapsed > 20*time.Millisecond {
		t.Errorf("GetFrame(0) took %v", elapsed)
	}
}

func TestStreamer_GetFrameUninitialized(t *testing.T) {
	s := NewStreamer(&mockSource{}, &mockClock{}, &mockLogger{}, nil)
	if _, ok := s.GetFrame(time.Second); ok {
		t.Error("GetFrame() on uninitialized streamer returned a frame")
	}
}

func TestStreamer_GetFrameTimesOut(t *testing.T) {
	s := newTestStreamer(t, &mockSource{}, testConfig())

	start := time.Now()
	_, ok := s.GetFrame(30 * time.Millisecond)
	if ok {
		t.Fatal("GetFrame() returned a frame from an idle streamer")
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("GetFrame() returned after %v, before its timeout", elapsed)
	}
}

func TestStreamer_StopUnblocksConsumer(t *testing.T) {
	src := &mockSource{failAll: true}
	s := newTestStreamer(t, src, testConfig())

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	result := make(chan bool, 1)
	go func() {
		_, ok := s.GetFrame(10 * time.Second)
		result <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}

	select {
	case ok := <-result:
		if ok {
			t.Error("GetFrame() returned a frame after Stop")
		}
	case <-time.After(time.Second):
		t.Fatal("GetFrame() still blocked after Stop")
	}
}

func TestStreamer_GetFrameAndRelease(t *testing.T) {
	src := &mockSource{frameSize: 64}
	s := newTestStreamer(t, src, testConfig())

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	f, ok := s.GetFrame(time.Second)
	if !ok {
		t.Fatal("GetFrame() returned no frame")
	}
	if len(f.Data) != 64 {
		t.Errorf("frame size = %d, want 64", len(f.Data))
	}
	if f.Timestamp == 0 {
		t.Error("frame timestamp not filled in")
	}

	// Borrowed content must stay put while the producer keeps pushing.
	want := append([]byte(nil), f.Data...)
	time.Sleep(20 * time.Millisecond)
	if !bytes.Equal(f.Data, want) {
		t.Error("borrowed frame changed while held")
	}

	if !s.ReleaseFrame(f) {
		t.Error("ReleaseFrame() rejected the borrowed frame")
	}
	if got := s.Stats().Sent; got != 1 {
		t.Errorf("sent = %d, want 1", got)
	}
}

func TestStreamer_SingleBorrow(t *testing.T) {
	s := newTestStreamer(t, &mockSource{}, testConfig())
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	first, ok := s.GetFrame(time.Second)
	if !ok {
		t.Fatal("GetFrame() returned no frame")
	}
	if _, ok := s.GetFrame(0); ok {
		t.Error("second borrow succeeded while first is held")
	}

	type result struct {
		f  Frame
		ok bool
	}
	second := make(chan result, 1)
	go func() {
		f, ok := s.GetFrame(time.Second)
		second <- result{f, ok}
	}()

	time.Sleep(10 * time.Millisecond)
	s.ReleaseFrame(first)

	r := <-second
	if !r.ok {
		t.Fatal("waiting consumer did not get a frame after release")
	}
	s.ReleaseFrame(r.f)

	if got := s.Stats().Sent; got != 2 {
		t.Errorf("sent = %d, want 2", got)
	}
}

func TestStreamer_ReleaseWithoutBorrow(t *testing.T) {
	s := newTestStreamer(t, &mockSource{}, testConfig())

	if s.ReleaseFrame(Frame{}) {
		t.Error("ReleaseFrame() accepted a frame that was never borrowed")
	}
	if got := s.Stats().Sent; got != 0 {
		t.Errorf("sent = %d after unmatched release, want 0", got)
	}
}

func TestStreamer_WithFrame(t *testing.T) {
	s := newTestStreamer(t, &mockSource{}, testConfig())
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	wantErr := errors.New("client gone")
	ok, err := s.WithFrame(time.Second, func(f Frame) error {
		if len(f.Data) == 0 {
			t.Error("empty frame passed to callback")
		}
		return wantErr
	})
	if !ok {
		t.Fatal("WithFrame() found no frame")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("WithFrame() error = %v, want %v", err, wantErr)
	}

	// The borrow was released despite the callback error.
	f, ok := s.GetFrame(time.Second)
	if !ok {
		t.Fatal("borrow still held after WithFrame returned")
	}
	s.ReleaseFrame(f)
}

func TestStreamer_BorrowSurvivesRestart(t *testing.T) {
	tests := []struct {
		name  string
		slots int
	}{
		{"single slot", 1},
		{"several slots", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newMockClock()
			cfg := testConfig()
			cfg.BufferSlots = tt.slots
			s := NewStreamer(&mockSource{}, clock, &mockLogger{}, nil)
			if err := s.Init(cfg); err != nil {
				t.Fatal(err)
			}
			defer s.Close()

			if err := s.Start(); err != nil {
				t.Fatal(err)
			}
			held, ok := s.GetFrame(time.Second)
			if !ok {
				t.Fatal("GetFrame() returned no frame")
			}
			want := append([]byte(nil), held.Data...)

			if err := s.Stop(); err != nil {
				t.Fatal(err)
			}
			restartAt := clock.NowMicros()
			if err := s.Start(); err != nil {
				t.Fatal(err)
			}
			time.Sleep(50 * time.Millisecond)

			if !bytes.Equal(held.Data, want) {
				t.Fatalf("borrowed frame changed across restart: %v -> %v", want, held.Data)
			}
			if _, ok := s.GetFrame(0); ok {
				t.Error("second borrow succeeded while the first survives a restart")
			}
			if !s.ReleaseFrame(held) {
				t.Fatal("ReleaseFrame() rejected the frame borrowed before restart")
			}

			next, ok := s.GetFrame(time.Second)
			if !ok {
				t.Fatal("GetFrame() after release returned no frame")
			}
			if next.Timestamp < restartAt {
				t.Errorf("frame @%d from before the restart @%d was kept", next.Timestamp, restartAt)
			}
			s.ReleaseFrame(next)
			_ = s.Stop()
		})
	}
}

func TestStreamer_ReleaseIgnoresOtherFrames(t *testing.T) {
	tests := []struct {
		name  string
		other func(stale, held Frame) Frame
	}{
		{"zero frame", func(stale, held Frame) Frame { return Frame{} }},
		{"already released", func(stale, held Frame) Frame { return stale }},
		{"copy without borrow", func(stale, held Frame) Frame {
			return Frame{Data: held.Data, Timestamp: held.Timestamp}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.BufferSlots = 1
			s := newTestStreamer(t, &mockSource{}, cfg)
			if err := s.Start(); err != nil {
				t.Fatal(err)
			}
			defer s.Stop()

			stale, ok := s.GetFrame(time.Second)
			if !ok {
				t.Fatal("GetFrame() returned no frame")
			}
			s.ReleaseFrame(stale)

			held, ok := s.GetFrame(time.Second)
			if !ok {
				t.Fatal("second GetFrame() returned no frame")
			}
			want := append([]byte(nil), held.Data...)

			if s.ReleaseFrame(tt.other(stale, held)) {
				t.Fatal("ReleaseFrame() accepted a frame that is not the outstanding borrow")
			}
			time.Sleep(20 * time.Millisecond)

			if !bytes.Equal(held.Data, want) {
				t.Errorf("held frame overwritten: %v -> %v", want, held.Data)
			}
			if got := s.Stats().Sent; got != 1 {
				t.Errorf("sent = %d, want 1", got)
			}
			if !s.ReleaseFrame(held) {
				t.Error("ReleaseFrame() rejected the holder")
			}
			if got := s.Stats().Sent; got != 2 {
				t.Errorf("sent = %d after holder release, want 2", got)
			}
		})
	}
}

func TestStreamer_ResyncAfterStall(t *testing.T) {
	clock := newMockClock()
	src := &timedSource{clock: clock, stallOn: 3, stall: time.Second}
	s := NewStreamer(src, clock, &mockLogger{}, nil)
	if err := s.Init(testConfig()); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	times := runUntilAcquires(t, s, src, 10)
	interval := int64(1_000_000 / 30)

	for i := 1; i < len(times); i++ {
		gap := times[i] - times[i-1]
		want := interval
		if i == src.stallOn {
			want = time.Second.Microseconds() + interval
		}
		if gap != want {
			t.Errorf("gap before acquire %d = %dus, want %dus", i+1, gap, want)
		}
	}
}

func TestStreamer_SleepsExactRemainder(t *testing.T) {
	tests := []struct {
		name string
		fps  int
	}{
		{"30 fps", 30},
		{"7 fps", 7},
		{"1 fps", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newMockClock()
			src := &timedSource{clock: clock}
			cfg := testConfig()
			cfg.TargetFPS = tt.fps
			s := NewStreamer(src, clock, &mockLogger{}, nil)
			if err := s.Init(cfg); err != nil {
				t.Fatal(err)
			}
			defer s.Close()

			times := runUntilAcquires(t, s, src, 6)
			interval := int64(1_000_000 / tt.fps)

			for i := 1; i < len(times); i++ {
				if gap := times[i] - times[i-1]; gap != interval {
					t.Errorf("gap before acquire %d = %dus, want %dus", i+1, gap, interval)
				}
			}
			if n := clock.yields.Load(); n != 0 {
				t.Errorf("producer yielded %d times on schedule, want 0", n)
			}
		})
	}
}

func TestStreamer_SetTargetFPS(t *testing.T) {
	s := newTestStreamer(t, &mockSource{}, testConfig())

	tests := []struct {
		fps  int
		ok   bool
		want int
	}{
		{10, true, 10},
		{0, false, 10},
		{31, false, 10},
		{-1, false, 10},
		{1, true, 1},
		{30, true, 30},
	}

	for _, tt := range tests {
		if got := s.SetTargetFPS(tt.fps); got != tt.ok {
			t.Errorf("SetTargetFPS(%d) = %v, want %v", tt.fps, got, tt.ok)
		}
		if s.TargetFPS() != tt.want {
			t.Errorf("TargetFPS() = %d after SetTargetFPS(%d), want %d", s.TargetFPS(), tt.fps, tt.want)
		}
	}
}

func TestStreamer_StartResetsStats(t *testing.T) {
	src := &mockSource{}
	s := newTestStreamer(t, src, testConfig())

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if s.Stats().Captured == 0 {
		t.Fatal("nothing captured")
	}

	if s.BufferedCount() == 0 {
		t.Fatal("nothing buffered")
	}

	// With a dead source nothing new is captured, so any leftovers would show.
	src.setFailAll()
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	_ = s.Stop()

	stats := s.Stats()
	if stats.Captured != 0 || stats.Dropped != 0 || stats.Sent != 0 {
		t.Errorf("stats not reset on Start: %+v", stats)
	}
	if got := s.BufferedCount(); got != 0 {
		t.Errorf("BufferedCount() = %d, want 0 after restart", got)
	}
}

func TestStreamer_StopTimeoutDetachesProducer(t *testing.T) {
	block := make(chan struct{})
	src := &mockSource{block: block}

	cfg := testConfig()
	cfg.StopTimeout = 30 * time.Millisecond
	s := newTestStreamer(t, src, cfg)

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)

	if err := s.Stop(); !errors.Is(err, domain.ErrStopTimeout) {
		t.Fatalf("Stop() = %v, want ErrStopTimeout", err)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after timed-out Stop")
	}
	if s.State() != StateInitialized {
		t.Errorf("State() = %v, want Initialized", s.State())
	}

	// The stuck producer still owns the source.
	if err := s.Start(); !errors.Is(err, domain.ErrStopTimeout) {
		t.Errorf("Start() with detached producer = %v, want ErrStopTimeout", err)
	}

	close(block)

	deadline := time.Now().Add(time.Second)
	for {
		acquires, releases := src.counts()
		if acquires > 0 && acquires == releases {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("detached producer never released the source")
		}
		time.Sleep(time.Millisecond)
	}

	// The late frame from the detached producer is discarded.
	if got := s.Stats().Captured; got != 0 {
		t.Errorf("captured = %d, want 0", got)
	}

	deadline = time.Now().Add(time.Second)
	for {
		err := s.Start()
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Start() after producer exit = %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	_ = s.Stop()
}

func TestStreamer_CloseAndReinit(t *testing.T) {
	emitter := &mockEmitter{}
	s := NewStreamer(&mockSource{}, &mockClock{}, &mockLogger{}, emitter)

	if err := s.Init(testConfig()); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if s.IsInitialized() {
		t.Error("IsInitialized() = true after Close")
	}
	if s.State() != StateTornDown {
		t.Errorf("State() = %v, want TornDown", s.State())
	}
	if _, ok := s.GetFrame(0); ok {
		t.Error("GetFrame() after Close returned a frame")
	}

	if err := s.Init(testConfig()); err != nil {
		t.Fatalf("Init() after Close = %v", err)
	}
	if !s.IsInitialized() {
		t.Error("IsInitialized() = false after re-Init")
	}
	_ = s.Close()

	want := []State{StateInitialized, StateRunning, StateStopping, StateInitialized, StateTornDown, StateInitialized, StateTornDown}
	events := emitter.Events()
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if ev.current != want[i] {
			t.Errorf("event %d: state %v, want %v", i, ev.current, want[i])
		}
	}
}

func TestStreamer_Status(t *testing.T) {
	s := newTestStreamer(t, &mockSource{}, testConfig())

	report := s.Status()
	if report.TargetFPS != 30 {
		t.Errorf("TargetFPS = %d, want 30", report.TargetFPS)
	}
	if report.Running {
		t.Error("Running = true before Start")
	}
	if report.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestStats_SyncDroppedNeverLowers(t *testing.T) {
	var st Stats
	st.syncDropped(5)
	st.syncDropped(3)
	if got := st.Snapshot().Dropped; got != 5 {
		t.Errorf("dropped = %d, want 5", got)
	}
	st.syncDropped(7)
	if got := st.Snapshot().Dropped; got != 7 {
		t.Errorf("dropped = %d, want 7", got)
	}
	st.reset()
	if got := st.Snapshot(); got.Dropped != 0 || got.Captured != 0 {
		t.Errorf("after reset: %+v", got)
	}
}

func TestSignal_BroadcastWakesWaiters(t *testing.T) {
	sig := newSignal()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		ch := sig.Wait()
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ch
		}()
	}

	sig.Broadcast()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiters not woken")
	}

	// A fresh wait is not satisfied by the earlier broadcast.
	select {
	case <-sig.Wait():
		t.Error("new wait channel already closed")
	default:
	}
}
