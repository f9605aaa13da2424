package frameship

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bft-labs/frameship/internal/domain"
)

// counterSource yields small frames carrying an increasing byte.
type counterSource struct {
	n        atomic.Int32
	acquired atomic.Int32
	released atomic.Int32
}

func (s *counterSource) Acquire(ctx context.Context) (domain.FrameView, error) {
	s.acquired.Add(1)
	v := byte(s.n.Add(1))
	return domain.FrameView{Data: []byte{0xFF, 0xD8, v, 0xFF, 0xD9}}, nil
}

func (s *counterSource) Release() { s.released.Add(1) }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.TargetFPS = 30
	cfg.StatsInterval = time.Hour
	return cfg
}

func newTestFrameship(t *testing.T, cfg Config, opts ...Option) *Frameship {
	t.Helper()
	f, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"fps too high", func(c *Config) { c.TargetFPS = 31 }},
		{"negative slots", func(c *Config) { c.BufferSlots = -1 }},
		{"unknown source", func(c *Config) { c.Source = "usb" }},
		{"dir without path", func(c *Config) { c.Source = SourceDirectory }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := Config{RelayURL: "http://ingest/"}
	cfg.SetDefaults()

	if cfg.TargetFPS != 3 || cfg.BufferSlots != 3 || cfg.MaxFrameSize != 100*1024 {
		t.Errorf("stream defaults = %+v", cfg)
	}
	if cfg.Source != SourcePattern {
		t.Errorf("Source = %q, want pattern", cfg.Source)
	}
	if cfg.RelayURL != "http://ingest" {
		t.Errorf("RelayURL = %q, want trailing slash trimmed", cfg.RelayURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestFrameship_StartStop(t *testing.T) {
	src := &counterSource{}
	f := newTestFrameship(t, testConfig(), WithFrameSource(src))

	if f.State() != StateInitialized {
		t.Fatalf("State() = %v, want initialized", f.State())
	}
	if err := f.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() before Start = %v, want ErrNotRunning", err)
	}

	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() = %v, want ErrAlreadyRunning", err)
	}
	if f.State() != StateRunning {
		t.Errorf("State() = %v, want running", f.State())
	}
	if f.Addr() == "" {
		t.Error("Addr() empty after Start")
	}

	frame, ok := f.GetFrame(time.Second)
	if !ok {
		t.Fatal("GetFrame() got nothing")
	}
	if len(frame.Data) != 5 || frame.Data[0] != 0xFF {
		t.Errorf("frame = %x", frame.Data)
	}
	if !f.ReleaseFrame(frame) {
		t.Error("ReleaseFrame() rejected the borrowed frame")
	}

	if err := f.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if f.State() != StateInitialized {
		t.Errorf("State() after Stop = %v", f.State())
	}
	if src.acquired.Load() != src.released.Load() {
		t.Errorf("acquired %d, released %d", src.acquired.Load(), src.released.Load())
	}

	// Restart on the same instance.
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	if err := f.Stop(); err != nil {
		t.Errorf("Stop() after restart error = %v", err)
	}
}

func TestFrameship_ServesStatus(t *testing.T) {
	f := newTestFrameship(t, testConfig(), WithFrameSource(&counterSource{}))
	if err := f.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get("http://" + f.Addr() + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["streaming"] != true {
		t.Errorf("streaming = %v, want true", body["streaming"])
	}
	if body["target_fps"] != float64(30) {
		t.Errorf("target_fps = %v, want 30", body["target_fps"])
	}
}

func TestFrameship_SetTargetFPS(t *testing.T) {
	f := newTestFrameship(t, testConfig(), WithFrameSource(&counterSource{}))

	if !f.SetTargetFPS(12) {
		t.Error("SetTargetFPS(12) = false")
	}
	if f.TargetFPS() != 12 {
		t.Errorf("TargetFPS() = %d, want 12", f.TargetFPS())
	}
	if f.SetTargetFPS(0) {
		t.Error("SetTargetFPS(0) = true")
	}
	if f.Status().TargetFPS != 12 {
		t.Errorf("Status().TargetFPS = %d", f.Status().TargetFPS)
	}
}

func TestFrameship_PatternSourceWithoutTransport(t *testing.T) {
	cfg := testConfig()
	cfg.ListenAddr = ""
	f := newTestFrameship(t, cfg)

	if err := f.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.Addr() != "" {
		t.Errorf("Addr() = %q, want empty", f.Addr())
	}

	ok, err := f.WithFrame(time.Second, func(fr Frame) error {
		if len(fr.Data) < 4 || fr.Data[0] != 0xFF || fr.Data[1] != 0xD8 {
			return errors.New("not a JPEG")
		}
		return nil
	})
	if !ok || err != nil {
		t.Errorf("WithFrame() = %v, %v", ok, err)
	}
}

// recordingPlugin records the order of plugin calls.
type recordingPlugin struct {
	name    string
	log     *[]string
	mu      *sync.Mutex
	failErr error
	ctrl    Controller
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) Initialize(ctx context.Context, cfg PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.log = append(*p.log, "init:"+p.name)
	p.ctrl = cfg.Stream
	return p.failErr
}

func (p *recordingPlugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.log = append(*p.log, "shutdown:"+p.name)
	return nil
}

func TestFrameship_PluginOrder(t *testing.T) {
	var calls []string
	var mu sync.Mutex
	a := &recordingPlugin{name: "a", log: &calls, mu: &mu}
	b := &recordingPlugin{name: "b", log: &calls, mu: &mu}

	f := newTestFrameship(t, testConfig(), WithFrameSource(&counterSource{}), WithPlugin(a), WithPlugin(b))
	if err := f.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a.ctrl == nil || !a.ctrl.SetTargetFPS(5) || f.TargetFPS() != 5 {
		t.Error("plugin controller not wired to the streamer")
	}
	if err := f.Stop(); err != nil {
		t.Fatal(err)
	}

	want := []string{"init:a", "init:b", "shutdown:b", "shutdown:a"}
	mu.Lock()
	defer mu.Unlock()
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %s, want %s", i, calls[i], want[i])
		}
	}
}

func TestFrameship_PluginInitFailureRollsBack(t *testing.T) {
	var calls []string
	var mu sync.Mutex
	a := &recordingPlugin{name: "a", log: &calls, mu: &mu}
	b := &recordingPlugin{name: "b", log: &calls, mu: &mu, failErr: errors.New("boom")}

	f := newTestFrameship(t, testConfig(), WithFrameSource(&counterSource{}), WithPlugin(a), WithPlugin(b))
	if err := f.Start(context.Background()); err == nil {
		t.Fatal("Start() succeeded with a failing plugin")
	}
	if f.State() != StateInitialized {
		t.Errorf("State() = %v, want initialized after rollback", f.State())
	}

	mu.Lock()
	last := calls[len(calls)-1]
	mu.Unlock()
	if last != "shutdown:a" {
		t.Errorf("calls = %v, want a shut down after b failed", calls)
	}
}

type stateRecorder struct {
	BaseEventHandler
	mu     sync.Mutex
	states []State
}

func (h *stateRecorder) OnStateChange(e StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, e.Current)
}

func TestFrameship_EventHandler(t *testing.T) {
	h := &stateRecorder{}
	f, err := New(testConfig(), WithFrameSource(&counterSource{}), WithEventHandler(h))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	want := []State{StateInitialized, StateRunning, StateStopping, StateInitialized, StateTornDown}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.states) != len(want) {
		t.Fatalf("states = %v, want %v", h.states, want)
	}
	for i := range want {
		if h.states[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, h.states[i], want[i])
		}
	}
}

type sendRecorder struct {
	BaseEventHandler
	ok atomic.Int32
}

func (h *sendRecorder) OnSendSuccess(SendSuccessEvent) { h.ok.Add(1) }

func TestFrameship_Relay(t *testing.T) {
	var received atomic.Int32
	ingest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/ingest/frames" {
			received.Add(1)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ingest.Close()

	cfg := testConfig()
	cfg.ListenAddr = ""
	cfg.RelayURL = ingest.URL
	h := &sendRecorder{}
	f := newTestFrameship(t, cfg, WithFrameSource(&counterSource{}), WithEventHandler(h))

	if err := f.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for received.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("ingest received %d frames", received.Load())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := f.Stop(); err != nil {
		t.Fatal(err)
	}
	if h.ok.Load() < 2 {
		t.Errorf("OnSendSuccess called %d times", h.ok.Load())
	}
	if f.Status().Sent < 2 {
		t.Errorf("Sent = %d, want relayed frames counted", f.Status().Sent)
	}
}

func TestIsVersionCompatible(t *testing.T) {
	tests := []struct {
		version, min string
		want         bool
	}{
		{"1.0.0", "1.0.0", true},
		{"1.2.0", "1.1.9", true},
		{"1.0.0", "1.0.1", false},
		{"2.0.0", "1.9.9", true},
		{"0.9.0", "1.0.0", false},
	}
	for _, tt := range tests {
		if got := isVersionCompatible(tt.version, tt.min); got != tt.want {
			t.Errorf("isVersionCompatible(%s, %s) = %v, want %v", tt.version, tt.min, got, tt.want)
		}
	}
	if err := validateModuleVersions(); err != nil {
		t.Errorf("validateModuleVersions() = %v", err)
	}
}
