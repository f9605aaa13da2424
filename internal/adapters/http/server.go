package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bft-labs/frameship/internal/adapters/metrics"
	"github.com/bft-labs/frameship/internal/app"
	"github.com/bft-labs/frameship/internal/domain"
	"github.com/bft-labs/frameship/internal/ports"
)

//go:embed static/index.html
var staticFS embed.FS

const (
	mjpegBoundary   = "frame"
	streamPollWait  = 500 * time.Millisecond
	wsWriteDeadline = 10 * time.Second
)

// Stream is the consumer-facing API of the streamer.
type Stream interface {
	WithFrame(timeout time.Duration, fn func(app.Frame) error) (bool, error)
	Status() domain.StatusReport
	SetTargetFPS(fps int) bool
	IsRunning() bool
	ConsumerTimeout() time.Duration
}

// QualitySetter is implemented by frame sources with adjustable encoding.
type QualitySetter interface {
	SetQuality(quality int) error
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	// Addr is the listen address (e.g. ":8080")
	Addr string

	// SingleClient rejects a second live viewer with 503
	SingleClient bool

	// AllowedOrigins for CORS; empty allows any origin
	AllowedOrigins []string
}

// Server serves the live stream, snapshots, status and runtime config.
type Server struct {
	cfg     ServerConfig
	stream  Stream
	quality QualitySetter
	metrics *metrics.Collector
	logger  ports.Logger

	router   chi.Router
	upgrader websocket.Upgrader
	started  time.Time

	clients  atomic.Int32
	requests atomic.Uint64
}

// NewServer creates the transport. quality and collector may be nil.
func NewServer(cfg ServerConfig, stream Stream, quality QualitySetter, collector *metrics.Collector, logger ports.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		stream:  stream,
		quality: quality,
		metrics: collector,
		logger:  logger,
		started: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(s.accessLog)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", s.handleIndex)
	r.Get("/stream", s.handleStream)
	r.Get("/capture", s.handleCapture)
	r.Get("/status", s.handleStatus)
	r.Post("/config", s.handleConfig)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
// Live streams observe the cancellation through their request contexts.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", ports.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// End long-lived streams first so Shutdown doesn't wait on them.
	cancelBase()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// accessLog counts requests and logs them with their status.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		}
		s.logger.Debug("http request",
			ports.String("method", r.Method),
			ports.String("route", route),
			ports.Int("status", status),
			ports.Bytes(ww.BytesWritten()),
			ports.Duration("duration", time.Since(start)),
			ports.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "index unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// acquireClient registers a live viewer. In single-client mode only one
// viewer is admitted.
func (s *Server) acquireClient() bool {
	if s.cfg.SingleClient {
		if !s.clients.CompareAndSwap(0, 1) {
			if s.metrics != nil {
				s.metrics.BusyRejects.Inc()
			}
			return false
		}
	} else {
		s.clients.Add(1)
	}
	if s.metrics != nil {
		s.metrics.StreamClients.Inc()
	}
	return true
}

func (s *Server) releaseClient() {
	s.clients.Add(-1)
	if s.metrics != nil {
		s.metrics.StreamClients.Dec()
	}
}

// handleStream serves multipart/x-mixed-replace MJPEG until the client
// disconnects or the streamer stops.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.acquireClient() {
		http.Error(w, "Stream busy", http.StatusServiceUnavailable)
		return
	}
	defer s.releaseClient()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	clientID := uuid.NewString()
	s.logger.Info("stream client connected", ports.String("client_id", clientID))
	defer s.logger.Info("stream client disconnected", ports.String("client_id", clientID))

	w.Header().Set("Content-Type", "multipart/x-mixed-replace;boundary="+mjpegBoundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for r.Context().Err() == nil {
		ok, err := s.stream.WithFrame(streamPollWait, func(f app.Frame) error {
			if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", mjpegBoundary, len(f.Data)); err != nil {
				return err
			}
			if _, err := w.Write(f.Data); err != nil {
				return err
			}
			if _, err := w.Write([]byte("\r\n")); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		})
		if err != nil {
			return
		}
		if !ok && !s.stream.IsRunning() {
			return
		}
	}
}

// handleCapture returns a single JPEG.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	ok, err := s.stream.WithFrame(s.stream.ConsumerTimeout(), func(f app.Frame) error {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
		w.Header().Set("Content-Disposition", "inline; filename=capture.jpg")
		_, err := w.Write(f.Data)
		return err
	})
	if err != nil {
		s.logger.Debug("capture write failed", ports.Err(err))
		return
	}
	if !ok {
		http.Error(w, "no frame available", http.StatusServiceUnavailable)
	}
}

// statusResponse is the /status payload.
type statusResponse struct {
	Captured      uint64  `json:"captured"`
	Sent          uint64  `json:"sent"`
	Dropped       uint64  `json:"dropped"`
	CaptureErrors uint64  `json:"capture_errors"`
	Buffered      int     `json:"buffered"`
	Streaming     bool    `json:"streaming"`
	TargetFPS     int     `json:"target_fps"`
	StreamClients int     `json:"stream_clients"`
	TotalRequests uint64  `json:"total_requests"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.stream.Status()
	writeJSON(w, http.StatusOK, statusResponse{
		Captured:      st.Captured,
		Sent:          st.Sent,
		Dropped:       st.Dropped,
		CaptureErrors: st.CaptureErrors,
		Buffered:      st.Buffered,
		Streaming:     st.Running,
		TargetFPS:     st.TargetFPS,
		StreamClients: int(s.clients.Load()),
		TotalRequests: s.requests.Load(),
		UptimeSeconds: time.Since(s.started).Seconds(),
	})
}

// handleConfig applies fps and quality from a form body or query string.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	applied := map[string]int{}

	if v := r.Form.Get("fps"); v != "" {
		fps, err := strconv.Atoi(v)
		if err != nil || !s.stream.SetTargetFPS(fps) {
			http.Error(w, fmt.Sprintf("fps must be %d-%d", app.MinTargetFPS, app.MaxTargetFPS), http.StatusBadRequest)
			return
		}
		applied["target_fps"] = fps
	}

	if v := r.Form.Get("quality"); v != "" {
		if s.quality == nil {
			http.Error(w, "source quality is fixed", http.StatusBadRequest)
			return
		}
		q, err := strconv.Atoi(v)
		if err == nil {
			err = s.quality.SetQuality(q)
		}
		if err != nil {
			http.Error(w, "invalid quality", http.StatusBadRequest)
			return
		}
		applied["quality"] = q
	}

	if len(applied) == 0 {
		http.Error(w, "nothing to apply", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, applied)
}

// handleWebSocket pushes frames as binary messages.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.acquireClient() {
		http.Error(w, "Stream busy", http.StatusServiceUnavailable)
		return
	}
	defer s.releaseClient()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	clientID := uuid.NewString()
	s.logger.Info("websocket client connected", ports.String("client_id", clientID))
	defer s.logger.Info("websocket client disconnected", ports.String("client_id", clientID))

	// The reader only watches for the close; viewers send nothing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		default:
		}

		ok, err := s.stream.WithFrame(streamPollWait, func(f app.Frame) error {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			return conn.WriteMessage(websocket.BinaryMessage, f.Data)
		})
		if err != nil {
			return
		}
		if !ok && !s.stream.IsRunning() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream stopped"),
				time.Now().Add(time.Second))
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
