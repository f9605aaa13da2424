// Package metrics exposes streaming statistics as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/frameship/internal/domain"
)

const namespace = "frameship"

// StatusSource supplies the counters read at scrape time.
type StatusSource interface {
	Status() domain.StatusReport
}

// Collector owns a private registry with the stream counters, transport
// metrics and relay metrics.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests  *prometheus.CounterVec
	StreamClients prometheus.Gauge
	BusyRejects   prometheus.Counter
	RelaySent     prometheus.Counter
	RelayFailed   prometheus.Counter
	RelayBytes    prometheus.Counter
	RelayLatency  prometheus.Histogram
}

// NewCollector creates a collector reading stream statistics from src.
func NewCollector(src StatusSource) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	stat := func(pick func(domain.StatusReport) float64) func() float64 {
		return func() float64 { return pick(src.Status()) }
	}

	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_captured_total",
			Help:      "Frames captured and buffered since the last start",
		}, stat(func(r domain.StatusReport) float64 { return float64(r.Captured) })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Frames released by consumers since the last start",
		}, stat(func(r domain.StatusReport) float64 { return float64(r.Sent) })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Frames dropped by the buffer overflow policy since the last start",
		}, stat(func(r domain.StatusReport) float64 { return float64(r.Dropped) })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_errors_total",
			Help:      "Failed frame acquisitions since the last start",
		}, stat(func(r domain.StatusReport) float64 { return float64(r.CaptureErrors) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frames_buffered",
			Help:      "Frames waiting in the ring buffer",
		}, stat(func(r domain.StatusReport) float64 { return float64(r.Buffered) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_fps",
			Help:      "Configured capture rate",
		}, stat(func(r domain.StatusReport) float64 { return float64(r.TargetFPS) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streaming",
			Help:      "1 while the producer is running",
		}, stat(func(r domain.StatusReport) float64 {
			if r.Running {
				return 1
			}
			return 0
		})),
	)

	f := promauto.With(reg)
	return &Collector{
		registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		StreamClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected MJPEG and websocket clients",
		}),
		BusyRejects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_busy_rejects_total",
			Help:      "Stream requests rejected in single-client mode",
		}),
		RelaySent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_frames_sent_total",
			Help:      "Frames delivered to the ingest service",
		}),
		RelayFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_send_errors_total",
			Help:      "Failed frame uploads",
		}),
		RelayBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_bytes_sent_total",
			Help:      "Frame bytes delivered to the ingest service",
		}),
		RelayLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_send_duration_seconds",
			Help:      "Frame upload latency",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}
}

// OnSendSuccess records a delivered frame.
func (c *Collector) OnSendSuccess(frameID string, bytesSent int, duration time.Duration) {
	c.RelaySent.Inc()
	c.RelayBytes.Add(float64(bytesSent))
	c.RelayLatency.Observe(duration.Seconds())
}

// OnSendError records a failed upload.
func (c *Collector) OnSendError(err error, frameID string) {
	c.RelayFailed.Inc()
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
