package app

import (
	"sync/atomic"

	"github.com/bft-labs/frameship/internal/domain"
)

// Stats is the streaming statistics block. Every field is independently
// atomic so monitors never contend with the producer or consumers.
type Stats struct {
	captured      atomic.Uint64
	sent          atomic.Uint64
	dropped       atomic.Uint64
	captureErrors atomic.Uint64
	running       atomic.Bool
}

// reset zeroes the counters. The running flag is left alone.
func (s *Stats) reset() {
	s.captured.Store(0)
	s.sent.Store(0)
	s.dropped.Store(0)
	s.captureErrors.Store(0)
}

// syncDropped raises the dropped counter to the buffer's total; it never lowers it.
func (s *Stats) syncDropped(total uint64) {
	for {
		cur := s.dropped.Load()
		if total <= cur || s.dropped.CompareAndSwap(cur, total) {
			return
		}
	}
}

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() domain.StatsSnapshot {
	return domain.StatsSnapshot{
		Captured:      s.captured.Load(),
		Sent:          s.sent.Load(),
		Dropped:       s.dropped.Load(),
		CaptureErrors: s.captureErrors.Load(),
		Running:       s.running.Load(),
	}
}
