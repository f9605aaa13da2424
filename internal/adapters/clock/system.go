// Package clock provides the system implementation of ports.Clock.
package clock

import (
	"context"
	"runtime"
	"time"
)

// System implements ports.Clock with the Go runtime's monotonic clock.
type System struct {
	epoch time.Time
}

// NewSystem creates a clock whose NowMicros counts from the moment of creation.
func NewSystem() *System {
	return &System{epoch: time.Now()}
}

// NowMicros returns monotonic microseconds since the clock was created.
func (c *System) NowMicros() int64 {
	return time.Since(c.epoch).Microseconds()
}

// Sleep blocks for d or until ctx is done.
func (c *System) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Yield lets other goroutines run.
func (c *System) Yield() {
	runtime.Gosched()
}
