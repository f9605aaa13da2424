package ports

import (
	"context"
	"time"
)

// Clock abstracts time and delay operations so scheduling can be tested
// deterministically.
type Clock interface {
	// NowMicros returns monotonic time in microseconds.
	NowMicros() int64

	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration)

	// Yield gives other goroutines a chance to run without a guaranteed delay.
	Yield()
}
