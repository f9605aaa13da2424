package ports

import (
	"context"

	"github.com/bft-labs/frameship/internal/domain"
)

// FrameSource supplies one frame at a time from a capture device.
//
// The contract is acquire-then-release: Release must be called exactly once
// after every Acquire, whether or not Acquire returned a frame, because a
// failed acquire may still hold a device buffer internally.
//
// Implementations are used by a single goroutine (the producer) and need not
// be safe for concurrent use.
type FrameSource interface {
	// Acquire captures a frame and returns a view of it.
	// The view stays valid until Release. Returns an error when no frame
	// could be captured.
	Acquire(ctx context.Context) (domain.FrameView, error)

	// Release returns the held frame to the source.
	Release()
}
