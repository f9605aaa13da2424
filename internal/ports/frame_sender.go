package ports

import (
	"context"

	"github.com/bft-labs/frameship/internal/domain"
)

// FrameSender transmits single frames to a remote ingest service.
// Implementations handle serialization and HTTP communication.
type FrameSender interface {
	// Send transmits one frame. The frame data is borrowed and must not be
	// retained after Send returns.
	// Returns nil on success, error on failure; the caller handles retries.
	Send(ctx context.Context, frame domain.FrameView, metadata SendMetadata) error
}

// SendMetadata provides context for the send operation.
// This information is included in HTTP headers for server-side tracking.
type SendMetadata struct {
	// FrameID uniquely identifies the frame being sent
	FrameID string

	// Sequence is the relay's running frame counter
	Sequence uint64

	// Hostname is the agent's hostname
	Hostname string

	// OSArch is the operating system and architecture (e.g., "linux/amd64")
	OSArch string

	// ServiceURL is the base URL of the ingest service
	ServiceURL string
}
