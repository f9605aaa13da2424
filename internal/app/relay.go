package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/frameship/internal/domain"
	"github.com/bft-labs/frameship/internal/ports"
)

// FrameProvider is the consumer-facing side of the streamer.
type FrameProvider interface {
	GetFrame(timeout time.Duration) (Frame, bool)
	ReleaseFrame(f Frame) bool
	IsRunning() bool
}

// RelayConfig contains configuration for the relay loop.
type RelayConfig struct {
	// PollTimeout bounds each GetFrame call
	PollTimeout time.Duration

	// IdleInterval is how long to wait when the streamer is not running
	IdleInterval time.Duration

	// BackoffInitial and BackoffMax bound the retry delay after a failed send
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// Metadata for send operations
	Hostname   string
	OSArch     string
	ServiceURL string
}

// SendEventEmitter is called on send success or failure.
type SendEventEmitter interface {
	OnSendSuccess(frameID string, bytesSent int, duration time.Duration)
	OnSendError(err error, frameID string)
}

// Relay pulls frames from the streamer and forwards each one to a remote
// ingest service. It is an ordinary consumer: every frame it borrows is
// released whether or not the send succeeded.
type Relay struct {
	config  RelayConfig
	frames  FrameProvider
	sender  ports.FrameSender
	logger  ports.Logger
	emitter SendEventEmitter
	seq     uint64
}

// NewRelay creates a new relay with the given dependencies.
func NewRelay(config RelayConfig, frames FrameProvider, sender ports.FrameSender, logger ports.Logger, emitter SendEventEmitter) *Relay {
	if config.PollTimeout <= 0 {
		config.PollTimeout = time.Second
	}
	if config.IdleInterval <= 0 {
		config.IdleInterval = 500 * time.Millisecond
	}
	if config.BackoffInitial <= 0 {
		config.BackoffInitial = DefaultBackoffInitial
	}
	if config.BackoffMax < config.BackoffInitial {
		config.BackoffMax = DefaultBackoffMax
	}
	return &Relay{
		config:  config,
		frames:  frames,
		sender:  sender,
		logger:  logger,
		emitter: emitter,
	}
}

// Run executes the relay loop until ctx is canceled.
func (r *Relay) Run(ctx context.Context) error {
	backoff := newBackoff(r.config.BackoffInitial, r.config.BackoffMax)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, ok := r.frames.GetFrame(r.config.PollTimeout)
		if !ok {
			if r.frames.IsRunning() {
				continue
			}
			// Stopped streamers return immediately; don't spin.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.config.IdleInterval):
				continue
			}
		}

		err := r.trySend(ctx, frame)
		r.frames.ReleaseFrame(frame)

		if err != nil {
			if serr := backoff.Sleep(ctx); serr != nil {
				return serr
			}
			continue
		}
		backoff.Reset()
	}
}

// trySend forwards a single borrowed frame.
func (r *Relay) trySend(ctx context.Context, frame Frame) error {
	r.seq++
	metadata := ports.SendMetadata{
		FrameID:    uuid.NewString(),
		Sequence:   r.seq,
		Hostname:   r.config.Hostname,
		OSArch:     r.config.OSArch,
		ServiceURL: r.config.ServiceURL,
	}
	view := domain.FrameView{Data: frame.Data, Timestamp: frame.Timestamp}

	start := time.Now()
	err := r.sender.Send(ctx, view, metadata)
	duration := time.Since(start)

	if err != nil {
		r.logger.Error("relay send failed",
			ports.Err(err),
			ports.FrameID(metadata.FrameID),
			ports.Bytes(view.Size()),
		)
		if r.emitter != nil {
			r.emitter.OnSendError(err, metadata.FrameID)
		}
		return err
	}

	r.logger.Debug("relayed frame",
		ports.FrameID(metadata.FrameID),
		ports.Uint64("seq", metadata.Sequence),
		ports.Bytes(view.Size()),
		ports.Duration("duration", duration),
	)
	if r.emitter != nil {
		r.emitter.OnSendSuccess(metadata.FrameID, view.Size(), duration)
	}
	return nil
}
