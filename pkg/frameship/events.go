package frameship

import (
	"time"

	"github.com/bft-labs/frameship/internal/app"
)

// State is the lifecycle state of the streamer.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateRunning
	StateStopping
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// SendSuccessEvent describes a frame delivered by the relay.
type SendSuccessEvent struct {
	FrameID   string
	BytesSent int
	Duration  time.Duration
}

// SendErrorEvent describes a failed relay delivery.
type SendErrorEvent struct {
	Error   error
	FrameID string
}

// EventHandler receives frameship events.
// Methods are called synchronously and should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnSendSuccess(event SendSuccessEvent)
	OnSendError(event SendErrorEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnSendSuccess(SendSuccessEvent) {}
func (BaseEventHandler) OnSendError(SendErrorEvent)     {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnSendSuccess(frameID string, bytesSent int, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendSuccess(SendSuccessEvent{
		FrameID:   frameID,
		BytesSent: bytesSent,
		Duration:  duration,
	})
}

func (e *eventEmitterWrapper) OnSendError(err error, frameID string) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendError(SendErrorEvent{Error: err, FrameID: frameID})
}

// sendEmitters fans relay events out to several emitters.
type sendEmitters []app.SendEventEmitter

func (m sendEmitters) OnSendSuccess(frameID string, bytesSent int, duration time.Duration) {
	for _, e := range m {
		e.OnSendSuccess(frameID, bytesSent, duration)
	}
}

func (m sendEmitters) OnSendError(err error, frameID string) {
	for _, e := range m {
		e.OnSendError(err, frameID)
	}
}

func convertState(s app.State) State {
	switch s {
	case app.StateUninitialized:
		return StateUninitialized
	case app.StateInitialized:
		return StateInitialized
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateTornDown:
		return StateTornDown
	default:
		return StateUninitialized
	}
}
