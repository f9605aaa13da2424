package domain

import "errors"

// Domain errors represent error conditions in the frameship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrNotInitialized is returned when an operation needs Init() first.
	ErrNotInitialized = errors.New("frameship: not initialized")

	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("frameship: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("frameship: not running")

	// ErrStopTimeout is returned when the producer did not exit within the stop bound.
	// The service is still left stopped.
	ErrStopTimeout = errors.New("frameship: producer stop timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("frameship: invalid configuration")

	// ErrCaptureFailed is returned by frame sources when no frame could be captured.
	ErrCaptureFailed = errors.New("frameship: capture failed")
)
