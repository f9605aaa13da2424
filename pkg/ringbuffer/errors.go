package ringbuffer

import "errors"

// Errors returned by Buffer operations. Check with errors.Is.
var (
	// ErrNotInitialized is returned when the buffer has not been initialized.
	ErrNotInitialized = errors.New("ringbuffer: not initialized")

	// ErrInvalidSize is returned by Init when slot count or frame size is zero.
	ErrInvalidSize = errors.New("ringbuffer: slot count and frame size must be positive")

	// ErrAllocation is returned by Init when slot memory cannot be allocated.
	ErrAllocation = errors.New("ringbuffer: slot allocation failed")

	// ErrEmptyFrame is returned by Push for a nil or zero-length payload.
	ErrEmptyFrame = errors.New("ringbuffer: empty frame")

	// ErrFrameTooLarge is returned by Push when the payload exceeds the slot size.
	ErrFrameTooLarge = errors.New("ringbuffer: frame exceeds max frame size")

	// ErrEmpty is returned by Peek when no frame is buffered.
	ErrEmpty = errors.New("ringbuffer: no frame available")
)
