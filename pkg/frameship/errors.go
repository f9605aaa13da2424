package frameship

import "github.com/bft-labs/frameship/internal/domain"

// Errors returned by the public API. Check them with errors.Is.
var (
	ErrNotInitialized = domain.ErrNotInitialized
	ErrAlreadyRunning = domain.ErrAlreadyRunning
	ErrNotRunning     = domain.ErrNotRunning
	ErrStopTimeout    = domain.ErrStopTimeout
	ErrInvalidConfig  = domain.ErrInvalidConfig
	ErrCaptureFailed  = domain.ErrCaptureFailed
)
