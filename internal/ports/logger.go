package ports

import "github.com/bft-labs/frameship/pkg/log"

// Logger is the structured logging port used by the application layer.
type Logger = log.Logger

// Field is a key-value pair for structured logging.
type Field = log.Field

// Field constructors re-exported for adapters and the application layer.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Uint64   = log.Uint64
	Float64  = log.Float64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any

	FrameID   = log.FrameID
	TargetFPS = log.TargetFPS
	Bytes     = log.Bytes
	Path      = log.Path
)
