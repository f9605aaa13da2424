package log

import "time"

// Logger is the structured logger used throughout frameship. The zerolog
// adapter is the production implementation; NoopLogger discards everything.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key-value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// Keys shared by the streamer, relay and HTTP transport so log lines about
// the same frame can be correlated.
const (
	KeyFrameID   = "frame_id"
	KeyTargetFPS = "target_fps"
	KeyBytes     = "bytes"
	KeyPath      = "path"
)

// Typed field constructors.
func String(key, value string) Field { return Field{Key: key, Value: value} }
func Int(key string, value int) Field { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }
func Uint64(key string, value uint64) Field { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// Err attaches err under the "error" key.
func Err(err error) Field { return Field{Key: "error", Value: err} }

// FrameID tags a line with the relay frame identifier.
func FrameID(id string) Field { return String(KeyFrameID, id) }

// TargetFPS tags a line with a capture rate.
func TargetFPS(fps int) Field { return Int(KeyTargetFPS, fps) }

// Bytes tags a line with a frame or response size.
func Bytes(n int) Field { return Int(KeyBytes, n) }

// Path tags a line with a file system path.
func Path(p string) Field { return String(KeyPath, p) }
