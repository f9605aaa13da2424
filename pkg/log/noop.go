package log

// NoopLogger discards every message. It is the library default when no
// logger is configured.
type NoopLogger struct{}

// NewNoopLogger returns a logger that writes nothing.
func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (NoopLogger) Debug(string, ...Field) {}
func (NoopLogger) Info(string, ...Field) {}
func (NoopLogger) Warn(string, ...Field) {}
func (NoopLogger) Error(string, ...Field) {}
