package log

// Version of the log package. 1.1.0 added the frame field helpers.
const (
	Version              = "1.1.0"
	MinCompatibleVersion = "1.0.0"
)
