package frameship

import (
	"github.com/bft-labs/frameship/internal/domain"
	"github.com/bft-labs/frameship/internal/ports"
	"github.com/bft-labs/frameship/pkg/log"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Logger is the interface for structured logging.
type Logger = log.Logger

// LogField represents a structured log field.
type LogField = log.Field

// FrameSource captures frames for the streamer. See WithFrameSource.
type FrameSource = ports.FrameSource

// FrameView is a frame as produced by a FrameSource.
type FrameView = domain.FrameView

// Option configures optional behavior of Frameship.
type Option func(*options)

// options holds the optional configuration for a Frameship instance.
type options struct {
	httpClient   ports.HTTPClient
	logger       ports.Logger
	eventHandler EventHandler
	plugins      []Plugin
	source       ports.FrameSource
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithHTTPClient sets the HTTP client used by the relay.
// If not provided, a client with Config.RelayTimeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for frameship events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when Frameship starts.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithFrameSource replaces the built-in source selected by Config.Source.
// The source is used by the producer goroutine only.
func WithFrameSource(source FrameSource) Option {
	return func(o *options) {
		o.source = source
	}
}
