package frameship

import "context"

// Controller is the runtime control surface handed to plugins.
type Controller interface {
	// SetTargetFPS changes the capture rate. Returns false when fps is out of range.
	SetTargetFPS(fps int) bool
	TargetFPS() int
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	ListenAddr string
	StateDir   string
	Stream     Controller
	Logger     Logger
}

// Plugin extends a frameship instance. Plugins are initialized by Start in
// registration order and shut down by Stop in reverse order.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}
