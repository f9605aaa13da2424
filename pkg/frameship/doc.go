// Package frameship provides an embeddable live frame streamer.
//
// A producer goroutine captures frames from a FrameSource at a fixed rate
// into a bounded ring buffer. Consumers pull frames with a blocking,
// borrow-then-release API. When consumers fall behind the oldest frames are
// overwritten and counted as dropped. The bundled HTTP transport serves the
// buffer as an MJPEG stream, single snapshots, a websocket feed, a status
// document and Prometheus metrics.
//
// # Basic Usage
//
//	cfg := frameship.DefaultConfig()
//	cfg.ListenAddr = ":8080"
//	cfg.TargetFPS = 10
//
//	fs, err := frameship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := fs.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer fs.Close()
//
// # Consuming Frames
//
// Embedders can read the buffer directly. Every frame returned by GetFrame
// must be handed back to ReleaseFrame; WithFrame does this for you:
//
//	ok, err := fs.WithFrame(time.Second, func(f frameship.Frame) error {
//	    _, err := w.Write(f.Data)
//	    return err
//	})
//
// Only one frame is borrowed at a time. A second GetFrame while a frame is
// borrowed waits for the release or its timeout.
//
// # Frame Sources
//
// Config.Source selects a built-in source: "pattern" renders a synthetic
// JPEG test pattern, "dir" serves the newest JPEG dropped into
// Config.SourceDir. Use [WithFrameSource] to plug in a camera.
//
// # Event Handling
//
// Implement [EventHandler] (embed [BaseEventHandler] for defaults) and pass it
// via [WithEventHandler] to observe lifecycle transitions and relay sends.
//
// # Plugins
//
// Plugins receive a [Controller] at Start and may adjust the capture rate:
//
//	import "github.com/bft-labs/frameship/plugins/configwatcher"
//
//	fs, err := frameship.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{Path: path}),
//	)
//
// # Version
//
// Use [ModuleVersions] to get versions of all sub-modules and
// [CompatibilityMatrix] to check minimum compatible versions.
package frameship
