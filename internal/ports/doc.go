// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [FrameSource]: Captures frames (acquire, then always release)
//   - [Clock]: Monotonic time, sleep and yield
//   - [FrameSender]: Pushes a single frame to a remote ingest service
//   - [StatusRepository]: Persists statistics snapshots
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (system clock, JPEG sources, HTTP, zerolog).
// Test doubles satisfy the same contracts.
package ports
