// Package domain contains the core domain entities and value objects for frameship.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (HTTP, file system, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [FrameView]: A borrowed view of one captured frame (bytes + metadata)
//   - [StatsSnapshot]: Point-in-time copy of the streaming counters
//
// # Design Principles
//
// Domain entities are:
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
