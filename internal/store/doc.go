// Package store defines the persistence interfaces and shared error values
// used by the lifecycle engine. Concrete implementations live under
// internal/platform; components depend only on these interfaces so tests can
// substitute fakes without process-wide state.
package store
