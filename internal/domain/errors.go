package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidStatus is returned when a task status value is not one of
	// the known statuses.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrTerminalStatus is returned when a transition is requested on a task
	// whose status permits no further transitions.
	ErrTerminalStatus = errors.New("task is in a terminal status")
)
