package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/taskward/internal/domain"
	"github.com/phrazzld/taskward/internal/service/auth"
	"github.com/phrazzld/taskward/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, auth.ErrMissingGroup):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound

	// Conflict errors: transitions rejected by the task state machine
	case errors.Is(err, domain.ErrTerminalStatus):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrTaskIDEmpty),
		errors.Is(err, domain.ErrTaskNameEmpty),
		errors.Is(err, domain.ErrTaskOwnerEmpty),
		errors.Is(err, domain.ErrTaskDeadlineZero),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrMissingGroup):
		return "Insufficient permissions"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, domain.ErrTerminalStatus):
		return "Task is in a terminal status"

	case errors.Is(err, domain.ErrTaskNameEmpty):
		return "Task name is required"

	case errors.Is(err, domain.ErrTaskDeadlineZero):
		return "Task deadline is required"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrTaskIDEmpty),
		errors.Is(err, domain.ErrTaskOwnerEmpty),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}
