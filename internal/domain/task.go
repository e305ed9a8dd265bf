package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskNameEmpty is returned when a task's name is empty.
	ErrTaskNameEmpty = errors.New("task name cannot be empty")

	// ErrTaskOwnerEmpty is returned when a task's owner ID is empty or nil.
	ErrTaskOwnerEmpty = errors.New("task owner ID cannot be empty")

	// ErrTaskDeadlineZero is returned when a task has no deadline set.
	ErrTaskDeadlineZero = errors.New("task deadline is required")
)

// Status represents the lifecycle state of a task.
type Status string

// Possible task status values.
const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusClosed    Status = "closed"
	StatusExpired   Status = "expired"
)

// ParseStatus converts a raw string into a Status.
// Returns ErrInvalidStatus if the value is not a known status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOpen, StatusCompleted, StatusClosed, StatusExpired:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// IsTerminal reports whether the status permits no further transitions.
// A task in a terminal status may never be expired.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusClosed, StatusExpired:
		return true
	default:
		return false
	}
}

// Task represents a deadline-bearing unit of work tracked by the lifecycle
// engine. Unknown fields are ignored on deserialization so queue messages
// from newer producers still parse.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Deadline    time.Time  `json:"deadline"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`
}

// NewTask creates a new open Task with the given name, owner and deadline.
// It generates a new UUID for the task ID and sets the creation timestamp.
// Returns an error if validation fails.
func NewTask(name, description string, ownerID uuid.UUID, deadline time.Time) (*Task, error) {
	task := &Task{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Status:      StatusOpen,
		Deadline:    deadline,
		OwnerID:     ownerID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.Name == "" {
		return ErrTaskNameEmpty
	}

	if t.OwnerID == uuid.Nil {
		return ErrTaskOwnerEmpty
	}

	if t.Deadline.IsZero() {
		return ErrTaskDeadlineZero
	}

	if _, err := ParseStatus(string(t.Status)); err != nil {
		return err
	}

	return nil
}

// Complete transitions the task to COMPLETED and records the completion time.
// Returns ErrTerminalStatus if the task is already in a terminal status.
func (t *Task) Complete(now time.Time) error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot complete task in status %q", ErrTerminalStatus, t.Status)
	}

	t.Status = StatusCompleted
	t.SetCompletedAt(now)
	return nil
}

// Close transitions the task to CLOSED.
// Returns ErrTerminalStatus if the task is already in a terminal status.
func (t *Task) Close() error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot close task in status %q", ErrTerminalStatus, t.Status)
	}

	t.Status = StatusClosed
	return nil
}

// MarkExpired transitions the task to EXPIRED and records the expiration
// time. Returns ErrTerminalStatus if the task is already in a terminal
// status: no terminal task may be further expired.
func (t *Task) MarkExpired(now time.Time) error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot expire task in status %q", ErrTerminalStatus, t.Status)
	}

	t.Status = StatusExpired
	expiredAt := now.UTC()
	t.ExpiredAt = &expiredAt
	return nil
}

// SetCompletedAt records the completion timestamp. Assigning a completion
// time to a task whose status is not COMPLETED is a caller bug, not an
// environmental condition, and panics immediately rather than degrading.
func (t *Task) SetCompletedAt(at time.Time) {
	if t.Status != StatusCompleted {
		panic(fmt.Sprintf(
			"domain: completed-at assigned while task %s has status %q", t.ID, t.Status))
	}

	completedAt := at.UTC()
	t.CompletedAt = &completedAt
}
