package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskward/internal/domain"
)

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update saves modified task fields.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// ListAll enumerates every task in the store. The expiration sweep
	// accepts a full scan at this system's scale.
	ListAll(ctx context.Context) ([]domain.Task, error)

	// UpdateStatusExpired performs a targeted update limited to the status
	// and expired-at columns so concurrent edits to other fields are not
	// clobbered by a full-row rewrite.
	// Returns ErrTaskNotFound if the task does not exist.
	UpdateStatusExpired(ctx context.Context, id uuid.UUID, expiredAt time.Time) error
}

// UserStore provides read access to identity records mirrored from the
// external identity provider.
type UserStore interface {
	// GetByID retrieves a user by its unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
