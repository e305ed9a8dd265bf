package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskward/internal/domain"
)

// CreateTaskRequest is the request body for creating a task. The owner is
// taken from the authenticated caller, never from the body.
type CreateTaskRequest struct {
	Name        string    `json:"name"        validate:"required,max=255"`
	Description string    `json:"description" validate:"max=4000"`
	Deadline    time.Time `json:"deadline"    validate:"required"`
}

// UpdateTaskRequest is the request body for partially updating a task. Nil
// fields are left unchanged.
type UpdateTaskRequest struct {
	Name        *string    `json:"name,omitempty"        validate:"omitempty,max=255"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=4000"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	OwnerID     *uuid.UUID `json:"owner_id,omitempty"`
}

// TaskResponse represents the response data for a task.
type TaskResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Deadline    time.Time  `json:"deadline"`
	OwnerID     string     `json:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`
}

// taskToResponse transforms a domain task into its response representation.
func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID.String(),
		Name:        task.Name,
		Description: task.Description,
		Status:      string(task.Status),
		Deadline:    task.Deadline,
		OwnerID:     task.OwnerID.String(),
		CreatedAt:   task.CreatedAt,
		CompletedAt: task.CompletedAt,
		ExpiredAt:   task.ExpiredAt,
	}
}

// ExpireTaskResponse reports the outcome of a targeted expiration check.
type ExpireTaskResponse struct {
	TaskID  string `json:"task_id"`
	Outcome string `json:"outcome"`
}

// SweepResponse reports the counters of one expiration sweep.
type SweepResponse struct {
	Scanned   int `json:"scanned"`
	Expired   int `json:"expired"`
	Failed    int `json:"failed"`
	Enqueued  int `json:"enqueued"`
	Fallbacks int `json:"fallbacks"`
}
