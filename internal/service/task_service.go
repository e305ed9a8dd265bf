package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskward/internal/domain"
	"github.com/phrazzld/taskward/internal/events"
	"github.com/phrazzld/taskward/internal/platform/logger"
	"github.com/phrazzld/taskward/internal/store"
)

// TaskServiceError is a custom error type for task service errors.
type TaskServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
func NewTaskServiceError(operation, message string, err error) *TaskServiceError {
	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// TaskUpdate carries the mutable fields of a task. Nil fields are left
// unchanged.
type TaskUpdate struct {
	Name        *string
	Description *string
	Deadline    *time.Time
	OwnerID     *uuid.UUID
}

// TaskService provides task lifecycle operations. Every successful mutation
// also publishes a change record so schedule maintenance stays in step with
// the store.
type TaskService interface {
	// CreateTask persists a new open task and emits an INSERT record.
	CreateTask(
		ctx context.Context,
		name, description string,
		ownerID uuid.UUID,
		deadline time.Time,
	) (*domain.Task, error)

	// GetTask retrieves a task by its ID.
	GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// UpdateTask applies the non-nil fields of update and emits a MODIFY
	// record carrying both images.
	UpdateTask(ctx context.Context, id uuid.UUID, update TaskUpdate) (*domain.Task, error)

	// CompleteTask transitions the task to COMPLETED and emits a MODIFY
	// record.
	CompleteTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// CloseTask transitions the task to CLOSED and emits a MODIFY record.
	CloseTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// taskServiceImpl implements the TaskService interface.
type taskServiceImpl struct {
	taskStore store.TaskStore
	emitter   events.Emitter
	logger    *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	taskStore store.TaskStore,
	emitter events.Emitter,
	log *slog.Logger,
) (TaskService, error) {
	if taskStore == nil {
		return nil, NewTaskServiceError("init", "taskStore cannot be nil", domain.ErrValidation)
	}
	if emitter == nil {
		return nil, NewTaskServiceError("init", "emitter cannot be nil", domain.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}

	return &taskServiceImpl{
		taskStore: taskStore,
		emitter:   emitter,
		logger:    log.With(slog.String("component", "task_service")),
	}, nil
}

// CreateTask implements TaskService.CreateTask.
func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	name, description string,
	ownerID uuid.UUID,
	deadline time.Time,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(name, description, ownerID, deadline)
	if err != nil {
		return nil, NewTaskServiceError("create", "invalid task", err)
	}

	if err := s.taskStore.Create(ctx, task); err != nil {
		return nil, NewTaskServiceError("create", "failed to persist task", err)
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.Time("deadline", task.Deadline))

	s.emit(ctx, events.NewChangeRecord(events.EventInsert, events.ImageFromTask(task), nil))
	return task, nil
}

// GetTask implements TaskService.GetTask.
func (s *taskServiceImpl) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask implements TaskService.UpdateTask.
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	id uuid.UUID,
	update TaskUpdate,
) (*domain.Task, error) {
	return s.mutate(ctx, "update", id, func(task *domain.Task) error {
		if update.Name != nil {
			task.Name = *update.Name
		}
		if update.Description != nil {
			task.Description = *update.Description
		}
		if update.Deadline != nil {
			task.Deadline = *update.Deadline
		}
		if update.OwnerID != nil {
			task.OwnerID = *update.OwnerID
		}
		return task.Validate()
	})
}

// CompleteTask implements TaskService.CompleteTask.
func (s *taskServiceImpl) CompleteTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.mutate(ctx, "complete", id, func(task *domain.Task) error {
		return task.Complete(time.Now().UTC())
	})
}

// CloseTask implements TaskService.CloseTask.
func (s *taskServiceImpl) CloseTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.mutate(ctx, "close", id, func(task *domain.Task) error {
		return task.Close()
	})
}

// mutate loads the task, applies fn, persists the result and emits a MODIFY
// record carrying the before and after images.
func (s *taskServiceImpl) mutate(
	ctx context.Context,
	operation string,
	id uuid.UUID,
	fn func(task *domain.Task) error,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldImage := events.ImageFromTask(task)

	if err := fn(task); err != nil {
		return nil, NewTaskServiceError(operation, "transition rejected", err)
	}

	if err := s.taskStore.Update(ctx, task); err != nil {
		return nil, NewTaskServiceError(operation, "failed to persist task", err)
	}

	log.Debug("task mutated",
		slog.String("operation", operation),
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(task.Status)))

	s.emit(ctx, events.NewChangeRecord(events.EventModify, events.ImageFromTask(task), oldImage))
	return task, nil
}

// emit publishes a change record. The mutation is already durable at this
// point, so a failing handler is logged and does not fail the request.
func (s *taskServiceImpl) emit(ctx context.Context, record events.ChangeRecord) {
	if err := s.emitter.Emit(ctx, record); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("change record emission failed",
			slog.String("event_id", record.ID.String()),
			slog.String("event_name", string(record.EventName)),
			slog.String("error", err.Error()))
	}
}
