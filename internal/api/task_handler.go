package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/taskward/internal/api/middleware"
	"github.com/phrazzld/taskward/internal/api/shared"
	"github.com/phrazzld/taskward/internal/domain"
	"github.com/phrazzld/taskward/internal/platform/logger"
	"github.com/phrazzld/taskward/internal/service"
)

// TaskHandler handles task lifecycle HTTP requests.
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService service.TaskService, log *slog.Logger) *TaskHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		taskService: taskService,
		logger:      log.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /tasks requests. The authenticated caller becomes
// the task owner.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := middleware.GetUserID(r)
	if !ok || ownerID == uuid.Nil {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request data")
		return
	}

	task, err := h.taskService.CreateTask(
		r.Context(), req.Name, req.Description, ownerID, req.Deadline)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("owner_id", ownerID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// GetTask handles GET /tasks/{id} requests.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := h.taskIDFromURL(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// UpdateTask handles PATCH /tasks/{id} requests.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := h.taskIDFromURL(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request data")
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), taskID, service.TaskUpdate{
		Name:        req.Name,
		Description: req.Description,
		Deadline:    req.Deadline,
		OwnerID:     req.OwnerID,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// CompleteTask handles POST /tasks/{id}/complete requests.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.taskService.CompleteTask)
}

// CloseTask handles POST /tasks/{id}/close requests.
func (h *TaskHandler) CloseTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.taskService.CloseTask)
}

func (h *TaskHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, id uuid.UUID) (*domain.Task, error),
) {
	taskID, ok := h.taskIDFromURL(w, r)
	if !ok {
		return
	}

	task, err := fn(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// taskIDFromURL parses the {id} path parameter, responding with 400 on a
// malformed value.
func (h *TaskHandler) taskIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	taskID, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return uuid.Nil, false
	}
	return taskID, true
}
