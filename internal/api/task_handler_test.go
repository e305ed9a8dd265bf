package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskward/internal/api/shared"
	"github.com/phrazzld/taskward/internal/domain"
	"github.com/phrazzld/taskward/internal/service"
	"github.com/phrazzld/taskward/internal/store"
)

// stubTaskService returns canned results per operation.
type stubTaskService struct {
	task *domain.Task
	err  error

	lastUpdate service.TaskUpdate
}

func (s *stubTaskService) CreateTask(
	ctx context.Context,
	name, description string,
	ownerID uuid.UUID,
	deadline time.Time,
) (*domain.Task, error) {
	if s.err != nil {
		return nil, s.err
	}
	task, err := domain.NewTask(name, description, ownerID, deadline)
	if err != nil {
		return nil, err
	}
	s.task = task
	return task, nil
}

func (s *stubTaskService) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.task, s.err
}

func (s *stubTaskService) UpdateTask(
	ctx context.Context,
	id uuid.UUID,
	update service.TaskUpdate,
) (*domain.Task, error) {
	s.lastUpdate = update
	return s.task, s.err
}

func (s *stubTaskService) CompleteTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.task, s.err
}

func (s *stubTaskService) CloseTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.task, s.err
}

// newTaskRouter mounts the handler the way the server router does, with the
// caller's identity preinstalled in the context.
func newTaskRouter(handler *TaskHandler, callerID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), shared.UserIDContextKey, callerID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/tasks", handler.CreateTask)
	r.Get("/tasks/{id}", handler.GetTask)
	r.Patch("/tasks/{id}", handler.UpdateTask)
	r.Post("/tasks/{id}/complete", handler.CompleteTask)
	r.Post("/tasks/{id}/close", handler.CloseTask)
	return r
}

func testTask(t *testing.T) *domain.Task {
	t.Helper()
	task, err := domain.NewTask("file taxes", "federal", uuid.New(), time.Now().Add(48*time.Hour))
	require.NoError(t, err)
	return task
}

func TestCreateTask(t *testing.T) {
	svc := &stubTaskService{}
	router := newTaskRouter(NewTaskHandler(svc, slog.Default()), uuid.New())

	body := fmt.Sprintf(`{"name":"file taxes","deadline":%q}`,
		time.Now().Add(48*time.Hour).Format(time.RFC3339))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/tasks", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "file taxes", resp.Name)
	assert.Equal(t, string(domain.StatusOpen), resp.Status)
}

func TestCreateTaskRejectsMissingDeadline(t *testing.T) {
	svc := &stubTaskService{}
	router := newTaskRouter(NewTaskHandler(svc, slog.Default()), uuid.New())

	w := httptest.NewRecorder()
	router.ServeHTTP(w,
		httptest.NewRequest("POST", "/tasks", strings.NewReader(`{"name":"file taxes"}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTaskRequiresIdentity(t *testing.T) {
	handler := NewTaskHandler(&stubTaskService{}, slog.Default())

	r := chi.NewRouter()
	r.Post("/tasks", handler.CreateTask)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/tasks", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetTask(t *testing.T) {
	task := testTask(t)
	svc := &stubTaskService{task: task}
	router := newTaskRouter(NewTaskHandler(svc, slog.Default()), task.OwnerID)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/tasks/"+task.ID.String(), nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, task.ID.String(), resp.ID)
}

func TestGetTaskNotFound(t *testing.T) {
	svc := &stubTaskService{err: store.ErrTaskNotFound}
	router := newTaskRouter(NewTaskHandler(svc, slog.Default()), uuid.New())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/tasks/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTaskInvalidID(t *testing.T) {
	router := newTaskRouter(NewTaskHandler(&stubTaskService{}, slog.Default()), uuid.New())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/tasks/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTaskPassesFields(t *testing.T) {
	task := testTask(t)
	svc := &stubTaskService{task: task}
	router := newTaskRouter(NewTaskHandler(svc, slog.Default()), task.OwnerID)

	newDeadline := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	body := fmt.Sprintf(`{"deadline":%q}`, newDeadline.Format(time.RFC3339))

	w := httptest.NewRecorder()
	router.ServeHTTP(w,
		httptest.NewRequest("PATCH", "/tasks/"+task.ID.String(), strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastUpdate.Deadline)
	assert.True(t, newDeadline.Equal(*svc.lastUpdate.Deadline))
	assert.Nil(t, svc.lastUpdate.Name)
}

func TestCompleteTaskConflictWhenTerminal(t *testing.T) {
	svc := &stubTaskService{err: fmt.Errorf("wrapped: %w", domain.ErrTerminalStatus)}
	router := newTaskRouter(NewTaskHandler(svc, slog.Default()), uuid.New())

	w := httptest.NewRecorder()
	router.ServeHTTP(w,
		httptest.NewRequest("POST", "/tasks/"+uuid.NewString()+"/complete", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCloseTask(t *testing.T) {
	task := testTask(t)
	require.NoError(t, task.Close())
	svc := &stubTaskService{task: task}
	router := newTaskRouter(NewTaskHandler(svc, slog.Default()), task.OwnerID)

	w := httptest.NewRecorder()
	router.ServeHTTP(w,
		httptest.NewRequest("POST", "/tasks/"+task.ID.String()+"/close", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(domain.StatusClosed), resp.Status)
}
