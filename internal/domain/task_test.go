package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTask(t *testing.T) *Task {
	t.Helper()

	task, err := NewTask("write report", "quarterly numbers", uuid.New(),
		time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	return task
}

func TestNewTask(t *testing.T) {
	ownerID := uuid.New()
	deadline := time.Now().Add(48 * time.Hour)

	task, err := NewTask("ship release", "", ownerID, deadline)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, StatusOpen, task.Status)
	assert.Equal(t, ownerID, task.OwnerID)
	assert.Equal(t, deadline, task.Deadline)
	assert.Nil(t, task.CompletedAt)
	assert.Nil(t, task.ExpiredAt)
}

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Task)
		wantErr error
	}{
		{"valid", func(*Task) {}, nil},
		{"empty id", func(task *Task) { task.ID = uuid.Nil }, ErrTaskIDEmpty},
		{"empty name", func(task *Task) { task.Name = "" }, ErrTaskNameEmpty},
		{"empty owner", func(task *Task) { task.OwnerID = uuid.Nil }, ErrTaskOwnerEmpty},
		{"zero deadline", func(task *Task) { task.Deadline = time.Time{} }, ErrTaskDeadlineZero},
		{"unknown status", func(task *Task) { task.Status = "paused" }, ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := validTask(t)
			tt.mutate(task)

			err := task.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusOpen.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusClosed.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
}

func TestTaskTransitions(t *testing.T) {
	now := time.Now()

	t.Run("complete sets status and timestamp", func(t *testing.T) {
		task := validTask(t)
		require.NoError(t, task.Complete(now))

		assert.Equal(t, StatusCompleted, task.Status)
		require.NotNil(t, task.CompletedAt)
		assert.Equal(t, now.UTC(), *task.CompletedAt)
	})

	t.Run("close from open", func(t *testing.T) {
		task := validTask(t)
		require.NoError(t, task.Close())
		assert.Equal(t, StatusClosed, task.Status)
	})

	t.Run("expire sets status and timestamp", func(t *testing.T) {
		task := validTask(t)
		require.NoError(t, task.MarkExpired(now))

		assert.Equal(t, StatusExpired, task.Status)
		require.NotNil(t, task.ExpiredAt)
		assert.Equal(t, now.UTC(), *task.ExpiredAt)
	})

	t.Run("no transition out of terminal statuses", func(t *testing.T) {
		for _, status := range []Status{StatusCompleted, StatusClosed, StatusExpired} {
			task := validTask(t)
			task.Status = status

			assert.ErrorIs(t, task.Complete(now), ErrTerminalStatus)
			assert.ErrorIs(t, task.Close(), ErrTerminalStatus)
			assert.ErrorIs(t, task.MarkExpired(now), ErrTerminalStatus)
		}
	})
}

func TestSetCompletedAtInvariant(t *testing.T) {
	t.Run("panics when status is not completed", func(t *testing.T) {
		task := validTask(t)
		assert.Panics(t, func() {
			task.SetCompletedAt(time.Now())
		})
	})

	t.Run("allowed when status is completed", func(t *testing.T) {
		task := validTask(t)
		task.Status = StatusCompleted

		assert.NotPanics(t, func() {
			task.SetCompletedAt(time.Now())
		})
		assert.NotNil(t, task.CompletedAt)
	})
}

func TestTaskJSONRoundTrip(t *testing.T) {
	task := validTask(t)
	require.NoError(t, task.Complete(time.Now()))

	data, err := json.Marshal(task)
	require.NoError(t, err)

	var decoded Task
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, task.ID, decoded.ID)
	assert.Equal(t, task.Name, decoded.Name)
	assert.Equal(t, task.Status, decoded.Status)
	assert.Equal(t, task.OwnerID, decoded.OwnerID)
	assert.True(t, task.Deadline.Equal(decoded.Deadline))
	require.NotNil(t, decoded.CompletedAt)
	assert.True(t, task.CompletedAt.Equal(*decoded.CompletedAt))
}

func TestTaskJSONIgnoresUnknownFields(t *testing.T) {
	raw := `{
		"id": "` + uuid.New().String() + `",
		"name": "migrate database",
		"status": "open",
		"deadline": "2026-09-01T12:00:00Z",
		"owner_id": "` + uuid.New().String() + `",
		"created_at": "2026-08-01T08:00:00Z",
		"priority": "high",
		"labels": ["infra"]
	}`

	var task Task
	require.NoError(t, json.Unmarshal([]byte(raw), &task))
	assert.Equal(t, "migrate database", task.Name)
	assert.Equal(t, StatusOpen, task.Status)
}
