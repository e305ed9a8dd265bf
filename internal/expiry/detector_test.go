package expiry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskward/internal/domain"
	"github.com/phrazzld/taskward/internal/notify"
	"github.com/phrazzld/taskward/internal/store"
)

var testNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

// fakeTaskStore is an in-memory TaskStore recording targeted updates.
type fakeTaskStore struct {
	tasks          map[uuid.UUID]*domain.Task
	listErr        error
	updateErr      error
	expiredUpdates []uuid.UUID
}

func newFakeTaskStore(tasks ...*domain.Task) *fakeTaskStore {
	fs := &fakeTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
	for _, task := range tasks {
		fs.tasks[task.ID] = task
	}
	return fs
}

func (f *fakeTaskStore) Create(_ context.Context, task *domain.Task) error {
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	clone := *task
	return &clone, nil
}

func (f *fakeTaskStore) Update(_ context.Context, task *domain.Task) error {
	if _, ok := f.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskStore) ListAll(context.Context) ([]domain.Task, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Task, 0, len(f.tasks))
	for _, task := range f.tasks {
		out = append(out, *task)
	}
	return out, nil
}

func (f *fakeTaskStore) UpdateStatusExpired(_ context.Context, id uuid.UUID, expiredAt time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	task, ok := f.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	task.Status = domain.StatusExpired
	task.ExpiredAt = &expiredAt
	f.expiredUpdates = append(f.expiredUpdates, id)
	return nil
}

// fakePusher records pushed messages and fails on demand.
type fakePusher struct {
	messages [][]byte
	err      error
}

func (f *fakePusher) Push(_ context.Context, msg []byte) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

// countingChannel counts subscribe/publish calls for scenario assertions.
type countingChannel struct {
	subscribes int
	publishes  int
}

func (c *countingChannel) Subscribe(context.Context, string) error {
	c.subscribes++
	return nil
}

func (c *countingChannel) Publish(context.Context, notify.Message) error {
	c.publishes++
	return nil
}

type staticResolver struct{}

func (staticResolver) ResolveContact(context.Context, uuid.UUID) (string, error) {
	return "owner@example.com", nil
}

func taskWithDeadline(t *testing.T, status domain.Status, deadline time.Time) *domain.Task {
	t.Helper()

	task, err := domain.NewTask("review budget", "", uuid.New(), deadline)
	require.NoError(t, err)
	task.Status = status
	return task
}

func newTestDetector(
	t *testing.T,
	ts *fakeTaskStore,
	queue Pusher,
) (*Detector, *countingChannel) {
	t.Helper()

	channel := &countingChannel{}
	dispatcher := notify.NewDispatcher(channel, staticResolver{}, "ops@example.com", nil)
	detector := NewDetector(ts, queue, dispatcher, nil).
		WithNow(func() time.Time { return testNow })
	return detector, channel
}

func TestShouldExpire(t *testing.T) {
	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)

	tests := []struct {
		name     string
		status   domain.Status
		deadline time.Time
		want     bool
	}{
		{"open with past deadline", domain.StatusOpen, past, true},
		{"open with future deadline", domain.StatusOpen, future, false},
		{"open with deadline equal to now", domain.StatusOpen, testNow, false},
		{"completed with past deadline", domain.StatusCompleted, past, false},
		{"expired with past deadline", domain.StatusExpired, past, false},
		{"closed with past deadline passes the rule", domain.StatusClosed, past, true},
		{"no deadline", domain.StatusOpen, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &domain.Task{Status: tt.status, Deadline: tt.deadline}
			assert.Equal(t, tt.want, ShouldExpire(task, testNow))
		})
	}
}

func TestExpireTaskTargeted(t *testing.T) {
	t.Run("expires overdue open task and dispatches directly", func(t *testing.T) {
		task := taskWithDeadline(t, domain.StatusOpen, testNow.Add(-time.Hour))
		ts := newFakeTaskStore(task)
		queue := &fakePusher{}
		detector, channel := newTestDetector(t, ts, queue)

		outcome := detector.ExpireTask(context.Background(), task.ID)

		assert.Equal(t, OutcomeExpired, outcome)
		assert.Equal(t, []uuid.UUID{task.ID}, ts.expiredUpdates)
		assert.Equal(t, domain.StatusExpired, ts.tasks[task.ID].Status)
		require.NotNil(t, ts.tasks[task.ID].ExpiredAt)

		// Targeted mode bypasses the queue.
		assert.Empty(t, queue.messages)
		assert.Equal(t, 2, channel.publishes)
	})

	t.Run("unknown task id", func(t *testing.T) {
		detector, channel := newTestDetector(t, newFakeTaskStore(), nil)

		outcome := detector.ExpireTask(context.Background(), uuid.New())

		assert.Equal(t, OutcomeNotFound, outcome)
		assert.Zero(t, channel.publishes)
	})

	t.Run("future deadline is skipped", func(t *testing.T) {
		task := taskWithDeadline(t, domain.StatusOpen, testNow.Add(time.Hour))
		detector, channel := newTestDetector(t, newFakeTaskStore(task), nil)

		assert.Equal(t, OutcomeSkipped, detector.ExpireTask(context.Background(), task.ID))
		assert.Zero(t, channel.publishes)
	})

	t.Run("completed task is skipped regardless of deadline", func(t *testing.T) {
		task := taskWithDeadline(t, domain.StatusCompleted, testNow.Add(-time.Hour))
		detector, _ := newTestDetector(t, newFakeTaskStore(task), nil)

		assert.Equal(t, OutcomeSkipped, detector.ExpireTask(context.Background(), task.ID))
	})

	t.Run("closed task is skipped at the transition guard", func(t *testing.T) {
		task := taskWithDeadline(t, domain.StatusClosed, testNow.Add(-time.Hour))
		ts := newFakeTaskStore(task)
		detector, channel := newTestDetector(t, ts, nil)

		assert.Equal(t, OutcomeSkipped, detector.ExpireTask(context.Background(), task.ID))
		assert.Equal(t, domain.StatusClosed, ts.tasks[task.ID].Status)
		assert.Zero(t, channel.publishes)
	})

	t.Run("persistence failure yields failed outcome", func(t *testing.T) {
		task := taskWithDeadline(t, domain.StatusOpen, testNow.Add(-time.Hour))
		ts := newFakeTaskStore(task)
		ts.updateErr = errors.New("store unreachable")
		detector, channel := newTestDetector(t, ts, nil)

		assert.Equal(t, OutcomeFailed, detector.ExpireTask(context.Background(), task.ID))
		assert.Zero(t, channel.publishes)
	})
}

func TestSweep(t *testing.T) {
	t.Run("expires overdue task with exactly one notification cycle", func(t *testing.T) {
		task := taskWithDeadline(t, domain.StatusOpen, testNow.Add(-time.Hour))
		ts := newFakeTaskStore(task)
		queue := &fakePusher{}
		detector, channel := newTestDetector(t, ts, queue)

		result, err := detector.Sweep(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, result.Scanned)
		assert.Equal(t, 1, result.Expired)
		assert.Equal(t, 1, result.Enqueued)
		assert.Zero(t, result.Fallbacks)
		assert.Equal(t, domain.StatusExpired, ts.tasks[task.ID].Status)
		require.NotNil(t, ts.tasks[task.ID].ExpiredAt)

		// Queue carries the serialized task; the dispatcher has not run yet.
		require.Len(t, queue.messages, 1)
		var queued domain.Task
		require.NoError(t, json.Unmarshal(queue.messages[0], &queued))
		assert.Equal(t, task.ID, queued.ID)
		assert.Equal(t, domain.StatusExpired, queued.Status)
		assert.Zero(t, channel.publishes)
	})

	t.Run("queue push failure falls back to direct dispatch exactly once", func(t *testing.T) {
		task := taskWithDeadline(t, domain.StatusOpen, testNow.Add(-time.Hour))
		ts := newFakeTaskStore(task)
		queue := &fakePusher{err: errors.New("queue unavailable")}
		detector, channel := newTestDetector(t, ts, queue)

		result, err := detector.Sweep(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, result.Expired)
		assert.Zero(t, result.Enqueued)
		assert.Equal(t, 1, result.Fallbacks)

		// One full notification cycle: 2 publishes, at most 2 subscribes.
		assert.Equal(t, 2, channel.publishes)
		assert.LessOrEqual(t, channel.subscribes, 2)
	})

	t.Run("per-task failure does not abort the batch", func(t *testing.T) {
		overdue1 := taskWithDeadline(t, domain.StatusOpen, testNow.Add(-2*time.Hour))
		closed := taskWithDeadline(t, domain.StatusClosed, testNow.Add(-time.Hour))
		fresh := taskWithDeadline(t, domain.StatusOpen, testNow.Add(time.Hour))
		ts := newFakeTaskStore(overdue1, closed, fresh)
		queue := &fakePusher{}
		detector, _ := newTestDetector(t, ts, queue)

		result, err := detector.Sweep(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 3, result.Scanned)
		assert.Equal(t, 1, result.Expired)
		assert.Zero(t, result.Failed)
		assert.Equal(t, domain.StatusExpired, ts.tasks[overdue1.ID].Status)
		assert.Equal(t, domain.StatusClosed, ts.tasks[closed.ID].Status)
		assert.Equal(t, domain.StatusOpen, ts.tasks[fresh.ID].Status)
	})

	t.Run("list failure returns the error", func(t *testing.T) {
		ts := newFakeTaskStore()
		ts.listErr = errors.New("store unreachable")
		detector, _ := newTestDetector(t, ts, nil)

		_, err := detector.Sweep(context.Background())
		assert.Error(t, err)
	})

	t.Run("nil queue dispatches directly", func(t *testing.T) {
		task := taskWithDeadline(t, domain.StatusOpen, testNow.Add(-time.Hour))
		detector, channel := newTestDetector(t, newFakeTaskStore(task), nil)

		result, err := detector.Sweep(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, result.Fallbacks)
		assert.Equal(t, 2, channel.publishes)
	})
}
