package notify

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
	"github.com/phrazzld/taskward/internal/events"
)

// fakeChannel records subscribe/publish calls and fails on demand.
type fakeChannel struct {
	subscribed   []string
	published    []Message
	subscribeErr error
	publishErr   error
}

func (f *fakeChannel) Subscribe(_ context.Context, address string) error {
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscribed = append(f.subscribed, address)
	return nil
}

func (f *fakeChannel) Publish(_ context.Context, msg Message) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, msg)
	return nil
}

// fakeResolver returns a fixed address or an error.
type fakeResolver struct {
	address string
	err     error
}

func (f *fakeResolver) ResolveContact(context.Context, uuid.UUID) (string, error) {
	return f.address, f.err
}

func expiredTask(t *testing.T) *domain.Task {
	t.Helper()

	task, err := domain.NewTask("file taxes", "", uuid.New(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, task.MarkExpired(time.Now()))
	return task
}

func TestDispatch(t *testing.T) {
	t.Run("all four steps run on the happy path", func(t *testing.T) {
		channel := &fakeChannel{}
		dispatcher := NewDispatcher(channel,
			&fakeResolver{address: "owner@example.com"}, "ops@example.com", nil)
		task := expiredTask(t)

		report := dispatcher.Dispatch(context.Background(), task)

		assert.Equal(t, Report{
			OwnerSubscribed: true,
			AdminSubscribed: true,
			UserPublished:   true,
			AdminPublished:  true,
		}, report)

		assert.Equal(t, []string{"owner@example.com", "ops@example.com"}, channel.subscribed)
		require.Len(t, channel.published, 2)
		assert.Equal(t, task.OwnerID.String(), channel.published[0].Attributes[AttrUserID])
		assert.Contains(t, channel.published[0].Body, task.ID.String())
		assert.Contains(t, channel.published[0].Subject, task.Name)
		assert.Contains(t, channel.published[1].Subject, "admin")
	})

	t.Run("contact resolution failure does not block the other steps", func(t *testing.T) {
		channel := &fakeChannel{}
		dispatcher := NewDispatcher(channel,
			&fakeResolver{err: errors.New("identity provider unreachable")},
			"ops@example.com", nil)

		report := dispatcher.Dispatch(context.Background(), expiredTask(t))

		assert.False(t, report.OwnerSubscribed)
		assert.True(t, report.AdminSubscribed)
		assert.True(t, report.UserPublished)
		assert.True(t, report.AdminPublished)
		assert.Len(t, channel.published, 2)
	})

	t.Run("subscribe failure does not block publishes", func(t *testing.T) {
		channel := &fakeChannel{subscribeErr: errors.New("channel unavailable")}
		dispatcher := NewDispatcher(channel,
			&fakeResolver{address: "owner@example.com"}, "ops@example.com", nil)

		report := dispatcher.Dispatch(context.Background(), expiredTask(t))

		assert.False(t, report.OwnerSubscribed)
		assert.False(t, report.AdminSubscribed)
		assert.True(t, report.UserPublished)
		assert.True(t, report.AdminPublished)
	})

	t.Run("publish failure never propagates", func(t *testing.T) {
		channel := &fakeChannel{publishErr: errors.New("channel unavailable")}
		dispatcher := NewDispatcher(channel,
			&fakeResolver{address: "owner@example.com"}, "ops@example.com", nil)

		var report Report
		assert.NotPanics(t, func() {
			report = dispatcher.Dispatch(context.Background(), expiredTask(t))
		})
		assert.False(t, report.UserPublished)
		assert.False(t, report.AdminPublished)
		assert.True(t, report.OwnerSubscribed)
	})
}

func TestDispatchReminder(t *testing.T) {
	channel := &fakeChannel{}
	dispatcher := NewDispatcher(channel, nil, "ops@example.com", nil)

	payload := events.TaskImage{
		events.AttrTaskID:   "t1",
		events.AttrName:     "renew certs",
		events.AttrDeadline: "2026-09-15T17:30:00",
		events.AttrUserID:   "u1",
	}

	dispatcher.DispatchReminder(context.Background(), payload)

	require.Len(t, channel.published, 1)
	assert.Contains(t, channel.published[0].Subject, "renew certs")
	assert.Contains(t, channel.published[0].Body, "2026-09-15T17:30:00")
	assert.Equal(t, "u1", channel.published[0].Attributes[AttrUserID])
}

// stubQueue feeds a fixed set of messages then reports context cancellation.
type stubQueue struct {
	messages [][]byte
}

func (q *stubQueue) Pop(ctx context.Context) ([]byte, error) {
	if len(q.messages) == 0 {
		return nil, context.Canceled
	}
	msg := q.messages[0]
	q.messages = q.messages[1:]
	return msg, nil
}

func TestConsumer(t *testing.T) {
	t.Run("dispatches decoded task messages", func(t *testing.T) {
		task := expiredTask(t)
		data, err := json.Marshal(task)
		require.NoError(t, err)

		channel := &fakeChannel{}
		dispatcher := NewDispatcher(channel,
			&fakeResolver{address: "owner@example.com"}, "ops@example.com", nil)
		consumer := NewConsumer(&stubQueue{messages: [][]byte{data}}, dispatcher, nil)

		consumer.Run(context.Background())

		assert.Len(t, channel.published, 2)
	})

	t.Run("malformed message is logged and skipped", func(t *testing.T) {
		channel := &fakeChannel{}
		dispatcher := NewDispatcher(channel,
			&fakeResolver{address: "owner@example.com"}, "ops@example.com", nil)
		consumer := NewConsumer(
			&stubQueue{messages: [][]byte{[]byte("not json")}}, dispatcher, nil)

		assert.NotPanics(t, func() {
			consumer.Run(context.Background())
		})
		assert.Empty(t, channel.published)
	})
}
