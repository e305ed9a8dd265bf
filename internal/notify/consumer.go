package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/phrazzld/taskward/internal/domain"
)

// Queue is the consuming side of the durable notification queue.
type Queue interface {
	// Pop blocks until a message is available or the context is done.
	// A nil message with a nil error means the wait timed out without a
	// message; callers simply poll again.
	Pop(ctx context.Context) ([]byte, error)
}

// Consumer drains the notification queue and hands each expired-task message
// to the dispatcher. Message-processing failures are logged and never
// propagated: a message the consumer cannot handle is left to the queue's
// own retry and dead-letter policy rather than retried synchronously.
type Consumer struct {
	queue      Queue
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewConsumer creates a Consumer.
// If logger is nil, a default logger will be used.
func NewConsumer(queue Queue, dispatcher *Dispatcher, logger *slog.Logger) *Consumer {
	if queue == nil {
		panic("queue cannot be nil")
	}
	if dispatcher == nil {
		panic("dispatcher cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		queue:      queue,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "notification_consumer")),
	}
}

// Run consumes messages until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info("notification consumer started")

	for {
		msg, err := c.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("notification consumer stopped")
				return
			}
			c.logger.Error("failed to pop notification message",
				slog.String("error", err.Error()))
			continue
		}
		if msg == nil {
			// Idle poll timeout.
			continue
		}

		c.handleMessage(ctx, msg)
	}
}

// HandleMessage processes a single queue message. Exported so a single
// message can be processed outside the Run loop (e.g. from tests or a
// one-shot trigger).
func (c *Consumer) HandleMessage(ctx context.Context, msg []byte) {
	c.handleMessage(ctx, msg)
}

func (c *Consumer) handleMessage(ctx context.Context, msg []byte) {
	var task domain.Task
	if err := json.Unmarshal(msg, &task); err != nil {
		c.logger.Error("failed to decode notification message",
			slog.String("error", err.Error()))
		return
	}

	c.dispatcher.Dispatch(ctx, &task)
}
