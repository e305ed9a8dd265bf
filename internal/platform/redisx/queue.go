package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// popTimeout bounds each blocking pop so context cancellation is observed
// between polls.
const popTimeout = 2 * time.Second

// Queue implements a durable notification queue on a Redis list. Producers
// push with LPUSH; consumers block on BRPOP, giving FIFO at-least-once-style
// decoupling between the expiration sweep and the (slow) notification send.
type Queue struct {
	client *redis.Client
	key    string
}

// NewQueue creates a Queue using the given list key.
func NewQueue(client *redis.Client, key string) *Queue {
	if client == nil {
		panic("redis client cannot be nil")
	}

	return &Queue{client: client, key: key}
}

// Push appends a message to the queue.
func (q *Queue) Push(ctx context.Context, msg []byte) error {
	if err := q.client.LPush(ctx, q.key, msg).Err(); err != nil {
		return fmt.Errorf("failed to push message onto %q: %w", q.key, err)
	}
	return nil
}

// Pop blocks for up to the poll timeout waiting for a message. A nil
// message with a nil error means the wait elapsed without one; callers poll
// again.
func (q *Queue) Pop(ctx context.Context) ([]byte, error) {
	vals, err := q.client.BRPop(ctx, popTimeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop message from %q: %w", q.key, err)
	}

	// BRPop returns [key, value].
	if len(vals) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply length %d", len(vals))
	}
	return []byte(vals[1]), nil
}
