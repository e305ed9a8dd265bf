package redisx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/taskward/internal/notify"
)

// Channel implements the publish/subscribe notification collaborator on
// Redis: subscriber addresses live in a set (SADD is naturally idempotent,
// matching the "repeated subscription is harmless" contract) and messages
// are published as JSON on a Redis pub/sub channel for delivery workers.
type Channel struct {
	client *redis.Client
	name   string
}

// NewChannel creates a Channel with the given channel name.
func NewChannel(client *redis.Client, name string) *Channel {
	if client == nil {
		panic("redis client cannot be nil")
	}

	return &Channel{client: client, name: name}
}

// Ensure Channel implements notify.Channel
var _ notify.Channel = (*Channel)(nil)

func (c *Channel) subscribersKey() string {
	return c.name + ":subscribers"
}

// Subscribe ensures the address is in the channel's subscriber set.
func (c *Channel) Subscribe(ctx context.Context, address string) error {
	if err := c.client.SAdd(ctx, c.subscribersKey(), address).Err(); err != nil {
		return fmt.Errorf("failed to subscribe %q to channel %q: %w", address, c.name, err)
	}
	return nil
}

// Publish sends a message to all channel subscribers.
func (c *Channel) Publish(ctx context.Context, msg notify.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize notification message: %w", err)
	}

	if err := c.client.Publish(ctx, c.name, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %q: %w", c.name, err)
	}
	return nil
}
