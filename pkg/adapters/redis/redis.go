// Package redis relays collection changes to a Redis pub/sub channel so that
// other processes can follow a notebook without reading its store.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aretw0/notebook/pkg/core"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "notebook:changes"

// Message is the JSON payload published for every change. It carries the
// ordered identities, not the notes themselves.
type Message struct {
	Kind      core.ChangeKind `json:"kind"`
	ID        string          `json:"id,omitempty"`
	Count     int             `json:"count"`
	IDs       []string        `json:"ids"`
	Timestamp int64           `json:"timestamp"`
}

// NewMessage summarizes c.
func NewMessage(c core.Change) Message {
	ids := make([]string, len(c.Notes))
	for i, n := range c.Notes {
		ids[i] = n.ID
	}
	return Message{
		Kind:      c.Kind,
		ID:        c.ID,
		Count:     len(c.Notes),
		IDs:       ids,
		Timestamp: c.Timestamp,
	}
}

// PubSub is the subset of Redis used by the relay.
type PubSub interface {
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channel string, handler func(message []byte)) error
}

// Client implements PubSub with go-redis.
type Client struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewClient connects to addr and checks the connection.
func NewClient(ctx context.Context, addr string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &Client{client: client, logger: logger}, nil
}

func (c *Client) Publish(ctx context.Context, channel string, message []byte) error {
	return c.client.Publish(ctx, channel, message).Err()
}

// Subscribe calls handler for every message on channel until ctx ends.
// It returns once the subscription is established.
func (c *Client) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	pubsub := c.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return err
	}

	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					c.logger.Debug("pubsub channel closed", zap.String("channel", channel))
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
