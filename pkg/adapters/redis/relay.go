package redis

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/aretw0/notebook/pkg/core"
)

// Relay publishes Manager changes.
type Relay struct {
	pubsub  PubSub
	channel string
	logger  *zap.Logger
}

// NewRelay creates a relay on channel. An empty channel means DefaultChannel.
func NewRelay(pubsub PubSub, channel string, logger *zap.Logger) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{pubsub: pubsub, channel: channel, logger: logger}
}

// Run publishes every change until changes closes or ctx ends. Publish
// failures are logged and skipped; the next change carries the full order.
func (r *Relay) Run(ctx context.Context, changes <-chan core.Change) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			r.publish(ctx, c)
		}
	}
}

// Listener returns a Manager listener that publishes each change as it
// happens. Use it when the process may exit right after a mutation.
func (r *Relay) Listener(ctx context.Context) func(core.Change) {
	return func(c core.Change) {
		r.publish(ctx, c)
	}
}

func (r *Relay) publish(ctx context.Context, c core.Change) {
	payload, err := json.Marshal(NewMessage(c))
	if err != nil {
		r.logger.Error("failed to encode change", zap.String("change", c.String()), zap.Error(err))
		return
	}
	if err := r.pubsub.Publish(ctx, r.channel, payload); err != nil {
		r.logger.Warn("failed to publish change",
			zap.String("channel", r.channel),
			zap.String("change", c.String()),
			zap.Error(err),
		)
	}
}

// Follow decodes messages from the relay channel and hands them to fn.
func (r *Relay) Follow(ctx context.Context, fn func(Message)) error {
	return r.pubsub.Subscribe(ctx, r.channel, func(raw []byte) {
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			r.logger.Warn("ignoring malformed change message", zap.Error(err))
			return
		}
		fn(msg)
	})
}
