package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	platformredis "havenlink/internal/platform/redis"
)

// RedisBroker routes events through Redis pub/sub channels so live-push
// works across multiple server instances.
type RedisBroker struct {
	client *platformredis.Client
	logger *slog.Logger
}

func NewRedisBroker(client *platformredis.Client, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (<-chan Event, func(), error) {
	sub := b.client.Client.Subscribe(ctx, topic)
	// Force the subscription onto the wire before returning so callers
	// don't miss events published immediately after Subscribe.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	out := make(chan Event, 16)
	done := make(chan struct{})

	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("dropping malformed live-push event",
						"topic", topic,
						"error", err,
					)
					continue
				}
				select {
				case out <- event:
				case <-done:
					return
				}
			}
		}
	}()

	cancel := func() {
		close(done)
		_ = sub.Close()
	}
	return out, cancel, nil
}
