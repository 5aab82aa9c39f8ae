//go:build integration

package pubsub

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformredis "havenlink/internal/platform/redis"
	id "havenlink/pkg/domain"
	"havenlink/pkg/testutil/containers"
)

func TestRedisBroker(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	broker := NewRedisBroker(&platformredis.Client{Client: rc.Client}, slog.Default())
	ctx := context.Background()

	receive := func(t *testing.T, ch <-chan Event) Event {
		t.Helper()
		select {
		case event := <-ch:
			return event
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for event")
			return Event{}
		}
	}

	t.Run("events round-trip through redis", func(t *testing.T) {
		topic := Topic(id.NewIdentityID())
		ch, cancel, err := broker.Subscribe(ctx, topic)
		require.NoError(t, err)
		defer cancel()

		sent := Event{
			Kind:       EventMessageCreated,
			OccurredAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
			Payload:    []byte(`{"content":"hello"}`),
		}
		require.NoError(t, broker.Publish(ctx, topic, sent))

		got := receive(t, ch)
		assert.Equal(t, sent.Kind, got.Kind)
		assert.Equal(t, sent.OccurredAt, got.OccurredAt.UTC())
		assert.JSONEq(t, string(sent.Payload), string(got.Payload))
	})

	t.Run("topics are isolated per identity", func(t *testing.T) {
		mine := Topic(id.NewIdentityID())
		theirs := Topic(id.NewIdentityID())

		ch, cancel, err := broker.Subscribe(ctx, mine)
		require.NoError(t, err)
		defer cancel()

		require.NoError(t, broker.Publish(ctx, theirs, Event{Kind: EventMessageRead}))
		require.NoError(t, broker.Publish(ctx, mine, Event{Kind: EventNotificationSent}))

		got := receive(t, ch)
		assert.Equal(t, EventNotificationSent, got.Kind)
	})

	t.Run("cancel closes the channel", func(t *testing.T) {
		topic := Topic(id.NewIdentityID())
		ch, cancel, err := broker.Subscribe(ctx, topic)
		require.NoError(t, err)

		cancel()
		select {
		case _, open := <-ch:
			assert.False(t, open)
		case <-time.After(5 * time.Second):
			t.Fatal("channel was not closed after cancel")
		}
	})
}
