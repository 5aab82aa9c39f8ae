package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "havenlink/pkg/domain"
)

func TestMemoryBroker(t *testing.T) {
	ctx := context.Background()

	t.Run("events reach only the subscribed topic", func(t *testing.T) {
		broker := NewMemoryBroker()
		alice := Topic(id.NewIdentityID())
		bob := Topic(id.NewIdentityID())

		aliceCh, cancelAlice, err := broker.Subscribe(ctx, alice)
		require.NoError(t, err)
		defer cancelAlice()
		bobCh, cancelBob, err := broker.Subscribe(ctx, bob)
		require.NoError(t, err)
		defer cancelBob()

		event := Event{Kind: EventMessageCreated, OccurredAt: time.Now()}
		require.NoError(t, broker.Publish(ctx, alice, event))

		select {
		case got := <-aliceCh:
			assert.Equal(t, EventMessageCreated, got.Kind)
		default:
			t.Fatal("expected an event on the subscribed topic")
		}

		select {
		case <-bobCh:
			t.Fatal("event leaked to an unrelated topic")
		default:
		}
	})

	t.Run("publishing with no subscribers is a no-op", func(t *testing.T) {
		broker := NewMemoryBroker()
		require.NoError(t, broker.Publish(ctx, Topic(id.NewIdentityID()), Event{Kind: EventNotificationSent}))
	})

	t.Run("all subscribers of a topic receive the event", func(t *testing.T) {
		broker := NewMemoryBroker()
		topic := Topic(id.NewIdentityID())

		first, cancelFirst, err := broker.Subscribe(ctx, topic)
		require.NoError(t, err)
		defer cancelFirst()
		second, cancelSecond, err := broker.Subscribe(ctx, topic)
		require.NoError(t, err)
		defer cancelSecond()

		require.NoError(t, broker.Publish(ctx, topic, Event{Kind: EventMessageRead}))
		assert.Len(t, first, 1)
		assert.Len(t, second, 1)
	})

	t.Run("cancel closes the channel and stops delivery", func(t *testing.T) {
		broker := NewMemoryBroker()
		topic := Topic(id.NewIdentityID())

		ch, cancel, err := broker.Subscribe(ctx, topic)
		require.NoError(t, err)
		cancel()

		_, open := <-ch
		assert.False(t, open)

		require.NoError(t, broker.Publish(ctx, topic, Event{Kind: EventMessageCreated}))
	})

	t.Run("cancel is safe to call twice", func(t *testing.T) {
		broker := NewMemoryBroker()
		_, cancel, err := broker.Subscribe(ctx, Topic(id.NewIdentityID()))
		require.NoError(t, err)
		cancel()
		cancel()
	})

	t.Run("a full subscriber drops events instead of blocking", func(t *testing.T) {
		broker := NewMemoryBroker()
		topic := Topic(id.NewIdentityID())

		ch, cancel, err := broker.Subscribe(ctx, topic)
		require.NoError(t, err)
		defer cancel()

		for i := 0; i < cap(ch)+5; i++ {
			require.NoError(t, broker.Publish(ctx, topic, Event{Kind: EventMessageCreated}))
		}
		assert.Len(t, ch, cap(ch))
	})
}
