//go:build integration

package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"havenlink/internal/platform/config"
	"havenlink/internal/platform/kafka"
	"havenlink/pkg/testutil/containers"
)

func TestPublisherRoundTrip(t *testing.T) {
	const topic = "havenlink.workflow-events.test"
	rp := containers.NewRedpandaContainer(t, topic)

	producer, err := kafka.NewProducer(config.KafkaConfig{
		Brokers: rp.Brokers,
		Topic:   topic,
	})
	require.NoError(t, err)
	require.NotNil(t, producer)
	t.Cleanup(producer.Close)

	publisher := NewPublisher(producer, slog.Default())
	ctx := context.Background()

	sent := Event{
		Action:     ActionContractSigned,
		ActorID:    "actor-1",
		SubjectID:  "contract-1",
		OccurredAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		RequestID:  "req-1",
	}
	require.NoError(t, publisher.Emit(ctx, sent))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "contract-1", string(records[0].Key))

	var got Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, sent.Action, got.Action)
	assert.Equal(t, sent.ActorID, got.ActorID)
	assert.Equal(t, sent.OccurredAt, got.OccurredAt.UTC())
	assert.Equal(t, sent.RequestID, got.RequestID)
}
