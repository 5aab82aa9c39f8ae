// Package pubsub is the live-push capability behind the messaging channel.
//
// Events are routed per recipient: the topic is the recipient's identity
// ID, so a session subscribed for one identity never observes events for
// conversations it is not part of.
package pubsub

import (
	"context"
	"encoding/json"
	"time"

	id "havenlink/pkg/domain"
)

// EventKind classifies live-push events.
type EventKind string

const (
	EventMessageCreated   EventKind = "message_created"
	EventMessageRead      EventKind = "message_read"
	EventNotificationSent EventKind = "notification_sent"
)

// Event is the payload delivered to subscribed sessions.
type Event struct {
	Kind       EventKind       `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Topic derives the per-identity channel name events are routed on.
func Topic(identityID id.IdentityID) string {
	return "identity:" + identityID.String()
}

// Broker fans events out to subscribed sessions. Publish is fire-and-forget:
// delivery failures are logged, never surfaced to the emitting workflow.
type Broker interface {
	// Publish delivers the event to all current subscribers of the topic.
	Publish(ctx context.Context, topic string, event Event) error
	// Subscribe returns a channel of events for the topic and a cancel
	// function that must be called when the session ends.
	Subscribe(ctx context.Context, topic string) (<-chan Event, func(), error)
}
