// Package events publishes workflow transitions to the platform event
// stream. Downstream consumers (reporting, moderation tooling) replay the
// topic; the workflows themselves never read it back.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"havenlink/internal/platform/kafka"
	"havenlink/pkg/requestcontext"
)

// Action names a workflow transition.
type Action string

const (
	ActionProfileSubmitted  Action = "profile_submitted"
	ActionProfileApproved   Action = "profile_approved"
	ActionProfileRejected   Action = "profile_rejected"
	ActionContractProposed  Action = "contract_proposed"
	ActionContractSigned    Action = "contract_signed"
	ActionContractReady     Action = "contract_ready_for_ratification"
	ActionContractCompleted Action = "contract_completed"
	ActionContractCancelled Action = "contract_cancelled"
	ActionFeedbackSubmitted Action = "feedback_submitted"
	ActionFeedbackResolved  Action = "feedback_resolved"
)

// Event is the record published per transition. SubjectID keys the record
// so all events for one entity land in one partition, in order.
type Event struct {
	Action     Action            `json:"action"`
	ActorID    string            `json:"actor_id,omitempty"`
	SubjectID  string            `json:"subject_id"`
	OccurredAt time.Time         `json:"occurred_at"`
	RequestID  string            `json:"request_id,omitempty"`
	Detail     map[string]string `json:"detail,omitempty"`
}

// Publisher emits events to Kafka. A nil producer disables publication;
// every emission is still logged so single-node deployments keep a trail.
type Publisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

func NewPublisher(producer *kafka.Producer, logger *slog.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

// Emit publishes one event. Failures are returned; workflows log them and
// proceed, since the event stream is observational, not authoritative.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	p.logger.InfoContext(ctx, string(event.Action),
		"log_type", "workflow_event",
		"subject_id", event.SubjectID,
		"actor_id", event.ActorID,
		"request_id", event.RequestID,
	)

	if p.producer == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, event.SubjectID, payload)
}
