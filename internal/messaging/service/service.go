// Package service implements the direct messaging channel: sending,
// conversation reads, and the sent/delivered/read delivery lifecycle.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"

	identitymodels "havenlink/internal/identity/models"
	"havenlink/internal/messaging/metrics"
	"havenlink/internal/messaging/models"
	"havenlink/internal/pubsub"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/platform/sentinel"
	"havenlink/pkg/requestcontext"
)

// MessageStore is the message persistence the channel needs.
type MessageStore interface {
	Create(ctx context.Context, m *models.Message) error
	FindByID(ctx context.Context, messageID id.MessageID) (*models.Message, error)
	ListConversation(ctx context.Context, a, b id.IdentityID) ([]*models.Message, error)
	ListByParticipant(ctx context.Context, identityID id.IdentityID) ([]*models.Message, error)
	Execute(ctx context.Context, messageID id.MessageID,
		validate func(*models.Message) error,
		mutate func(*models.Message)) (*models.Message, error)
}

// IdentityStore resolves the identities a message names.
type IdentityStore interface {
	FindByID(ctx context.Context, identityID id.IdentityID) (*identitymodels.Identity, error)
}

// Service implements the messaging channel.
type Service struct {
	messages   MessageStore
	identities IdentityStore
	broker     pubsub.Broker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithBroker(broker pubsub.Broker) Option {
	return func(s *Service) { s.broker = broker }
}

func New(messages MessageStore, identities IdentityStore, opts ...Option) *Service {
	s := &Service{
		messages:   messages,
		identities: identities,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var tracer = otel.Tracer("havenlink/messaging")

// Send persists a message from the caller to the recipient and pushes a
// live event to both participants' sessions.
func (s *Service) Send(ctx context.Context, senderID, recipientID id.IdentityID, content string) (*models.Message, error) {
	ctx, span := tracer.Start(ctx, "messaging.Send")
	defer span.End()

	if _, err := s.loadIdentity(ctx, senderID); err != nil {
		return nil, err
	}
	if _, err := s.loadIdentity(ctx, recipientID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	msg, err := models.NewMessage(id.NewMessageID(), senderID, recipientID, content, now)
	if err != nil {
		return nil, err
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store message")
	}

	if s.metrics != nil {
		s.metrics.MessagesSent.Inc()
	}
	s.push(ctx, pubsub.EventMessageCreated, msg, senderID, recipientID)
	return msg, nil
}

// Conversation returns the caller's thread with the counterpart, oldest
// first.
func (s *Service) Conversation(ctx context.Context, callerID, counterpartID id.IdentityID) ([]*models.Message, error) {
	msgs, err := s.messages.ListConversation(ctx, callerID, counterpartID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load conversation")
	}
	return msgs, nil
}

// Conversations summarizes the caller's inbox: one entry per counterpart
// with the latest message and the unread count, most recent thread first.
func (s *Service) Conversations(ctx context.Context, callerID id.IdentityID) ([]*models.ConversationSummary, error) {
	msgs, err := s.messages.ListByParticipant(ctx, callerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load messages")
	}

	byCounterpart := make(map[id.IdentityID]*models.ConversationSummary)
	var order []id.IdentityID
	for _, m := range msgs {
		counterpart := m.SenderID
		if counterpart == callerID {
			counterpart = m.RecipientID
		}
		summary, ok := byCounterpart[counterpart]
		if !ok {
			summary = &models.ConversationSummary{CounterpartID: counterpart}
			byCounterpart[counterpart] = summary
			order = append(order, counterpart)
		}
		summary.LastMessage = m
		if m.RecipientID == callerID && m.Status != models.StatusRead {
			summary.UnreadCount++
		}
	}

	out := make([]*models.ConversationSummary, 0, len(order))
	for _, counterpart := range order {
		out = append(out, byCounterpart[counterpart])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessage.CreatedAt.After(out[j].LastMessage.CreatedAt)
	})
	return out, nil
}

// MarkDelivered advances a message to delivered. Only the recipient's
// session may report delivery.
func (s *Service) MarkDelivered(ctx context.Context, callerID id.IdentityID, messageID id.MessageID) (*models.Message, error) {
	return s.advance(ctx, callerID, messageID, models.StatusDelivered)
}

// MarkRead advances a message to read, stamping ReadAt on the first call,
// and pushes a read receipt to the sender's session.
func (s *Service) MarkRead(ctx context.Context, callerID id.IdentityID, messageID id.MessageID) (*models.Message, error) {
	msg, err := s.advance(ctx, callerID, messageID, models.StatusRead)
	if err != nil {
		return nil, err
	}
	s.push(ctx, pubsub.EventMessageRead, msg, msg.SenderID)
	return msg, nil
}

func (s *Service) advance(ctx context.Context, callerID id.IdentityID, messageID id.MessageID, target models.DeliveryStatus) (*models.Message, error) {
	now := requestcontext.Now(ctx)
	msg, err := s.messages.Execute(ctx, messageID,
		func(m *models.Message) error {
			if m.RecipientID != callerID {
				return dErrors.New(dErrors.CodeForbidden, "only the recipient may update delivery status")
			}
			return m.CanAdvance(target)
		},
		func(m *models.Message) {
			m.ApplyAdvance(target, now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "message not found")
		}
		return nil, err
	}
	return msg, nil
}

func (s *Service) loadIdentity(ctx context.Context, identityID id.IdentityID) (*identitymodels.Identity, error) {
	identity, err := s.identities.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	return identity, nil
}

// push delivers a live event to each recipient's topic. Delivery is
// best-effort; failures are counted and logged.
func (s *Service) push(ctx context.Context, kind pubsub.EventKind, msg *models.Message, recipients ...id.IdentityID) {
	if s.broker == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode live-push payload", "error", err)
		return
	}
	event := pubsub.Event{
		Kind:       kind,
		OccurredAt: requestcontext.Now(ctx),
		Payload:    payload,
	}
	for _, recipient := range recipients {
		if err := s.broker.Publish(ctx, pubsub.Topic(recipient), event); err != nil {
			if s.metrics != nil {
				s.metrics.LivePushFailures.Inc()
			}
			s.logger.WarnContext(ctx, "live push failed",
				"kind", string(kind),
				"recipient_id", recipient,
				"error", err,
			)
		}
	}
}
