package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	identitymodels "havenlink/internal/identity/models"
	"havenlink/internal/notification/models"
	"havenlink/internal/pubsub"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/platform/sentinel"
	"havenlink/pkg/requestcontext"
)

// Store is the notification persistence the service needs.
type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID id.IdentityID) ([]*models.Notification, error)
	CountUnread(ctx context.Context, recipientID id.IdentityID) (int, error)
	Execute(ctx context.Context, notificationID id.NotificationID,
		validate func(*models.Notification) error,
		mutate func(*models.Notification)) (*models.Notification, error)
}

// AdminDirectory resolves the current administrator pool. Pool notices fan
// out one notification per administrator instead of using a sentinel
// recipient.
type AdminDirectory interface {
	ListByRole(ctx context.Context, role id.Role) ([]*identitymodels.Identity, error)
}

// Service is the notification outbox.
type Service struct {
	store  Store
	admins AdminDirectory
	broker pubsub.Broker
	logger *slog.Logger
}

type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithBroker enables live-push of new notices to connected sessions.
func WithBroker(broker pubsub.Broker) Option {
	return func(s *Service) { s.broker = broker }
}

func New(store Store, admins AdminDirectory, opts ...Option) *Service {
	s := &Service{store: store, admins: admins, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify appends a notice for one recipient. Intended to be called inside
// the emitting workflow's transaction so the notice persists exactly when
// the primary mutation does.
func (s *Service) Notify(ctx context.Context, recipientID id.IdentityID, title, content string, category models.Category) error {
	n, err := models.NewNotification(id.NewNotificationID(), recipientID, title, content, category, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	if err := s.store.Create(ctx, n); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create notification")
	}
	s.push(ctx, n)
	return nil
}

// NotifyAdministrators fans the notice out to every identity currently
// holding the administrator role.
func (s *Service) NotifyAdministrators(ctx context.Context, title, content string, category models.Category) error {
	admins, err := s.admins.ListByRole(ctx, id.RoleAdministrator)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve administrator pool")
	}
	if len(admins) == 0 {
		s.logger.WarnContext(ctx, "no administrators to notify",
			"title", title,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}
	for _, admin := range admins {
		if err := s.Notify(ctx, admin.ID, title, content, category); err != nil {
			return err
		}
	}
	return nil
}

// List returns the recipient's notices, newest first.
func (s *Service) List(ctx context.Context, recipientID id.IdentityID) ([]*models.Notification, error) {
	notifications, err := s.store.ListByRecipient(ctx, recipientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return notifications, nil
}

// UnreadCount returns the recipient's unread badge count.
func (s *Service) UnreadCount(ctx context.Context, recipientID id.IdentityID) (int, error) {
	count, err := s.store.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count unread notifications")
	}
	return count, nil
}

// MarkRead flips a notice to read. Only the recipient may mark it, and a
// second mark is a no-op preserving the original ReadAt.
func (s *Service) MarkRead(ctx context.Context, callerID id.IdentityID, notificationID id.NotificationID) (*models.Notification, error) {
	now := requestcontext.Now(ctx)
	n, err := s.store.Execute(ctx, notificationID,
		func(n *models.Notification) error {
			if n.RecipientID != callerID {
				return dErrors.New(dErrors.CodeForbidden, "notification belongs to another identity")
			}
			return nil
		},
		func(n *models.Notification) {
			n.ApplyRead(now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		if dErrors.HasCode(err, dErrors.CodeForbidden) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	return n, nil
}

// push is fire-and-forget: a live-push failure never fails the workflow
// that emitted the notice.
func (s *Service) push(ctx context.Context, n *models.Notification) {
	if s.broker == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	event := pubsub.Event{
		Kind:       pubsub.EventNotificationSent,
		OccurredAt: n.CreatedAt,
		Payload:    payload,
	}
	if err := s.broker.Publish(ctx, pubsub.Topic(n.RecipientID), event); err != nil {
		s.logger.WarnContext(ctx, "live-push of notification failed",
			"notification_id", n.ID,
			"error", err,
		)
	}
}
