// Package service implements feedback submission and administrator triage.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"

	"havenlink/internal/events"
	"havenlink/internal/feedback/models"
	identitymodels "havenlink/internal/identity/models"
	notifmodels "havenlink/internal/notification/models"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/platform/sentinel"
	"havenlink/pkg/platform/tx"
	"havenlink/pkg/requestcontext"
)

// FeedbackStore is the feedback persistence triage needs.
type FeedbackStore interface {
	Create(ctx context.Context, f *models.Feedback) error
	FindByID(ctx context.Context, feedbackID id.FeedbackID) (*models.Feedback, error)
	ListByAuthor(ctx context.Context, authorID id.IdentityID) ([]*models.Feedback, error)
	ListAll(ctx context.Context) ([]*models.Feedback, error)
	Execute(ctx context.Context, feedbackID id.FeedbackID,
		validate func(*models.Feedback) error,
		mutate func(*models.Feedback)) (*models.Feedback, error)
}

// IdentityStore resolves callers for authorization.
type IdentityStore interface {
	FindByID(ctx context.Context, identityID id.IdentityID) (*identitymodels.Identity, error)
}

// Notifier emits outbox notices as triage side effects.
type Notifier interface {
	Notify(ctx context.Context, recipientID id.IdentityID, title, content string, category notifmodels.Category) error
	NotifyAdministrators(ctx context.Context, title, content string, category notifmodels.Category) error
}

// EventPublisher records triage transitions on the event stream.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service implements feedback workflows.
type Service struct {
	feedback   FeedbackStore
	identities IdentityStore
	notifier   Notifier
	eventsPub  EventPublisher
	logger     *slog.Logger
	tx         tx.Runner
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEventPublisher(pub EventPublisher) Option {
	return func(s *Service) { s.eventsPub = pub }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func New(feedback FeedbackStore, identities IdentityStore, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		feedback:   feedback,
		identities: identities,
		notifier:   notifier,
		logger:     slog.Default(),
		tx:         tx.Noop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var tracer = otel.Tracer("havenlink/feedback")

// Submit records a feedback item and alerts the administrator pool.
func (s *Service) Submit(ctx context.Context, authorID id.IdentityID, subject, content string) (*models.Feedback, error) {
	ctx, span := tracer.Start(ctx, "feedback.Submit")
	defer span.End()

	if _, err := s.loadIdentity(ctx, authorID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	item, err := models.NewFeedback(id.NewFeedbackID(), authorID, subject, content, now)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.feedback.Create(txCtx, item); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store feedback")
		}
		return s.notifier.NotifyAdministrators(txCtx,
			"New feedback submitted",
			fmt.Sprintf("Feedback %q is awaiting review.", item.Subject),
			notifmodels.CategoryFeedback)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.Event{
		Action:    events.ActionFeedbackSubmitted,
		ActorID:   authorID.String(),
		SubjectID: item.ID.String(),
	})
	return item, nil
}

// Respond records an administrator reply and the resulting triage status,
// and notifies the author.
func (s *Service) Respond(ctx context.Context, adminID id.IdentityID, feedbackID id.FeedbackID, response string, target models.Status) (*models.Feedback, error) {
	ctx, span := tracer.Start(ctx, "feedback.Respond")
	defer span.End()

	if err := s.requireAdministrator(ctx, adminID); err != nil {
		return nil, err
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "response content must not be empty")
	}

	now := requestcontext.Now(ctx)
	var updated *models.Feedback
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		item, err := s.feedback.Execute(txCtx, feedbackID,
			func(f *models.Feedback) error {
				return f.CanRespond(target)
			},
			func(f *models.Feedback) {
				f.ApplyResponse(adminID, response, target, now)
			},
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "feedback not found")
			}
			return err
		}

		if err := s.notifier.Notify(txCtx, item.AuthorID,
			"Feedback update",
			fmt.Sprintf("An administrator responded to %q.", item.Subject),
			notifmodels.CategoryFeedback); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	if target == models.StatusResolved {
		s.emit(ctx, events.Event{
			Action:    events.ActionFeedbackResolved,
			ActorID:   adminID.String(),
			SubjectID: feedbackID.String(),
		})
	}
	return updated, nil
}

// ListForAuthor returns the caller's own submissions, newest first.
func (s *Service) ListForAuthor(ctx context.Context, authorID id.IdentityID) ([]*models.Feedback, error) {
	items, err := s.feedback.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list feedback")
	}
	return items, nil
}

// ListAll returns the full triage queue. Administrators only.
func (s *Service) ListAll(ctx context.Context, adminID id.IdentityID) ([]*models.Feedback, error) {
	if err := s.requireAdministrator(ctx, adminID); err != nil {
		return nil, err
	}
	items, err := s.feedback.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list feedback")
	}
	return items, nil
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

func (s *Service) requireAdministrator(ctx context.Context, callerID id.IdentityID) error {
	caller, err := s.loadIdentity(ctx, callerID)
	if err != nil {
		return err
	}
	if !caller.IsAdministrator() {
		return dErrors.New(dErrors.CodeForbidden, "operation requires the administrator role")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.eventsPub == nil {
		return
	}
	if err := s.eventsPub.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish workflow event",
			"action", string(event.Action),
			"subject_id", event.SubjectID,
			"error", err,
		)
	}
}
