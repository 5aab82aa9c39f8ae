// Package service implements the profile approval workflow: submission by
// seekers and hosts, administrator review, and the notification and event
// side effects of each transition.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"havenlink/internal/events"
	identitymodels "havenlink/internal/identity/models"
	notifmodels "havenlink/internal/notification/models"
	"havenlink/internal/profile/metrics"
	"havenlink/internal/profile/models"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/platform/sentinel"
	"havenlink/pkg/platform/tx"
	"havenlink/pkg/requestcontext"
)

// IdentityStore is the identity persistence the workflow needs.
type IdentityStore interface {
	FindByID(ctx context.Context, identityID id.IdentityID) (*identitymodels.Identity, error)
	ListByRoleAndStatus(ctx context.Context, role id.Role, status identitymodels.ProfileStatus) ([]*identitymodels.Identity, error)
	Execute(ctx context.Context, identityID id.IdentityID,
		validate func(*identitymodels.Identity) error,
		mutate func(*identitymodels.Identity)) (*identitymodels.Identity, error)
}

// ProfileStore is the profile persistence the workflow needs.
type ProfileStore interface {
	CreateSeeker(ctx context.Context, p *models.SeekerProfile) error
	CreateHost(ctx context.Context, p *models.HostProfile) error
	FindSeeker(ctx context.Context, identityID id.IdentityID) (*models.SeekerProfile, error)
	FindHost(ctx context.Context, identityID id.IdentityID) (*models.HostProfile, error)
	UpdateSeeker(ctx context.Context, p *models.SeekerProfile) error
	UpdateHost(ctx context.Context, p *models.HostProfile) error
}

// Notifier emits outbox notices as workflow side effects.
type Notifier interface {
	Notify(ctx context.Context, recipientID id.IdentityID, title, content string, category notifmodels.Category) error
	NotifyAdministrators(ctx context.Context, title, content string, category notifmodels.Category) error
}

// EventPublisher records workflow transitions on the event stream.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service orchestrates the approval workflow.
type Service struct {
	identities IdentityStore
	profiles   ProfileStore
	notifier   Notifier
	eventsPub  EventPublisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tx         tx.Runner
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithEventPublisher(pub EventPublisher) Option {
	return func(s *Service) { s.eventsPub = pub }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func New(identities IdentityStore, profiles ProfileStore, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		identities: identities,
		profiles:   profiles,
		notifier:   notifier,
		logger:     slog.Default(),
		tx:         tx.Noop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var tracer = otel.Tracer("havenlink/profile")

// SubmitSeekerProfile creates the caller's seeker profile. Submission does
// not change the review status: the identity is already pending from
// onboarding. Administrators are notified so the review queue moves.
func (s *Service) SubmitSeekerProfile(ctx context.Context, callerID id.IdentityID, p *models.SeekerProfile) (*models.SeekerProfile, error) {
	ctx, span := tracer.Start(ctx, "profile.SubmitSeekerProfile")
	defer span.End()

	identity, err := s.requireRole(ctx, callerID, id.RoleSeeker)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	p.IdentityID = callerID
	p.CreatedAt = now
	p.UpdatedAt = now

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.profiles.CreateSeeker(txCtx, p); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "seeker profile already submitted")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create seeker profile")
		}
		return s.notifier.NotifyAdministrators(txCtx,
			"Profile submitted for review",
			fmt.Sprintf("%s submitted a seeker profile.", identity.DisplayName),
			notifmodels.CategoryProfile)
	})
	if err != nil {
		return nil, err
	}

	s.afterSubmit(ctx, callerID)
	return p, nil
}

// SubmitHostProfile creates the caller's host profile.
func (s *Service) SubmitHostProfile(ctx context.Context, callerID id.IdentityID, p *models.HostProfile) (*models.HostProfile, error) {
	ctx, span := tracer.Start(ctx, "profile.SubmitHostProfile")
	defer span.End()

	identity, err := s.requireRole(ctx, callerID, id.RoleHost)
	if err != nil {
		return nil, err
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	p.IdentityID = callerID
	p.CreatedAt = now
	p.UpdatedAt = now

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.profiles.CreateHost(txCtx, p); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "host profile already submitted")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create host profile")
		}
		return s.notifier.NotifyAdministrators(txCtx,
			"Profile submitted for review",
			fmt.Sprintf("%s submitted a host profile.", identity.DisplayName),
			notifmodels.CategoryProfile)
	})
	if err != nil {
		return nil, err
	}

	s.afterSubmit(ctx, callerID)
	return p, nil
}

// UpdateSeekerProfile replaces the caller's own seeker profile in place.
func (s *Service) UpdateSeekerProfile(ctx context.Context, callerID id.IdentityID, p *models.SeekerProfile) (*models.SeekerProfile, error) {
	if _, err := s.requireRole(ctx, callerID, id.RoleSeeker); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.profiles.FindSeeker(ctx, callerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "seeker profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load seeker profile")
	}

	p.IdentityID = callerID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = requestcontext.Now(ctx)
	if err := s.profiles.UpdateSeeker(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update seeker profile")
	}
	return p, nil
}

// UpdateHostProfile replaces the caller's own host profile in place.
func (s *Service) UpdateHostProfile(ctx context.Context, callerID id.IdentityID, p *models.HostProfile) (*models.HostProfile, error) {
	if _, err := s.requireRole(ctx, callerID, id.RoleHost); err != nil {
		return nil, err
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.profiles.FindHost(ctx, callerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "host profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load host profile")
	}

	p.IdentityID = callerID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = requestcontext.Now(ctx)
	if err := s.profiles.UpdateHost(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update host profile")
	}
	return p, nil
}

// PendingReview pairs a pending identity with its submitted profile, if
// any. Identities that registered but never submitted appear with both
// profile fields nil so administrators can see the whole queue.
type PendingReview struct {
	Identity *identitymodels.Identity `json:"identity"`
	Seeker   *models.SeekerProfile    `json:"seeker_profile,omitempty"`
	Host     *models.HostProfile      `json:"host_profile,omitempty"`
}

// ListPendingReviews returns the administrator review queue.
func (s *Service) ListPendingReviews(ctx context.Context, adminID id.IdentityID) ([]PendingReview, error) {
	if err := s.requireAdministrator(ctx, adminID); err != nil {
		return nil, err
	}

	var queue []PendingReview
	for _, role := range []id.Role{id.RoleSeeker, id.RoleHost} {
		identities, err := s.identities.ListByRoleAndStatus(ctx, role, identitymodels.ProfileStatusPending)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending identities")
		}
		for _, identity := range identities {
			review := PendingReview{Identity: identity}
			switch role {
			case id.RoleSeeker:
				if p, err := s.profiles.FindSeeker(ctx, identity.ID); err == nil {
					review.Seeker = p
				} else if !errors.Is(err, sentinel.ErrNotFound) {
					return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load seeker profile")
				}
			case id.RoleHost:
				if p, err := s.profiles.FindHost(ctx, identity.ID); err == nil {
					review.Host = p
				} else if !errors.Is(err, sentinel.ErrNotFound) {
					return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load host profile")
				}
			}
			queue = append(queue, review)
		}
	}
	return queue, nil
}

// ReviewProfile records an administrator decision on a pending identity.
// Terminal statuses are final; reviewing an already-settled identity fails
// with an invalid-state error rather than silently overwriting.
func (s *Service) ReviewProfile(ctx context.Context, adminID, targetID id.IdentityID, decision identitymodels.ReviewDecision) (*identitymodels.Identity, error) {
	ctx, span := tracer.Start(ctx, "profile.ReviewProfile")
	defer span.End()
	span.SetAttributes(
		attribute.String("target.id", targetID.String()),
		attribute.String("review.decision", string(decision)),
	)

	if err := s.requireAdministrator(ctx, adminID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var reviewed *identitymodels.Identity
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		identity, err := s.identities.Execute(txCtx, targetID,
			func(target *identitymodels.Identity) error {
				if !target.Role.IsParticipant() {
					return dErrors.New(dErrors.CodeValidation, "only seeker and host profiles are reviewable")
				}
				return target.CanReview()
			},
			func(target *identitymodels.Identity) {
				target.ApplyReview(decision, now)
			},
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "identity not found")
			}
			return err
		}

		title := "Profile approved"
		content := "Your profile has been approved. You can now browse and contact matches."
		if decision == identitymodels.DecisionReject {
			title = "Profile rejected"
			content = "Your profile was not approved. Contact support for details."
		}
		if err := s.notifier.Notify(txCtx, targetID, title, content, notifmodels.CategoryProfile); err != nil {
			return err
		}
		reviewed = identity
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := events.ActionProfileApproved
	if decision == identitymodels.DecisionReject {
		action = events.ActionProfileRejected
	}
	s.emit(ctx, events.Event{
		Action:    action,
		ActorID:   adminID.String(),
		SubjectID: targetID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncReview(string(decision))
	}
	s.logger.InfoContext(ctx, "profile reviewed",
		"event", string(action),
		"target_id", targetID,
		"admin_id", adminID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return reviewed, nil
}

func (s *Service) afterSubmit(ctx context.Context, callerID id.IdentityID) {
	s.emit(ctx, events.Event{
		Action:    events.ActionProfileSubmitted,
		ActorID:   callerID.String(),
		SubjectID: callerID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncSubmitted()
	}
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

func (s *Service) requireRole(ctx context.Context, callerID id.IdentityID, role id.Role) (*identitymodels.Identity, error) {
	identity, err := s.identities.FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	if identity.Role != role {
		return nil, dErrors.Newf(dErrors.CodeForbidden, "operation requires the %s role", role)
	}
	return identity, nil
}

func (s *Service) requireAdministrator(ctx context.Context, callerID id.IdentityID) error {
	identity, err := s.identities.FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	if !identity.IsAdministrator() {
		return dErrors.New(dErrors.CodeForbidden, "operation requires the administrator role")
	}
	return nil
}
