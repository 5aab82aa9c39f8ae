// Package service implements the contract workflow: proposal, dual
// signature, administrator ratification, and cancellation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"havenlink/internal/contract/metrics"
	"havenlink/internal/contract/models"
	"havenlink/internal/events"
	identitymodels "havenlink/internal/identity/models"
	notifmodels "havenlink/internal/notification/models"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/platform/sentinel"
	"havenlink/pkg/platform/tx"
	"havenlink/pkg/requestcontext"
)

// ContractStore is the contract persistence the workflow needs.
type ContractStore interface {
	Create(ctx context.Context, c *models.Contract) error
	FindByID(ctx context.Context, contractID id.ContractID) (*models.Contract, error)
	ListByParticipant(ctx context.Context, identityID id.IdentityID) ([]*models.Contract, error)
	ListAwaitingRatification(ctx context.Context) ([]*models.Contract, error)
	Execute(ctx context.Context, contractID id.ContractID,
		validate func(*models.Contract) error,
		mutate func(*models.Contract)) (*models.Contract, error)
}

// IdentityStore resolves and authorizes the identities a contract names.
type IdentityStore interface {
	FindByID(ctx context.Context, identityID id.IdentityID) (*identitymodels.Identity, error)
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

// Service orchestrates the contract workflow.
type Service struct {
	contracts  ContractStore
	identities IdentityStore
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

func New(contracts ContractStore, identities IdentityStore, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		contracts:  contracts,
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

var tracer = otel.Tracer("havenlink/contract")

// ProposalRequest carries the fields a proposer submits.
type ProposalRequest struct {
	CounterpartID id.IdentityID
	Terms         string
	Duration      models.Duration
	StartDate     time.Time
}

// Propose creates a contract naming the proposer and the counterpart.
// The proposer's role decides which slot each identity fills; the
// counterpart must hold the complementary role.
func (s *Service) Propose(ctx context.Context, proposerID id.IdentityID, req ProposalRequest) (*models.Contract, error) {
	ctx, span := tracer.Start(ctx, "contract.Propose")
	defer span.End()

	proposer, err := s.loadIdentity(ctx, proposerID)
	if err != nil {
		return nil, err
	}
	if !proposer.Role.IsParticipant() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only seekers and hosts may propose contracts")
	}

	counterpart, err := s.loadIdentity(ctx, req.CounterpartID)
	if err != nil {
		return nil, err
	}
	if counterpart.Role != proposer.Role.Counterpart() {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"counterpart must hold the %s role", proposer.Role.Counterpart())
	}

	seekerID, hostID := proposerID, req.CounterpartID
	if proposer.Role == id.RoleHost {
		seekerID, hostID = req.CounterpartID, proposerID
	}

	now := requestcontext.Now(ctx)
	contract, err := models.NewContract(id.NewContractID(), seekerID, hostID,
		req.Terms, req.Duration, req.StartDate, now)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.contracts.Create(txCtx, contract); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create contract")
		}
		return s.notifier.Notify(txCtx, req.CounterpartID,
			"Housing agreement proposed",
			fmt.Sprintf("%s proposed a housing agreement. Review and sign it to proceed.", proposer.DisplayName),
			notifmodels.CategoryContract)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.Event{
		Action:    events.ActionContractProposed,
		ActorID:   proposerID.String(),
		SubjectID: contract.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.ContractsProposed.Inc()
	}
	return contract, nil
}

// Sign records the caller's signature on the contract. Signing is
// idempotent per party: a repeat signature keeps the original timestamp.
// When the second signature lands, the administrator pool is notified
// that the contract awaits ratification.
func (s *Service) Sign(ctx context.Context, callerID id.IdentityID, contractID id.ContractID) (*models.Contract, error) {
	ctx, span := tracer.Start(ctx, "contract.Sign")
	defer span.End()
	span.SetAttributes(attribute.String("contract.id", contractID.String()))

	now := requestcontext.Now(ctx)
	var newlySigned, becameFullySigned bool

	var signed *models.Contract
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		contract, err := s.contracts.Execute(txCtx, contractID,
			func(c *models.Contract) error {
				party := c.PartyRole(callerID)
				if party == "" {
					return dErrors.New(dErrors.CodeForbidden, "only named parties may sign this contract")
				}
				return c.CanSign(party)
			},
			func(c *models.Contract) {
				wasFullySigned := c.BothSigned()
				newlySigned = c.ApplySignature(c.PartyRole(callerID), now)
				becameFullySigned = !wasFullySigned && c.BothSigned()
			},
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "contract not found")
			}
			return err
		}

		if becameFullySigned {
			if err := s.notifier.NotifyAdministrators(txCtx,
				"Contract awaiting ratification",
				"Both parties signed a housing agreement. Administrator approval is required to complete it.",
				notifmodels.CategoryContract); err != nil {
				return err
			}
		}
		signed = contract
		return nil
	})
	if err != nil {
		return nil, err
	}

	if newlySigned {
		s.emit(ctx, events.Event{
			Action:    events.ActionContractSigned,
			ActorID:   callerID.String(),
			SubjectID: contractID.String(),
		})
		if s.metrics != nil {
			s.metrics.SignaturesRecorded.Inc()
		}
	}
	if becameFullySigned {
		s.emit(ctx, events.Event{
			Action:    events.ActionContractReady,
			SubjectID: contractID.String(),
		})
	}
	return signed, nil
}

// Approve ratifies a fully signed contract. The both-signatures guard is
// enforced here, server-side, regardless of what the client claims.
func (s *Service) Approve(ctx context.Context, adminID id.IdentityID, contractID id.ContractID) (*models.Contract, error) {
	ctx, span := tracer.Start(ctx, "contract.Approve")
	defer span.End()
	span.SetAttributes(attribute.String("contract.id", contractID.String()))

	if err := s.requireAdministrator(ctx, adminID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var approved *models.Contract
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		contract, err := s.contracts.Execute(txCtx, contractID,
			func(c *models.Contract) error {
				return c.CanApprove()
			},
			func(c *models.Contract) {
				c.ApplyApproval(adminID, now)
			},
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "contract not found")
			}
			return err
		}

		const title = "Housing agreement completed"
		const content = "Your housing agreement has been ratified by an administrator."
		if err := s.notifier.Notify(txCtx, contract.SeekerID, title, content, notifmodels.CategoryContract); err != nil {
			return err
		}
		if err := s.notifier.Notify(txCtx, contract.HostID, title, content, notifmodels.CategoryContract); err != nil {
			return err
		}
		approved = contract
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.Event{
		Action:    events.ActionContractCompleted,
		ActorID:   adminID.String(),
		SubjectID: contractID.String(),
	})
	if s.metrics != nil {
		s.metrics.ContractsCompleted.Inc()
		s.metrics.ObserveRatificationDelay(approved.BothSignedAt(), now)
	}
	s.logger.InfoContext(ctx, "contract ratified",
		"event", string(events.ActionContractCompleted),
		"contract_id", contractID,
		"admin_id", adminID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return approved, nil
}

// Cancel abandons a contract before completion. Either named party or an
// administrator may cancel; completed contracts are final.
func (s *Service) Cancel(ctx context.Context, callerID id.IdentityID, contractID id.ContractID) (*models.Contract, error) {
	caller, err := s.loadIdentity(ctx, callerID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var cancelled *models.Contract
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		contract, err := s.contracts.Execute(txCtx, contractID,
			func(c *models.Contract) error {
				if !c.IsParty(callerID) && !caller.IsAdministrator() {
					return dErrors.New(dErrors.CodeForbidden, "only named parties or an administrator may cancel")
				}
				return c.CanCancel()
			},
			func(c *models.Contract) {
				c.ApplyCancellation(now)
			},
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "contract not found")
			}
			return err
		}

		const title = "Housing agreement cancelled"
		const content = "The housing agreement proposal has been cancelled."
		if err := s.notifier.Notify(txCtx, contract.SeekerID, title, content, notifmodels.CategoryContract); err != nil {
			return err
		}
		if err := s.notifier.Notify(txCtx, contract.HostID, title, content, notifmodels.CategoryContract); err != nil {
			return err
		}
		cancelled = contract
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.Event{
		Action:    events.ActionContractCancelled,
		ActorID:   callerID.String(),
		SubjectID: contractID.String(),
	})
	if s.metrics != nil {
		s.metrics.ContractsCancelled.Inc()
	}
	return cancelled, nil
}

// Get returns a contract to a named party or an administrator.
func (s *Service) Get(ctx context.Context, callerID id.IdentityID, contractID id.ContractID) (*models.Contract, error) {
	caller, err := s.loadIdentity(ctx, callerID)
	if err != nil {
		return nil, err
	}
	contract, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "contract not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contract")
	}
	if !contract.IsParty(callerID) && !caller.IsAdministrator() {
		return nil, dErrors.New(dErrors.CodeForbidden, "contract belongs to other identities")
	}
	return contract, nil
}

// ListForIdentity returns the caller's own contracts, newest first.
func (s *Service) ListForIdentity(ctx context.Context, callerID id.IdentityID) ([]*models.Contract, error) {
	contracts, err := s.contracts.ListByParticipant(ctx, callerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list contracts")
	}
	return contracts, nil
}

// ListAwaitingRatification returns the administrator ratification queue.
func (s *Service) ListAwaitingRatification(ctx context.Context, adminID id.IdentityID) ([]*models.Contract, error) {
	if err := s.requireAdministrator(ctx, adminID); err != nil {
		return nil, err
	}
	contracts, err := s.contracts.ListAwaitingRatification(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list contracts awaiting ratification")
	}
	return contracts, nil
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
