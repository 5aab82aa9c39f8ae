// Package handler exposes the contract workflow over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"havenlink/internal/contract/models"
	"havenlink/internal/contract/service"
	"havenlink/internal/transport/http/shared"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/requestcontext"
)

// Service defines the contract operations the handler exposes.
type Service interface {
	Propose(ctx context.Context, proposerID id.IdentityID, req service.ProposalRequest) (*models.Contract, error)
	Sign(ctx context.Context, callerID id.IdentityID, contractID id.ContractID) (*models.Contract, error)
	Approve(ctx context.Context, adminID id.IdentityID, contractID id.ContractID) (*models.Contract, error)
	Cancel(ctx context.Context, callerID id.IdentityID, contractID id.ContractID) (*models.Contract, error)
	Get(ctx context.Context, callerID id.IdentityID, contractID id.ContractID) (*models.Contract, error)
	ListForIdentity(ctx context.Context, callerID id.IdentityID) ([]*models.Contract, error)
	ListAwaitingRatification(ctx context.Context, adminID id.IdentityID) ([]*models.Contract, error)
}

// Handler handles contract endpoints.
type Handler struct {
	contracts Service
	logger    *slog.Logger
}

func New(contracts Service, logger *slog.Logger) *Handler {
	return &Handler{contracts: contracts, logger: logger}
}

// Register registers the contract routes. All routes assume an
// authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/contracts", h.handlePropose)
	r.Get("/contracts", h.handleList)
	r.Get("/contracts/{contractID}", h.handleGet)
	r.Post("/contracts/{contractID}/sign", h.handleSign)
	r.Post("/contracts/{contractID}/cancel", h.handleCancel)
	r.Get("/admin/contracts/pending", h.handleListAwaiting)
	r.Post("/admin/contracts/{contractID}/approve", h.handleApprove)
}

type proposalRequest struct {
	CounterpartID string    `json:"counterpart_id"`
	Terms         string    `json:"terms"`
	Duration      string    `json:"duration"`
	StartDate     time.Time `json:"start_date"`
}

func (h *Handler) handlePropose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req proposalRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	counterpartID, err := id.ParseIdentityID(req.CounterpartID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	duration, err := models.ParseDuration(req.Duration)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	contract, err := h.contracts.Propose(ctx, requestcontext.IdentityID(ctx), service.ProposalRequest{
		CounterpartID: counterpartID,
		Terms:         req.Terms,
		Duration:      duration,
		StartDate:     req.StartDate,
	})
	if err != nil {
		h.warn(ctx, "contract proposal failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, contract)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contracts, err := h.contracts.ListForIdentity(ctx, requestcontext.IdentityID(ctx))
	if err != nil {
		h.warn(ctx, "contract listing failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, contracts)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.contracts.Get, "contract fetch failed", http.StatusOK)
}

func (h *Handler) handleSign(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.contracts.Sign, "contract signing failed", http.StatusOK)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.contracts.Cancel, "contract cancellation failed", http.StatusOK)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.contracts.Approve, "contract ratification failed", http.StatusOK)
}

func (h *Handler) handleListAwaiting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contracts, err := h.contracts.ListAwaitingRatification(ctx, requestcontext.IdentityID(ctx))
	if err != nil {
		h.warn(ctx, "ratification queue listing failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, contracts)
}

// act runs one of the (caller, contract) -> contract operations.
func (h *Handler) act(w http.ResponseWriter, r *http.Request,
	op func(context.Context, id.IdentityID, id.ContractID) (*models.Contract, error),
	failMsg string, status int) {

	ctx := r.Context()
	contractID, err := id.ParseContractID(chi.URLParam(r, "contractID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	contract, err := op(ctx, requestcontext.IdentityID(ctx), contractID)
	if err != nil {
		h.warn(ctx, failMsg, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, status, contract)
}

func (h *Handler) warn(ctx context.Context, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
}
