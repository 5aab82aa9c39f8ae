// Package handler exposes the discovery listings over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"havenlink/internal/discovery/service"
	profilemodels "havenlink/internal/profile/models"
	"havenlink/internal/transport/http/shared"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/requestcontext"
)

// Service defines the discovery operations the handler exposes.
type Service interface {
	ListAvailableHosts(ctx context.Context, requesterID id.IdentityID, filter service.HostFilter) ([]*service.HostListing, error)
	ListAvailableSeekers(ctx context.Context, requesterID id.IdentityID, filter service.SeekerFilter) ([]*service.SeekerListing, error)
}

// Handler handles discovery endpoints.
type Handler struct {
	discovery Service
	logger    *slog.Logger
}

func New(discovery Service, logger *slog.Logger) *Handler {
	return &Handler{discovery: discovery, logger: logger}
}

// Register registers the discovery routes. All routes assume an
// authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Get("/discovery/hosts", h.handleListHosts)
	r.Get("/discovery/seekers", h.handleListSeekers)
}

func (h *Handler) handleListHosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := service.HostFilter{
		Location: r.URL.Query().Get("location"),
	}
	if at := r.URL.Query().Get("accommodation_type"); at != "" {
		parsed, err := profilemodels.ParseAccommodationType(at)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		filter.AccommodationType = parsed
	}
	if mc := r.URL.Query().Get("min_capacity"); mc != "" {
		capacity, err := strconv.Atoi(mc)
		if err != nil || capacity < 1 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "min_capacity must be a positive integer"))
			return
		}
		filter.MinCapacity = capacity
	}

	listings, err := h.discovery.ListAvailableHosts(ctx, requestcontext.IdentityID(ctx), filter)
	if err != nil {
		h.warn(ctx, "host discovery failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, listings)
}

func (h *Handler) handleListSeekers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := service.SeekerFilter{
		DesiredLocation: r.URL.Query().Get("desired_location"),
	}
	listings, err := h.discovery.ListAvailableSeekers(ctx, requestcontext.IdentityID(ctx), filter)
	if err != nil {
		h.warn(ctx, "seeker discovery failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, listings)
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
