// Package handler exposes profile submission and administrator review
// over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	identitymodels "havenlink/internal/identity/models"
	"havenlink/internal/profile/models"
	"havenlink/internal/profile/service"
	"havenlink/internal/transport/http/shared"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/requestcontext"
)

// Service defines the profile operations the handler exposes.
type Service interface {
	SubmitSeekerProfile(ctx context.Context, callerID id.IdentityID, p *models.SeekerProfile) (*models.SeekerProfile, error)
	SubmitHostProfile(ctx context.Context, callerID id.IdentityID, p *models.HostProfile) (*models.HostProfile, error)
	UpdateSeekerProfile(ctx context.Context, callerID id.IdentityID, p *models.SeekerProfile) (*models.SeekerProfile, error)
	UpdateHostProfile(ctx context.Context, callerID id.IdentityID, p *models.HostProfile) (*models.HostProfile, error)
	ListPendingReviews(ctx context.Context, adminID id.IdentityID) ([]service.PendingReview, error)
	ReviewProfile(ctx context.Context, adminID, targetID id.IdentityID, decision identitymodels.ReviewDecision) (*identitymodels.Identity, error)
}

// Handler handles profile endpoints.
type Handler struct {
	profiles Service
	logger   *slog.Logger
}

func New(profiles Service, logger *slog.Logger) *Handler {
	return &Handler{profiles: profiles, logger: logger}
}

// Register registers the profile routes. All routes assume an
// authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/profiles/seeker", h.handleSubmitSeeker)
	r.Put("/profiles/seeker", h.handleUpdateSeeker)
	r.Post("/profiles/host", h.handleSubmitHost)
	r.Put("/profiles/host", h.handleUpdateHost)
	r.Get("/admin/profiles/pending", h.handleListPending)
	r.Post("/admin/profiles/{identityID}/review", h.handleReview)
}

type seekerProfileRequest struct {
	FamilySize          int    `json:"family_size"`
	HasChildren         bool   `json:"has_children"`
	HasPets             bool   `json:"has_pets"`
	CurrentLocation     string `json:"current_location"`
	DesiredLocation     string `json:"desired_location"`
	SpecialRequirements string `json:"special_requirements"`
}

func (r *seekerProfileRequest) toModel(identityID id.IdentityID) *models.SeekerProfile {
	return &models.SeekerProfile{
		IdentityID:          identityID,
		FamilySize:          r.FamilySize,
		HasChildren:         r.HasChildren,
		HasPets:             r.HasPets,
		CurrentLocation:     r.CurrentLocation,
		DesiredLocation:     r.DesiredLocation,
		SpecialRequirements: r.SpecialRequirements,
	}
}

type hostProfileRequest struct {
	Location          string    `json:"location"`
	AccommodationType string    `json:"accommodation_type"`
	Capacity          int       `json:"capacity"`
	Amenities         []string  `json:"amenities"`
	Languages         []string  `json:"languages"`
	AvailableFrom     time.Time `json:"available_from"`
	Description       string    `json:"description"`
}

func (r *hostProfileRequest) toModel(identityID id.IdentityID) *models.HostProfile {
	return &models.HostProfile{
		IdentityID:        identityID,
		Location:          r.Location,
		AccommodationType: models.AccommodationType(r.AccommodationType),
		Capacity:          r.Capacity,
		Amenities:         r.Amenities,
		Languages:         r.Languages,
		AvailableFrom:     r.AvailableFrom,
		Description:       r.Description,
	}
}

func (h *Handler) handleSubmitSeeker(w http.ResponseWriter, r *http.Request) {
	h.saveSeeker(w, r, h.profiles.SubmitSeekerProfile, http.StatusCreated)
}

func (h *Handler) handleUpdateSeeker(w http.ResponseWriter, r *http.Request) {
	h.saveSeeker(w, r, h.profiles.UpdateSeekerProfile, http.StatusOK)
}

func (h *Handler) saveSeeker(w http.ResponseWriter, r *http.Request,
	save func(context.Context, id.IdentityID, *models.SeekerProfile) (*models.SeekerProfile, error),
	status int) {

	ctx := r.Context()
	callerID := requestcontext.IdentityID(ctx)

	var req seekerProfileRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	profile, err := save(ctx, callerID, req.toModel(callerID))
	if err != nil {
		h.warn(ctx, "seeker profile save failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, status, profile)
}

func (h *Handler) handleSubmitHost(w http.ResponseWriter, r *http.Request) {
	h.saveHost(w, r, h.profiles.SubmitHostProfile, http.StatusCreated)
}

func (h *Handler) handleUpdateHost(w http.ResponseWriter, r *http.Request) {
	h.saveHost(w, r, h.profiles.UpdateHostProfile, http.StatusOK)
}

func (h *Handler) saveHost(w http.ResponseWriter, r *http.Request,
	save func(context.Context, id.IdentityID, *models.HostProfile) (*models.HostProfile, error),
	status int) {

	ctx := r.Context()
	callerID := requestcontext.IdentityID(ctx)

	var req hostProfileRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	profile, err := save(ctx, callerID, req.toModel(callerID))
	if err != nil {
		h.warn(ctx, "host profile save failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, status, profile)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pending, err := h.profiles.ListPendingReviews(ctx, requestcontext.IdentityID(ctx))
	if err != nil {
		h.warn(ctx, "pending review listing failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, pending)
}

type reviewRequest struct {
	Decision string `json:"decision"`
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	targetID, err := id.ParseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req reviewRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	decision, err := identitymodels.ParseReviewDecision(req.Decision)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	identity, err := h.profiles.ReviewProfile(ctx, requestcontext.IdentityID(ctx), targetID, decision)
	if err != nil {
		h.warn(ctx, "profile review failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, identity)
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
