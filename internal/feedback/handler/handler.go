// Package handler exposes feedback submission and triage over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"havenlink/internal/feedback/models"
	"havenlink/internal/transport/http/shared"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/requestcontext"
)

// Service defines the feedback operations the handler exposes.
type Service interface {
	Submit(ctx context.Context, authorID id.IdentityID, subject, content string) (*models.Feedback, error)
	Respond(ctx context.Context, adminID id.IdentityID, feedbackID id.FeedbackID, response string, target models.Status) (*models.Feedback, error)
	ListForAuthor(ctx context.Context, authorID id.IdentityID) ([]*models.Feedback, error)
	ListAll(ctx context.Context, adminID id.IdentityID) ([]*models.Feedback, error)
}

// Handler handles feedback endpoints.
type Handler struct {
	feedback Service
	logger   *slog.Logger
}

func New(feedback Service, logger *slog.Logger) *Handler {
	return &Handler{feedback: feedback, logger: logger}
}

// Register registers the feedback routes. All routes assume an
// authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/feedback", h.handleSubmit)
	r.Get("/feedback", h.handleListMine)
	r.Get("/admin/feedback", h.handleListAll)
	r.Post("/admin/feedback/{feedbackID}/respond", h.handleRespond)
}

type submitRequest struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	item, err := h.feedback.Submit(ctx, requestcontext.IdentityID(ctx), req.Subject, req.Content)
	if err != nil {
		h.warn(ctx, "feedback submission failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.feedback.ListForAuthor(ctx, requestcontext.IdentityID(ctx))
	if err != nil {
		h.warn(ctx, "feedback listing failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.feedback.ListAll(ctx, requestcontext.IdentityID(ctx))
	if err != nil {
		h.warn(ctx, "feedback queue listing failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, items)
}

type respondRequest struct {
	Response string `json:"response"`
	Status   string `json:"status"`
}

func (h *Handler) handleRespond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	feedbackID, err := id.ParseFeedbackID(chi.URLParam(r, "feedbackID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req respondRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	item, err := h.feedback.Respond(ctx, requestcontext.IdentityID(ctx), feedbackID, req.Response, status)
	if err != nil {
		h.warn(ctx, "feedback response failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, item)
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
