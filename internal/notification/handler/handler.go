// Package handler exposes the notification outbox over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"havenlink/internal/notification/models"
	"havenlink/internal/transport/http/shared"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/requestcontext"
)

// Service defines the outbox operations the handler exposes.
type Service interface {
	List(ctx context.Context, recipientID id.IdentityID) ([]*models.Notification, error)
	UnreadCount(ctx context.Context, recipientID id.IdentityID) (int, error)
	MarkRead(ctx context.Context, callerID id.IdentityID, notificationID id.NotificationID) (*models.Notification, error)
}

// Handler handles notification endpoints.
type Handler struct {
	notifications Service
	logger        *slog.Logger
}

func New(notifications Service, logger *slog.Logger) *Handler {
	return &Handler{notifications: notifications, logger: logger}
}

// Register registers the notification routes. All routes assume an
// authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Get("/notifications/unread-count", h.handleUnreadCount)
	r.Post("/notifications/{notificationID}/read", h.handleMarkRead)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	notifications, err := h.notifications.List(ctx, requestcontext.IdentityID(ctx))
	if err != nil {
		h.warn(ctx, "notification listing failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, notifications)
}

type unreadCountResponse struct {
	Unread int `json:"unread"`
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.notifications.UnreadCount(ctx, requestcontext.IdentityID(ctx))
	if err != nil {
		h.warn(ctx, "unread count failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, unreadCountResponse{Unread: count})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "notificationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	notification, err := h.notifications.MarkRead(ctx, requestcontext.IdentityID(ctx), notificationID)
	if err != nil {
		h.warn(ctx, "mark read failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, notification)
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
