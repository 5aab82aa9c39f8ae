// Package handler exposes the messaging channel over HTTP, including a
// server-sent events stream for live push.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"havenlink/internal/messaging/models"
	"havenlink/internal/pubsub"
	"havenlink/internal/transport/http/shared"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/requestcontext"
)

// Service defines the messaging operations the handler exposes.
type Service interface {
	Send(ctx context.Context, senderID, recipientID id.IdentityID, content string) (*models.Message, error)
	Conversation(ctx context.Context, callerID, counterpartID id.IdentityID) ([]*models.Message, error)
	Conversations(ctx context.Context, callerID id.IdentityID) ([]*models.ConversationSummary, error)
	MarkDelivered(ctx context.Context, callerID id.IdentityID, messageID id.MessageID) (*models.Message, error)
	MarkRead(ctx context.Context, callerID id.IdentityID, messageID id.MessageID) (*models.Message, error)
}

// Handler handles messaging endpoints.
type Handler struct {
	messaging Service
	broker    pubsub.Broker
	logger    *slog.Logger
}

func New(messaging Service, broker pubsub.Broker, logger *slog.Logger) *Handler {
	return &Handler{messaging: messaging, broker: broker, logger: logger}
}

// Register registers the messaging routes. All routes assume an
// authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/messages", h.handleSend)
	r.Get("/messages/conversations", h.handleConversations)
	r.Get("/messages/with/{identityID}", h.handleConversation)
	r.Post("/messages/{messageID}/delivered", h.handleMarkDelivered)
	r.Post("/messages/{messageID}/read", h.handleMarkRead)
	r.Get("/messages/events", h.handleEvents)
}

type sendRequest struct {
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sendRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	recipientID, err := id.ParseIdentityID(req.RecipientID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	msg, err := h.messaging.Send(ctx, requestcontext.IdentityID(ctx), recipientID, req.Content)
	if err != nil {
		h.warn(ctx, "message send failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, msg)
}

func (h *Handler) handleConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summaries, err := h.messaging.Conversations(ctx, requestcontext.IdentityID(ctx))
	if err != nil {
		h.warn(ctx, "conversation listing failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counterpartID, err := id.ParseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	msgs, err := h.messaging.Conversation(ctx, requestcontext.IdentityID(ctx), counterpartID)
	if err != nil {
		h.warn(ctx, "conversation fetch failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, msgs)
}

func (h *Handler) handleMarkDelivered(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, h.messaging.MarkDelivered, "delivery update failed")
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, h.messaging.MarkRead, "read update failed")
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request,
	op func(context.Context, id.IdentityID, id.MessageID) (*models.Message, error),
	failMsg string) {

	ctx := r.Context()
	messageID, err := id.ParseMessageID(chi.URLParam(r, "messageID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	msg, err := op(ctx, requestcontext.IdentityID(ctx), messageID)
	if err != nil {
		h.warn(ctx, failMsg, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, msg)
}

// handleEvents streams the caller's live-push events as server-sent
// events until the client disconnects.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming not supported"))
		return
	}
	if h.broker == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "live push is not configured"))
		return
	}

	callerID := requestcontext.IdentityID(ctx)
	events, cancel, err := h.broker.Subscribe(ctx, pubsub.Topic(callerID))
	if err != nil {
		h.warn(ctx, "live push subscription failed", err)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to subscribe"))
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.ErrorContext(ctx, "failed to encode live-push event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data)
			flusher.Flush()
		}
	}
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
