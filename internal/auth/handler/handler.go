// Package handler exposes registration and login over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"havenlink/internal/auth/service"
	identitymodels "havenlink/internal/identity/models"
	"havenlink/internal/transport/http/shared"
	id "havenlink/pkg/domain"
	dErrors "havenlink/pkg/domain-errors"
	"havenlink/pkg/requestcontext"
)

// Service defines the onboarding operations the handler exposes.
type Service interface {
	Register(ctx context.Context, req service.RegisterRequest) (*identitymodels.Identity, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
}

// Handler handles authentication endpoints.
type Handler struct {
	auth   Service
	logger *slog.Logger
}

func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// Register registers the public authentication routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
}

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

type identityResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	Role          string `json:"role"`
	ProfileStatus string `json:"profile_status"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	role, err := id.ParseRole(req.Role)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	identity, err := h.auth.Register(ctx, service.RegisterRequest{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Role:        role,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, toIdentityResponse(identity))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int64            `json:"expires_in"`
	Identity    identityResponse `json:"identity"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "email and password are required"))
		return
	}

	result, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(result.ExpiresIn / time.Second),
		Identity:    toIdentityResponse(result.Identity),
	})
}

func toIdentityResponse(identity *identitymodels.Identity) identityResponse {
	return identityResponse{
		ID:            identity.ID.String(),
		Email:         identity.Email,
		DisplayName:   identity.DisplayName,
		Role:          string(identity.Role),
		ProfileStatus: string(identity.ProfileStatus),
	}
}
