// Package httptransport assembles the HTTP surface: public auth routes,
// the authenticated API, and operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"havenlink/internal/platform/middleware"
	"havenlink/internal/transport/http/shared"
)

// Registrar is implemented by every module handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports readiness of a backing dependency.
type HealthChecker func(ctx context.Context) error

// Config carries everything the router needs.
type Config struct {
	Logger         *slog.Logger
	TokenValidator middleware.TokenValidator
	RequestTimeout time.Duration

	// Public handlers are reachable without a token.
	Public []Registrar
	// Protected handlers sit behind bearer-token authentication.
	Protected []Registrar

	// Health checks run on /healthz; a nil map means always healthy.
	Health map[string]HealthChecker
}

// NewRouter wires the middleware chain and mounts every handler.
func NewRouter(cfg Config) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", healthHandler(cfg.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(public chi.Router) {
		public.Use(middleware.ContentTypeJSON)
		for _, h := range cfg.Public {
			h.Register(public)
		}
	})

	r.Group(func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)
		api.Use(middleware.RequireAuth(cfg.TokenValidator, cfg.Logger))
		for _, h := range cfg.Protected {
			h.Register(api)
		}
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		shared.WriteJSON(w, status, resp)
	}
}
