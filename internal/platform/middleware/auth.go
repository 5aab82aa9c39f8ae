package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "havenlink/pkg/domain"
	"havenlink/pkg/requestcontext"
)

// TokenValidator validates an access token and returns the authenticated
// claims. Implemented by internal/jwttoken.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenClaims carries the authenticated caller identity extracted from a
// validated token.
type TokenClaims struct {
	IdentityID id.IdentityID
	Role       id.Role
}

// RequireAuth validates the bearer token and injects the caller's identity
// ID and role into the request context. Role and status authorization is
// enforced by the services, not here; this middleware only answers "who is
// calling".
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w)
				return
			}

			ctx = requestcontext.WithIdentityID(ctx, claims.IdentityID)
			ctx = requestcontext.WithRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
