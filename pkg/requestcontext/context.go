// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services consume them. Keeping the package
// free of net/http lets services avoid pulling in transport code.
//
// Usage in services (read values):
//
//	identityID := requestcontext.IdentityID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "havenlink/pkg/domain"
)

type (
	identityIDKey  struct{}
	roleKey        struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyIdentityID  = identityIDKey{}
	ContextKeyRole        = roleKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// IdentityID retrieves the authenticated identity ID from the context.
// Returns the zero value (nil UUID) if not set.
func IdentityID(ctx context.Context) id.IdentityID {
	if v, ok := ctx.Value(ContextKeyIdentityID).(id.IdentityID); ok {
		return v
	}
	return id.IdentityID{}
}

// WithIdentityID injects an identity ID into the context.
func WithIdentityID(ctx context.Context, identityID id.IdentityID) context.Context {
	return context.WithValue(ctx, ContextKeyIdentityID, identityID)
}

// Role retrieves the authenticated caller's role from the context.
func Role(ctx context.Context) id.Role {
	if v, ok := ctx.Value(ContextKeyRole).(id.Role); ok {
		return v
	}
	return ""
}

// WithRole injects the caller's role into the context.
func WithRole(ctx context.Context, role id.Role) context.Context {
	return context.WithValue(ctx, ContextKeyRole, role)
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects a request correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from the context, falling back to
// time.Now for non-HTTP contexts (workers, CLI, tests without injection).
// A single request-scoped time keeps every timestamp written by one
// operation consistent.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into the context. Useful for service
// unit tests that don't run the middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
