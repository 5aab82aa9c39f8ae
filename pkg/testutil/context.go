package testutil

import (
	"net/http"
	"time"

	id "havenlink/pkg/domain"
	"havenlink/pkg/requestcontext"
)

// WithIdentity stamps the request context the way the auth middleware
// would for an authenticated caller.
func WithIdentity(req *http.Request, identityID id.IdentityID, role id.Role) *http.Request {
	ctx := requestcontext.WithIdentityID(req.Context(), identityID)
	ctx = requestcontext.WithRole(ctx, role)
	return req.WithContext(ctx)
}

// WithRequestTime pins the request-scoped clock, keeping timestamps in
// handler tests deterministic.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
