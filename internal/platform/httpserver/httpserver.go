package httpserver

import (
	"net/http"
	"time"
)

// New builds the platform HTTP server. WriteTimeout stays at zero: the
// live-event stream holds its response open for the life of the session,
// and per-request deadlines are enforced by middleware instead.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
