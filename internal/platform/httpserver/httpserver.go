package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Source adapters post whole records in one
// request, so write timeouts stay well above the per-route handler timeout.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
