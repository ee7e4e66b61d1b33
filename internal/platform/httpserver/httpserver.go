package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with timeouts suited to this service. Write and
// idle timeouts stay generous because run-step requests wait on the language
// model, which can take tens of seconds.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
