// Package httpapi wires the public HTTP surface. Handlers stay thin and
// delegate to domain services; transport concerns live here.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"promptschola/internal/analytics"
	"promptschola/internal/billing"
	"promptschola/internal/platform/middleware"
	"promptschola/internal/tutor"
	"promptschola/pkg/httputil"
)

// Deps are the constructed handlers and shared middleware inputs.
type Deps struct {
	Verifier  middleware.TokenVerifier
	Tutor     *tutor.Handler
	Billing   *billing.Handler
	Analytics *analytics.Handler
	Logger    *slog.Logger
}

// NewRouter assembles the full route table.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Webhooks authenticate via payload signature, not bearer tokens.
	deps.Billing.RegisterWebhook(r)

	// Event logging accepts anonymous visitors; a valid token attaches the
	// user reference when present.
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(deps.Verifier, deps.Logger))
		deps.Analytics.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Verifier, deps.Logger))
		deps.Tutor.Register(r)
		deps.Billing.RegisterAuthenticated(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
