package billing

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"promptschola/internal/platform/middleware"
	derrors "promptschola/pkg/domainerrors"
	"promptschola/pkg/httputil"
)

// SignatureHeader carries the webhook payload signature.
const SignatureHeader = "Billing-Signature"

// maxWebhookBody bounds how much of a webhook payload we will read.
const maxWebhookBody = 1 << 20

// Handler exposes the billing HTTP surface.
type Handler struct {
	service  *Service
	verifier *SignatureVerifier
	logger   *slog.Logger
}

// NewHandler constructs the billing handler.
func NewHandler(service *Service, verifier *SignatureVerifier, logger *slog.Logger) *Handler {
	return &Handler{service: service, verifier: verifier, logger: logger}
}

// RegisterWebhook mounts the unauthenticated webhook route. Signature
// verification stands in for bearer auth here.
func (h *Handler) RegisterWebhook(r chi.Router) {
	r.Post("/api/billing/webhook", h.handleWebhook)
}

// RegisterAuthenticated mounts the routes that require a signed-in user.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/api/billing/checkout", h.handleCheckout)
	r.Post("/api/billing/portal", h.handlePortal)
}

// handleWebhook verifies and applies a provider event. An unverified payload
// is never processed, not even partially.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "unreadable webhook payload"))
		return
	}

	sig := r.Header.Get(SignatureHeader)
	if sig == "" {
		httputil.WriteError(w, derrors.Newf(derrors.CodeBadRequest, "missing %s header", SignatureHeader))
		return
	}
	if err := h.verifier.Verify(payload, sig); err != nil {
		h.logger.WarnContext(ctx, "webhook signature verification failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "webhook signature verification failed"))
		return
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "malformed webhook payload"))
		return
	}

	if err := h.service.HandleEvent(ctx, event); err != nil {
		h.logger.ErrorContext(ctx, "webhook handling failed",
			"error", err,
			"event_id", event.ID,
			"event_type", event.Type,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident, ok := middleware.GetIdentity(ctx)
	if !ok {
		httputil.WriteError(w, derrors.New(derrors.CodeAuthRequired, "Sign in required"))
		return
	}

	url, err := h.service.CreateCheckout(ctx, ident.UserID, ident.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "checkout session creation failed",
			"error", err, "user_id", ident.UserID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) handlePortal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident, ok := middleware.GetIdentity(ctx)
	if !ok {
		httputil.WriteError(w, derrors.New(derrors.CodeAuthRequired, "Sign in required"))
		return
	}

	url, err := h.service.CreatePortal(ctx, ident.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "portal session creation failed",
			"error", err, "user_id", ident.UserID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}
