package tutor

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"promptschola/internal/analytics"
	"promptschola/internal/entitlement"
	"promptschola/internal/platform/middleware"
	derrors "promptschola/pkg/domainerrors"
	"promptschola/pkg/httputil"
)

// Handler exposes the tutoring HTTP surface. All routes here sit behind
// RequireAuth; identity is read from the request context.
type Handler struct {
	service   *Service
	analytics *analytics.Service
	logger    *slog.Logger
}

// NewHandler constructs the tutor handler.
func NewHandler(service *Service, analyticsService *analytics.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, analytics: analyticsService, logger: logger}
}

// Register mounts the authenticated tutoring routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/run-step", h.handleRunStep)
	r.Get("/api/tier", h.handleTier)
	r.Post("/api/sign-out", h.handleSignOut)
}

type runStepRequest struct {
	Prompt string `json:"prompt"`
	Step   int    `json:"step"`
	Mode   string `json:"mode,omitempty"`
	Slug   string `json:"nano_slug,omitempty"`
}

type runStepResponse struct {
	Content  string   `json:"content"`
	Step     int      `json:"step"`
	Tier     string   `json:"tier"`
	IsPaid   bool     `json:"is_paid"`
	Warnings []string `json:"warnings,omitempty"`
}

// paywallResponse is deliberately not an error envelope: the request was
// well-formed, access is simply insufficient.
type paywallResponse struct {
	Error    string `json:"error"`
	Required string `json:"required"`
	Current  string `json:"current"`
	Step     int    `json:"step"`
}

func (h *Handler) handleRunStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident, ok := middleware.GetIdentity(ctx)
	if !ok {
		httputil.WriteError(w, derrors.New(derrors.CodeAuthRequired, "Sign in required"))
		return
	}

	var req runStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "malformed JSON body"))
		return
	}

	result, err := h.service.RunStep(ctx, ident.UserID, RunStepInput{
		Prompt: req.Prompt,
		Step:   req.Step,
		Mode:   Mode(req.Mode),
	})
	if err != nil {
		h.writeRunStepError(w, err)
		return
	}

	// Best-effort usage event; never blocks the response.
	h.analytics.RecordRequest(r, analytics.Event{
		UserID:    ident.UserID,
		EventType: "run_step",
		NanoSlug:  req.Slug,
		Step:      &req.Step,
	})

	httputil.WriteJSON(w, http.StatusOK, runStepResponse{
		Content:  result.Content,
		Step:     result.Step,
		Tier:     string(result.Tier),
		IsPaid:   result.IsPaid,
		Warnings: result.Warnings,
	})
}

func (h *Handler) writeRunStepError(w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		httputil.WriteErrorDetails(w,
			derrors.New(derrors.CodeValidation, "prompt failed validation"),
			map[string]any{
				"errors":   validationErr.Verdict.Errors,
				"warnings": validationErr.Verdict.Warnings,
			})
		return
	}

	var paywallErr *PaywallError
	if errors.As(err, &paywallErr) {
		httputil.WriteJSON(w, http.StatusPaymentRequired, paywallResponse{
			Error:    "payment_required",
			Required: string(paywallErr.Decision.Required),
			Current:  string(paywallErr.Decision.Current),
			Step:     paywallErr.Decision.Step,
		})
		return
	}

	httputil.WriteError(w, err)
}

type tierResponse struct {
	Tier   string `json:"tier"`
	IsPaid bool   `json:"is_paid"`
}

func (h *Handler) handleTier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident, ok := middleware.GetIdentity(ctx)
	if !ok {
		httputil.WriteError(w, derrors.New(derrors.CodeAuthRequired, "Sign in required"))
		return
	}

	tier := h.service.Tier(ctx, ident.UserID)
	httputil.WriteJSON(w, http.StatusOK, tierResponse{
		Tier:   string(tier),
		IsPaid: tier == entitlement.TierPaid,
	})
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident, ok := middleware.GetIdentity(ctx)
	if !ok {
		httputil.WriteError(w, derrors.New(derrors.CodeAuthRequired, "Sign in required"))
		return
	}

	h.service.SignOut(ctx, ident.UserID)
	h.analytics.RecordRequest(r, analytics.Event{
		UserID:    ident.UserID,
		EventType: "sign_out",
		NanoSlug:  "-",
	})

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
