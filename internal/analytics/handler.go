package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"promptschola/internal/platform/middleware"
	derrors "promptschola/pkg/domainerrors"
	"promptschola/pkg/httputil"
)

// Handler exposes the event-logging endpoint. Authentication is optional:
// anonymous page events are recorded without a user reference.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the analytics handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the analytics routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/log-event", h.handleLogEvent)
}

type logEventRequest struct {
	EventType string `json:"event_type"`
	NanoSlug  string `json:"nano_slug"`
	Step      *int   `json:"step,omitempty"`
}

func (h *Handler) handleLogEvent(w http.ResponseWriter, r *http.Request) {
	var req logEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "malformed JSON body"))
		return
	}
	if req.EventType == "" || req.NanoSlug == "" {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "event_type and nano_slug are required"))
		return
	}

	event := Event{
		EventType: req.EventType,
		NanoSlug:  req.NanoSlug,
		Step:      req.Step,
	}
	if ident, ok := middleware.GetIdentity(r.Context()); ok {
		event.UserID = ident.UserID
	}

	// Best-effort recording; the endpoint acknowledges regardless.
	h.service.RecordRequest(r, event)

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
