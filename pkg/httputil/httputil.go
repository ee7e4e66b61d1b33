// Package httputil centralizes JSON response rendering so every handler emits
// the same envelopes.
package httputil

import (
	"encoding/json"
	"net/http"

	derrors "promptschola/pkg/domainerrors"
)

// WriteJSON renders v with the given status. Encoding failures are ignored at
// this point; the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the JSON error envelope: {"error": code,
// "error_description": message}. Description is omitted for internal errors so
// store and provider details never leak to clients.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Details          any    `json:"details,omitempty"`
}

// WriteError translates a domain error into the JSON error envelope.
func WriteError(w http.ResponseWriter, err error) {
	code := derrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}
	if code != derrors.CodeInternal && code != derrors.CodeConfig {
		resp.ErrorDescription = derrors.MessageOf(err)
	}
	WriteJSON(w, derrors.ToHTTPStatus(code), resp)
}

// WriteErrorDetails renders a typed error together with structured details,
// e.g. the full list of violated validation rules.
func WriteErrorDetails(w http.ResponseWriter, err error, details any) {
	code := derrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code), Details: details}
	if code != derrors.CodeInternal && code != derrors.CodeConfig {
		resp.ErrorDescription = derrors.MessageOf(err)
	}
	WriteJSON(w, derrors.ToHTTPStatus(code), resp)
}
