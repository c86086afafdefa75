package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
)

type noteResponse struct {
	Note string `json:"note"`
}

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeRaw writes an already encoded JSON body
func writeRaw(w http.ResponseWriter, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// writeNote writes a {"note": ...} response
func writeNote(w http.ResponseWriter, status int, note string) {
	writeJSON(w, status, noteResponse{Note: note})
}

// handleServiceError maps core errors to a note and status
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeNote(w, http.StatusNotFound, domain.Note(err))

	case domain.IsUnavailable(err):
		writeNote(w, http.StatusForbidden, domain.Note(err))

	case errors.Is(err, domain.ErrExhausted),
		errors.Is(err, domain.ErrNoAccounts):
		writeNote(w, http.StatusServiceUnavailable, domain.Note(err))

	case errors.Is(err, context.DeadlineExceeded):
		writeNote(w, http.StatusGatewayTimeout, "upstream request timed out")

	case errors.Is(err, context.Canceled):
		// client went away; nobody reads the response
		slog.DebugContext(r.Context(), "request cancelled", "path", r.URL.Path)

	default:
		slog.ErrorContext(r.Context(), "unexpected error", "path", r.URL.Path, "error", err)
		writeNote(w, http.StatusBadGateway, domain.Note(err))
	}
}
