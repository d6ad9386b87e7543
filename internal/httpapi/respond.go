package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/pauljones0/bizdir/internal/apperr"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

// writeError renders err as {"error": ..., "fields": ...} with the status apperr assigns it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	resp := errorResponse{Error: apperr.UserMessage(err)}
	if ve, ok := apperr.AsValidation(err); ok {
		resp.Fields = ve.Fields
	}
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "request_id", requestIDFrom(r.Context()), "error", err)
	}
	writeJSON(w, status, resp)
}

func writeStatusError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON reads a JSON request body into v. An empty body leaves v unchanged.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Invalid("body", "must be a valid JSON object")
	}
	return nil
}
