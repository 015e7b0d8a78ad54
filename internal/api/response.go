package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/odvoz/internal/pickup"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// jsonFieldError writes a 400 response naming the offending field.
func jsonFieldError(w http.ResponseWriter, field, message string) {
	jsonResponse(w, http.StatusBadRequest, map[string]string{"error": message, "field": field})
}

// serviceError maps a lifecycle error to its HTTP response. Unexpected
// errors are logged and reported as a generic failure.
func serviceError(w http.ResponseWriter, err error, action string) {
	var ve *pickup.ValidationError
	var fe *pickup.ForbiddenError

	switch {
	case errors.As(err, &ve):
		jsonFieldError(w, ve.Field, ve.Error())
	case errors.As(err, &fe):
		jsonError(w, http.StatusForbidden, fe.Reason)
	case errors.Is(err, pickup.ErrNotFound):
		jsonError(w, http.StatusNotFound, "request not found")
	default:
		slog.Error("failed to "+action, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
