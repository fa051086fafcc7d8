package registry

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/figuredex/figuredex/pkg/auth"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteDomainError maps the engine's error taxonomy to HTTP status codes.
// Conflicts are reported retryable; everything unclassified is a 500.
func WriteDomainError(w http.ResponseWriter, err error) {
	var validation *ValidationError
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		WriteError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, ErrNotFound):
		WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrAlreadyResolved):
		WriteError(w, http.StatusConflict, "request already resolved")
	case errors.Is(err, ErrConflict):
		WriteJSON(w, http.StatusConflict, map[string]any{
			"error":     "store conflict",
			"retryable": true,
		})
	case errors.As(err, &validation):
		WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error": validation.Error(),
			"field": validation.Field,
		})
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
