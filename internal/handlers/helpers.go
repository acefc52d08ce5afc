// -----------------------------------------------------------------------
// HTTP Helpers - Shared response writing for API handlers
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/probo/internal/models"
)

// RequireMethod validates the request method, writing a 405 on mismatch.
// Returns true when the method matches.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a standard success response.
func WriteSuccess(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": message,
	})
}

// WriteError writes a standard error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]interface{}{
		"status": "error",
		"error":  message,
	})
}

// WriteAppError maps a classified error onto its HTTP status. The
// underlying cause travels in the response only outside production.
func WriteAppError(w http.ResponseWriter, err error, production bool) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		if production {
			return WriteError(w, http.StatusInternalServerError, "internal error")
		}
		return WriteError(w, http.StatusInternalServerError, err.Error())
	}

	body := map[string]interface{}{
		"status": "error",
		"kind":   string(appErr.Kind),
		"error":  appErr.Message,
	}
	if !production {
		if cause := appErr.Unwrap(); cause != nil {
			body["detail"] = cause.Error()
		}
		if appErr.Raw != "" {
			body["raw"] = appErr.Raw
		}
	}
	return WriteJSON(w, models.HTTPStatus(appErr.Kind), body)
}
