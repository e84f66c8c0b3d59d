package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iota-uz/ledgerdesk/pkg/serrors"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// StatusMapper resolves the HTTP status for a coded error.
type StatusMapper map[string]int

// WriteServiceError renders err as an ErrorEnvelope. Validation errors become
// 400 with one meta entry per field; coded errors use statuses; anything
// else is a 500 with a generic message.
func WriteServiceError(w http.ResponseWriter, err error, statuses StatusMapper) error {
	var verrs serrors.ValidationErrors
	if errors.As(err, &verrs) {
		return WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "validation failed", verrs)
	}
	var base *serrors.BaseError
	if errors.As(err, &base) {
		status, ok := statuses[base.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		return WriteError(w, status, base.Code, err.Error(), nil)
	}
	return WriteError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error", nil)
}
