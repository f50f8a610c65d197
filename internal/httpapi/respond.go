// internal/httpapi/respond.go
package httpapi

import (
	"encoding/json"
	"net/http"

	apperrors "cites-permits/internal/common/errors"
	"cites-permits/internal/validation"
)

// envelope is the uniform response shape.
type envelope struct {
	Success bool                    `json:"success"`
	Data    interface{}             `json:"data,omitempty"`
	Message string                  `json:"message,omitempty"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeValidationErrors(w http.ResponseWriter, errs []validation.FieldError) {
	writeJSON(w, http.StatusBadRequest, envelope{
		Success: false,
		Message: "validation failed",
		Errors:  errs,
	})
}

// writeError maps domain error codes onto HTTP statuses. Anything
// unrecognized is a generic 500 so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	if stdErr, ok := err.(*apperrors.StandardError); ok {
		message = stdErr.Message
		switch stdErr.Code {
		case apperrors.ErrCodeValidationFailed, apperrors.ErrCodeInvalidStatus:
			status = http.StatusBadRequest
		case apperrors.ErrCodeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeConflict, apperrors.ErrCodeDuplicateApplication:
			status = http.StatusConflict
		default:
			status = http.StatusInternalServerError
			message = "internal server error"
		}
	}

	writeJSON(w, status, envelope{Success: false, Message: message})
}
