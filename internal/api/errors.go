package api

import (
	"encoding/json"
	"net/http"
)

// StatusPolicyNotFulfilled is returned when a device request violates
// the OTA protocol: identity headers missing, or the MAC address in
// the URL disagreeing with the one in the headers.
const StatusPolicyNotFulfilled = 420

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError carries per-field messages for rejected admin forms.
type ValidationError struct {
	Status int               `json:"status"`
	Code   string            `json:"code"`
	Errors map[string]string `json:"errors"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodePolicy       = "policy_not_fulfilled"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writePolicyNotFulfilled writes a 420 error response.
func writePolicyNotFulfilled(w http.ResponseWriter, message string) {
	writeError(w, StatusPolicyNotFulfilled, ErrCodePolicy, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeUnprocessable writes a 422 error response.
func writeUnprocessable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, message)
}

// writeValidationErrors writes a 422 response carrying the per-field
// messages from a repository Validate call.
func writeValidationErrors(w http.ResponseWriter, msgs map[string]string) {
	writeJSON(w, http.StatusUnprocessableEntity, ValidationError{
		Status: http.StatusUnprocessableEntity,
		Code:   ErrCodeValidation,
		Errors: msgs,
	})
}
