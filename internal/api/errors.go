package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/showcall/showcall-core/internal/session"
	"github.com/showcall/showcall-core/internal/show"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Common error codes.
const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeNotFound          = "not_found"
	ErrCodeUnauthorized      = "unauthorised"
	ErrCodeForbidden         = "forbidden"
	ErrCodeConflict          = "conflict"
	ErrCodeInternal          = "internal_error"
	ErrCodeValidation        = "validation_error"
	ErrCodeDependenciesUnmet = "dependencies_unmet"
	ErrCodePersistence       = "persistence_error"
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

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps show and session domain errors onto HTTP responses.
//
// Illegal-command errors are conflicts: the request was well formed but not
// legal in the show's current state. Validation errors are 400s. Unmet
// dependencies get their own code plus the blocking cue IDs so the console
// can prompt the operator to fire or skip them.
func writeDomainError(w http.ResponseWriter, err error) {
	if ue, ok := show.IsUnmetDependencies(err); ok {
		writeJSON(w, http.StatusConflict, Error{
			Status:  http.StatusConflict,
			Code:    ErrCodeDependenciesUnmet,
			Message: ue.Error(),
			Details: map[string]any{
				"cue_id":        ue.CueID,
				"blocking_cues": ue.Unmet,
			},
		})
		return
	}

	switch {
	case errors.Is(err, show.ErrShowNotFound), errors.Is(err, show.ErrCueNotFound):
		writeNotFound(w, err.Error())

	case errors.Is(err, show.ErrShowExists),
		errors.Is(err, show.ErrInvalidShowState),
		errors.Is(err, show.ErrShowOnHold),
		errors.Is(err, show.ErrInvalidCueState):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())

	case errors.Is(err, show.ErrInvalidCue),
		errors.Is(err, show.ErrInvalidReorder),
		errors.Is(err, show.ErrCyclicDependency),
		errors.Is(err, show.ErrUnknownDependency):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())

	case errors.Is(err, show.ErrPersistence):
		// Retryable: the command did not apply.
		writeError(w, http.StatusServiceUnavailable, ErrCodePersistence, err.Error())

	case errors.Is(err, session.ErrSessionClosed):
		writeError(w, http.StatusServiceUnavailable, ErrCodeConflict, "show session closed, retry")

	default:
		writeInternalError(w, "internal server error")
	}
}
