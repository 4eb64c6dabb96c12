package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
)

type errorResponse struct {
	Error   domain.DenyReason `json:"error"`
	Message string            `json:"message"`
}

var reasonStatus = map[domain.DenyReason]int{
	domain.ReasonNotFound:           http.StatusNotFound,
	domain.ReasonInvalidInput:       http.StatusBadRequest,
	domain.ReasonUnauthorized:       http.StatusForbidden,
	domain.ReasonNotAuthorizedProxy: http.StatusForbidden,
	domain.ReasonUnsupportedMode:    http.StatusUnprocessableEntity,
	domain.ReasonExpired:            http.StatusGone,
	domain.ReasonPollNotActive:      http.StatusConflict,
	domain.ReasonNotInvited:         http.StatusForbidden,
	domain.ReasonPresenceRequired:   http.StatusForbidden,
	domain.ReasonAlreadyVoted:       http.StatusConflict,
	domain.ReasonConflict:           http.StatusConflict,
}

func statusFor(err error) int {
	if status, ok := reasonStatus[domain.ReasonOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError renders business outcomes with their reason code. Anything
// else is an internal fault and its text is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	reason := domain.ReasonOf(err)
	if reason == domain.ReasonNone {
		if ctxErr := r.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "timeout", Message: "request deadline exceeded"})
			return
		}
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal", Message: "internal server error"})
		return
	}
	writeJSON(w, statusFor(err), errorResponse{Error: reason, Message: err.Error()})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: domain.ReasonInvalidInput, Message: message})
}
