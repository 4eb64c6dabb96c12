package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

type ProxyHandler struct {
	service ports.ProxyService
}

func NewProxyHandler(service ports.ProxyService) *ProxyHandler {
	return &ProxyHandler{
		service: service,
	}
}

type assignProxyRequest struct {
	PrincipalID uuid.UUID `json:"principalId"`
	ProxyID     uuid.UUID `json:"proxyId"`
}

func (h *ProxyHandler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}

	var req assignProxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	assignment, err := h.service.Assign(r.Context(), ports.AssignProxyInput{
		Actor:       actor,
		PollID:      pollID,
		PrincipalID: req.PrincipalID,
		ProxyID:     req.ProxyID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, assignment)
}

func (h *ProxyHandler) Remove(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}
	principalID, ok := uuidParam(w, r, "principalId")
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), actor, pollID, principalID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProxyHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}

	assignments, err := h.service.List(r.Context(), actor, pollID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if assignments == nil {
		assignments = []*domain.ProxyAssignment{}
	}

	writeJSON(w, http.StatusOK, assignments)
}
