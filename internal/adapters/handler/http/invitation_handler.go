package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

type InvitationHandler struct {
	service ports.InvitationService
}

func NewInvitationHandler(service ports.InvitationService) *InvitationHandler {
	return &InvitationHandler{
		service: service,
	}
}

type inviteUsersRequest struct {
	UserIDs []uuid.UUID `json:"userIds"`
}

type inviteDepartmentsRequest struct {
	DepartmentIDs []uuid.UUID `json:"departmentIds"`
}

func (h *InvitationHandler) InviteUsers(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}

	var req inviteUsersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	result, err := h.service.InviteUsers(r.Context(), actor, pollID, req.UserIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *InvitationHandler) InviteDepartments(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}

	var req inviteDepartmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	result, err := h.service.InviteDepartments(r.Context(), actor, pollID, req.DepartmentIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *InvitationHandler) RevokeUser(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}
	userID, ok := uuidParam(w, r, "userId")
	if !ok {
		return
	}

	if err := h.service.RevokeUserInvitation(r.Context(), actor, pollID, userID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InvitationHandler) RevokeDepartment(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}
	deptID, ok := uuidParam(w, r, "departmentId")
	if !ok {
		return
	}

	if err := h.service.RevokeDepartmentInvitation(r.Context(), actor, pollID, deptID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Audience lists everyone currently reachable by the poll, resolving
// department membership as of now. Only poll managers may list it.
func (h *InvitationHandler) Audience(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}

	audience, err := h.service.Audience(r.Context(), actor, pollID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if audience == nil {
		audience = []uuid.UUID{}
	}

	writeJSON(w, http.StatusOK, map[string][]uuid.UUID{"userIds": audience})
}
