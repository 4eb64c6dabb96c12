package http

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

type VoteHandler struct {
	service     ports.VoteService
	polls       ports.PollService
	eligibility ports.EligibilityResolver
}

func NewVoteHandler(service ports.VoteService, polls ports.PollService, eligibility ports.EligibilityResolver) *VoteHandler {
	return &VoteHandler{
		service:     service,
		polls:       polls,
		eligibility: eligibility,
	}
}

type voteRequest struct {
	OptionID   uuid.UUID  `json:"optionId"`
	OnBehalfOf *uuid.UUID `json:"onBehalfOf,omitempty"`
}

// VoteOnPoll godoc
// @Summary      Casts the caller's vote, or a proxy vote with onBehalfOf
// @Tags         votes
// @Accept       json
// @Param        id   path      string  true  "Poll ID"
// @Success      201  {object}  domain.Vote
// @Failure      403
// @Failure      409
// @Router       /polls/{id}/vote [post]
func (h *VoteHandler) VoteOnPoll(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	vote, err := h.service.Vote(r.Context(), ports.VoteInput{
		Actor:      actor,
		PollID:     pollID,
		OptionID:   req.OptionID,
		OnBehalfOf: req.OnBehalfOf,
		VoterIP:    ip,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, vote)
}

func (h *VoteHandler) MyVote(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}

	vote, err := h.service.MyVote(r.Context(), actor, pollID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, vote)
}

// Eligibility reports whether the caller may vote now, optionally on behalf
// of the principal named by the onBehalfOf query parameter.
func (h *VoteHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}

	var onBehalfOf *uuid.UUID
	if raw := r.URL.Query().Get("onBehalfOf"); raw != "" {
		principal, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "invalid onBehalfOf")
			return
		}
		onBehalfOf = &principal
	}

	poll, err := h.polls.GetPoll(r.Context(), actor, pollID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	decision, err := h.eligibility.CanVote(r.Context(), poll, actor.UserID, onBehalfOf)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, decision)
}
