package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

type PollHandler struct {
	service ports.PollService
}

func NewPollHandler(service ports.PollService) *PollHandler {
	return &PollHandler{
		service: service,
	}
}

type createOptionRequest struct {
	Text     string `json:"text"`
	Name     string `json:"name"`
	Position string `json:"position"`
	ImageURL string `json:"imageUrl"`
}

type createPollRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Type        domain.PollType       `json:"type"`
	Visibility  domain.Visibility     `json:"visibility"`
	AccessMode  domain.AccessMode     `json:"votingAccessMode"`
	StartAt     *time.Time            `json:"startAt"`
	EndAt       *time.Time            `json:"endAt"`
	Options     []createOptionRequest `json:"options"`
}

// CreatePoll godoc
// @Summary      Creates a poll
// @Tags         polls
// @Accept       json
// @Produce      json
// @Success      201  {object}  domain.Poll
// @Failure      400
// @Router       /polls [post]
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	input := ports.CreatePollInput{
		Actor:       actor,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Visibility:  req.Visibility,
		AccessMode:  req.AccessMode,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
	}
	for _, o := range req.Options {
		input.Options = append(input.Options, ports.CreateOptionInput{
			Text:     o.Text,
			Name:     o.Name,
			Position: o.Position,
			ImageURL: o.ImageURL,
		})
	}

	poll, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, poll)
}

func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			badRequest(w, "invalid page")
			return
		}
	}

	polls, err := h.service.ListPolls(r.Context(), ports.ListPollsInput{Actor: actor, Page: page})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if polls == nil {
		polls = []*domain.Poll{}
	}

	writeJSON(w, http.StatusOK, polls)
}

// GetPoll godoc
// @Summary      Returns a poll with its effective status
// @Tags         polls
// @Produce      json
// @Param        id   path      string  true  "Poll ID"
// @Success      200  {object}  domain.Poll
// @Failure      404
// @Router       /polls/{id} [get]
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}

	poll, err := h.service.GetPoll(r.Context(), actor, pollID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, poll)
}

func (h *PollHandler) ArchivePoll(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.Archive(r.Context(), actor, pollID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, pollID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pollRequest resolves the actor and the {id} path parameter, writing the
// error response itself when either is missing.
func pollRequest(w http.ResponseWriter, r *http.Request) (domain.Actor, uuid.UUID, bool) {
	actor, err := actorFrom(r)
	if err != nil {
		badRequest(w, err.Error())
		return domain.Actor{}, uuid.Nil, false
	}

	pollID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, domain.ErrInvalidPollID)
		return domain.Actor{}, uuid.Nil, false
	}
	return actor, pollID, true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
