package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

type PresenceHandler struct {
	service         ports.PresenceService
	clock           ports.Clock
	verificationURL func(token string) string
	pollPageURL     func(pollID uuid.UUID) string
	loginURL        string
}

type PresenceHandlerConfig struct {
	Service ports.PresenceService
	Clock   ports.Clock
	// VerificationURL builds the link encoded in the QR code.
	VerificationURL func(token string) string
	// PollPageURL is where a successful browser scan lands.
	PollPageURL func(pollID uuid.UUID) string
	LoginURL    string
}

func NewPresenceHandler(cfg PresenceHandlerConfig) *PresenceHandler {
	return &PresenceHandler{
		service:         cfg.Service,
		clock:           cfg.Clock,
		verificationURL: cfg.VerificationURL,
		pollPageURL:     cfg.PollPageURL,
		loginURL:        cfg.LoginURL,
	}
}

type credentialResponse struct {
	Active           bool      `json:"active"`
	Token            string    `json:"token"`
	VerificationURL  string    `json:"verificationUrl"`
	ExpiresAt        time.Time `json:"expiresAt"`
	RemainingSeconds int       `json:"remainingSeconds"`
	ExpiresIn        string    `json:"expiresIn"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	Success  bool       `json:"success"`
	Message  string     `json:"message"`
	PollID   *uuid.UUID `json:"pollId,omitempty"`
	Redirect string     `json:"redirect,omitempty"`
}

func (h *PresenceHandler) credentialBody(cred *domain.PresenceCredential) credentialResponse {
	now := h.clock.Now()
	return credentialResponse{
		Active:           true,
		Token:            cred.Token,
		VerificationURL:  h.verificationURL(cred.Token),
		ExpiresAt:        cred.ExpiresAt,
		RemainingSeconds: int(cred.Remaining(now).Round(time.Second) / time.Second),
		ExpiresIn:        humanize.RelTime(now, cred.ExpiresAt, "remaining", "ago"),
	}
}

// Generate godoc
// @Summary      Issues a fresh presence QR token for the poll
// @Description  Any older unexpired token of the poll stops being redeemable.
// @Tags         presence
// @Produce      json
// @Param        id   path      string  true  "Poll ID"
// @Success      201
// @Failure      403
// @Failure      422
// @Router       /polls/{id}/presence/generate [post]
func (h *PresenceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}

	cred, err := h.service.IssueOrRotate(r.Context(), actor, pollID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.credentialBody(cred))
}

func (h *PresenceHandler) Active(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}

	cred, err := h.service.ActiveCredential(r.Context(), actor, pollID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cred == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"active": false})
		return
	}

	writeJSON(w, http.StatusOK, h.credentialBody(cred))
}

func (h *PresenceHandler) Status(w http.ResponseWriter, r *http.Request) {
	actor, pollID, ok := pollRequest(w, r)
	if !ok {
		return
	}

	status, err := h.service.Status(r.Context(), actor, pollID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Verify godoc
// @Summary      Redeems a scanned presence token for the caller
// @Description  Unauthenticated callers get a login redirect that carries the token.
// @Tags         presence
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      401
// @Failure      410
// @Router       /presence/verify [post]
func (h *PresenceHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, verifyResponse{Message: "invalid request body"})
		return
	}

	userID, ok := userIDFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, verifyResponse{
			Message:  "login required to verify presence",
			Redirect: h.loginRedirect(req.Token),
		})
		return
	}

	rec, err := h.service.Redeem(r.Context(), req.Token, userID)
	if err != nil {
		if domain.ReasonOf(err) == domain.ReasonNone {
			writeError(w, r, err)
			return
		}
		writeJSON(w, statusFor(err), verifyResponse{Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Success: true,
		Message: "presence verified",
		PollID:  &rec.PollID,
	})
}

// Scan is the browser landing for the QR link.
func (h *PresenceHandler) Scan(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	userID, ok := userIDFrom(r.Context())
	if !ok {
		http.Redirect(w, r, h.loginRedirect(token), http.StatusFound)
		return
	}

	rec, err := h.service.Redeem(r.Context(), token, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.Redirect(w, r, h.pollPageURL(rec.PollID), http.StatusSeeOther)
}

func (h *PresenceHandler) loginRedirect(token string) string {
	u, err := url.Parse(h.loginURL)
	if err != nil {
		return h.loginURL
	}
	q := u.Query()
	if token != "" {
		q.Set("presence_token", token)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
