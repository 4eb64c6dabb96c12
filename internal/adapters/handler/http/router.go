package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Auth        *Authenticator
	Polls       *PollHandler
	Votes       *VoteHandler
	Presence    *PresenceHandler
	Invitations *InvitationHandler
	Proxies     *ProxyHandler
	// RequestTimeout bounds every request; zero disables the deadline.
	RequestTimeout time.Duration
}

func NewHandler(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if h.RequestTimeout > 0 {
		r.Use(middleware.Timeout(h.RequestTimeout))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("welcome"))
		})

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.OptionalAuth)
			r.Post("/presence/verify", h.Presence.Verify)
			r.Get("/presence/scan/{token}", h.Presence.Scan)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireAuth)

			r.Route("/polls", func(r chi.Router) {
				r.Post("/", h.Polls.CreatePoll)
				r.Get("/", h.Polls.ListPolls)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Polls.GetPoll)
					r.Delete("/", h.Polls.DeletePoll)
					r.Post("/archive", h.Polls.ArchivePoll)

					r.Post("/vote", h.Votes.VoteOnPoll)
					r.Get("/my-vote", h.Votes.MyVote)
					r.Get("/eligibility", h.Votes.Eligibility)

					r.Post("/presence/generate", h.Presence.Generate)
					r.Get("/presence/active", h.Presence.Active)
					r.Get("/presence/status", h.Presence.Status)

					r.Post("/invitations/users", h.Invitations.InviteUsers)
					r.Post("/invitations/departments", h.Invitations.InviteDepartments)
					r.Delete("/invitations/users/{userId}", h.Invitations.RevokeUser)
					r.Delete("/invitations/departments/{departmentId}", h.Invitations.RevokeDepartment)
					r.Get("/audience", h.Invitations.Audience)

					r.Post("/proxies", h.Proxies.Assign)
					r.Get("/proxies", h.Proxies.List)
					r.Delete("/proxies/{principalId}", h.Proxies.Remove)
				})
			})
		})
	})

	return r
}
