package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
)

type contextKey string

const UserIDKey contextKey = "user_id"

const organizationHeader = "X-Organization-ID"

// Authenticator resolves the caller from an HS256 access token carried in
// the access_token cookie or a Bearer header.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// RequireAuth rejects requests without a valid access token.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.userFromRequest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated", Message: "Unauthorized: " + err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserIDKey, userID)))
	})
}

// OptionalAuth attaches the caller when a valid token is present and lets
// the handler decide otherwise.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, err := a.userFromRequest(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), UserIDKey, userID))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) userFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := bearerToken(r)
	if raw == "" {
		cookie, err := r.Cookie("access_token")
		if err != nil || cookie.Value == "" {
			return uuid.Nil, errors.New("missing access token")
		}
		raw = cookie.Value
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, errors.New("invalid access token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, errors.New("invalid access token subject")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, errors.New("invalid access token subject")
	}
	return userID, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func userIDFrom(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// actorFrom builds the caller identity and the organization scope selected
// by the tenant header.
func actorFrom(r *http.Request) (domain.Actor, error) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		return domain.Actor{}, errors.New("missing user context")
	}

	actor := domain.Actor{UserID: userID}
	if raw := r.Header.Get(organizationHeader); raw != "" {
		orgID, err := uuid.Parse(raw)
		if err != nil {
			return domain.Actor{}, errors.New("invalid " + organizationHeader + " header")
		}
		actor.OrganizationID = &orgID
	}
	return actor, nil
}
