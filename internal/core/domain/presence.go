package domain

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenLength is the exact length of a presence token.
const TokenLength = 64

const tokenAlphabet = "0123456789abcdef"

// PresenceCredential is a short-lived QR token. It only bootstraps a
// VerificationRecord and never grants access by itself.
type PresenceCredential struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"pollId"`
	Token     string    `json:"token"`
	IssuedBy  uuid.UUID `json:"issuedBy"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (c *PresenceCredential) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Remaining is the lifetime left at now, floored at zero.
func (c *PresenceCredential) Remaining(now time.Time) time.Duration {
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// VerificationRecord is the durable presence grant for a (poll, user) pair.
type VerificationRecord struct {
	PollID           uuid.UUID        `json:"pollId"`
	UserID           uuid.UUID        `json:"userId"`
	VerificationType VerificationType `json:"verificationType"`
	VerifiedAt       time.Time        `json:"verifiedAt"`
}

// ValidToken reports whether s has the exact presence token shape.
func ValidToken(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(tokenAlphabet, rune(s[i])) {
			return false
		}
	}
	return true
}

// ExtractToken accepts either a bare token or a verification URL ending in
// the token and returns the token. Shape is checked before any lookup.
func ExtractToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if ValidToken(raw) {
		return raw, nil
	}

	candidate := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		candidate = u.Path
	}
	candidate = strings.TrimRight(candidate, "/")
	if i := strings.LastIndex(candidate, "/"); i >= 0 {
		candidate = candidate[i+1:]
	}

	if !ValidToken(candidate) {
		return "", ErrInvalidToken
	}
	return candidate, nil
}
