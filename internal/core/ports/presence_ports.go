package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
)

type CredentialRepository interface {
	// Issue stores cred and clamps the expiry of older credentials of the
	// same poll to cred.IssuedAt.
	Issue(ctx context.Context, cred *domain.PresenceCredential) error
	// Active returns the newest credential of the poll unexpired at now, or
	// nil.
	Active(ctx context.Context, pollID uuid.UUID, now time.Time) (*domain.PresenceCredential, error)
	// GetByToken returns domain.ErrTokenNotFound for unknown tokens.
	GetByToken(ctx context.Context, token string) (*domain.PresenceCredential, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type VerificationRepository interface {
	// Ensure creates rec unless a record for (poll, user) exists and returns
	// the stored record either way.
	Ensure(ctx context.Context, rec *domain.VerificationRecord) (*domain.VerificationRecord, error)
	Get(ctx context.Context, pollID, userID uuid.UUID) (*domain.VerificationRecord, error)
}

type PresenceStatus struct {
	IsVerified           bool                    `json:"isVerified"`
	VerificationType     domain.VerificationType `json:"verificationType,omitempty"`
	VerifiedAt           *time.Time              `json:"verifiedAt,omitempty"`
	CanVoteRemotely      bool                    `json:"canVoteRemotely"`
	RequiresVerification bool                    `json:"requiresVerification"`
	Eligibility          domain.Eligibility      `json:"eligibility"`
}

type PresenceService interface {
	IssueOrRotate(ctx context.Context, actor domain.Actor, pollID uuid.UUID) (*domain.PresenceCredential, error)
	ActiveCredential(ctx context.Context, actor domain.Actor, pollID uuid.UUID) (*domain.PresenceCredential, error)
	Redeem(ctx context.Context, rawToken string, userID uuid.UUID) (*domain.VerificationRecord, error)
	Status(ctx context.Context, actor domain.Actor, pollID uuid.UUID) (*PresenceStatus, error)
}
