package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

// DefaultTokenTTL is the lifetime of a presence credential when none is
// configured.
const DefaultTokenTTL = 30 * time.Second

type PresenceService struct {
	polls         ports.PollRepository
	credentials   ports.CredentialRepository
	verifications ports.VerificationRepository
	authorizer    ports.PresenceAuthorizer
	eligibility   ports.EligibilityResolver
	clock         ports.Clock
	ttl           time.Duration
	logger        *slog.Logger
}

type PresenceServiceConfig struct {
	Polls         ports.PollRepository
	Credentials   ports.CredentialRepository
	Verifications ports.VerificationRepository
	Authorizer    ports.PresenceAuthorizer
	Eligibility   ports.EligibilityResolver
	Clock         ports.Clock
	TokenTTL      time.Duration
	Logger        *slog.Logger
}

func NewPresenceService(cfg PresenceServiceConfig) *PresenceService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &PresenceService{
		polls:         cfg.Polls,
		credentials:   cfg.Credentials,
		verifications: cfg.Verifications,
		authorizer:    cfg.Authorizer,
		eligibility:   cfg.Eligibility,
		clock:         cfg.Clock,
		ttl:           ttl,
		logger:        resolveLogger(cfg.Logger),
	}
}

// IssueOrRotate issues a fresh credential for the poll. Any older unexpired
// credential of the poll stops being redeemable.
func (s *PresenceService) IssueOrRotate(ctx context.Context, actor domain.Actor, pollID uuid.UUID) (*domain.PresenceCredential, error) {
	poll, err := loadManagedPoll(ctx, s.polls, s.authorizer, actor, pollID)
	if err != nil {
		return nil, err
	}
	if !poll.AccessMode.UsesPresence() {
		return nil, domain.ErrUnsupportedMode
	}

	now := s.clock.Now()
	switch domain.EffectiveStatus(poll, now) {
	case domain.StatusEnded, domain.StatusArchived:
		return nil, domain.ErrPollNotActive
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	cred := &domain.PresenceCredential{
		ID:        uuid.New(),
		PollID:    poll.ID,
		Token:     token,
		IssuedBy:  actor.UserID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.credentials.Issue(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to issue presence credential: %w", err)
	}

	s.logger.Info("presence credential issued", "poll_id", poll.ID, "credential_id", cred.ID, "expires_at", cred.ExpiresAt)
	return cred, nil
}

// ActiveCredential returns the newest unexpired credential, or nil.
func (s *PresenceService) ActiveCredential(ctx context.Context, actor domain.Actor, pollID uuid.UUID) (*domain.PresenceCredential, error) {
	poll, err := loadManagedPoll(ctx, s.polls, s.authorizer, actor, pollID)
	if err != nil {
		return nil, err
	}
	if !poll.AccessMode.UsesPresence() {
		return nil, domain.ErrUnsupportedMode
	}
	return s.credentials.Active(ctx, poll.ID, s.clock.Now())
}

// Redeem turns a valid scan into the durable verification record for
// (poll, user). The credential is not consumed.
func (s *PresenceService) Redeem(ctx context.Context, rawToken string, userID uuid.UUID) (*domain.VerificationRecord, error) {
	token, err := domain.ExtractToken(rawToken)
	if err != nil {
		return nil, err
	}

	cred, err := s.credentials.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if cred.Expired(now) {
		return nil, domain.ErrTokenExpired
	}

	poll, err := s.polls.GetByID(ctx, cred.PollID)
	if err != nil {
		return nil, err
	}
	if !poll.AccessMode.UsesPresence() {
		return nil, domain.ErrUnsupportedMode
	}

	// The write may not outlive the token. At the exact expiry instant there
	// is no lifetime left to bound it by; the check after the write decides.
	writeCtx := ctx
	if remaining := cred.Remaining(now); remaining > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, remaining)
		defer cancel()
	}

	rec, err := s.verifications.Ensure(writeCtx, &domain.VerificationRecord{
		PollID:           poll.ID,
		UserID:           userID,
		VerificationType: domain.VerificationOnPremise,
		VerifiedAt:       now,
	})
	if err != nil {
		if errors.Is(writeCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("failed to record verification: %w", err)
	}
	if cred.Expired(s.clock.Now()) {
		return nil, domain.ErrTokenExpired
	}

	s.logger.Info("presence verified", "poll_id", poll.ID, "user_id", userID, "credential_id", cred.ID)
	return rec, nil
}

// Status summarizes the caller's presence state and vote eligibility.
func (s *PresenceService) Status(ctx context.Context, actor domain.Actor, pollID uuid.UUID) (*ports.PresenceStatus, error) {
	poll, err := loadVisiblePoll(ctx, s.polls, actor, pollID)
	if err != nil {
		return nil, err
	}

	status := &ports.PresenceStatus{
		CanVoteRemotely:      poll.AccessMode != domain.AccessOnPremiseOnly,
		RequiresVerification: poll.AccessMode == domain.AccessOnPremiseOnly,
	}

	if poll.AccessMode.UsesPresence() {
		rec, err := s.verifications.Get(ctx, poll.ID, actor.UserID)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			status.IsVerified = true
			status.VerificationType = rec.VerificationType
			verifiedAt := rec.VerifiedAt
			status.VerifiedAt = &verifiedAt
		}
	}

	status.Eligibility, err = s.eligibility.CanVote(ctx, poll, actor.UserID, nil)
	if err != nil {
		return nil, err
	}
	return status, nil
}

func generateToken() (string, error) {
	b := make([]byte, domain.TokenLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate presence token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
