package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

type eligibilityService struct {
	audience      ports.InvitationService
	verifications ports.VerificationRepository
	proxies       ports.ProxyRepository
	clock         ports.Clock
}

func NewEligibilityService(audience ports.InvitationService, verifications ports.VerificationRepository, proxies ports.ProxyRepository, clock ports.Clock) ports.EligibilityResolver {
	return &eligibilityService{
		audience:      audience,
		verifications: verifications,
		proxies:       proxies,
		clock:         clock,
	}
}

// CanVote decides whether actingUser may cast a vote on poll, for
// themselves or for the principal onBehalfOf. Denials are returned in the
// Eligibility value; the error is reserved for store failures.
func (s *eligibilityService) CanVote(ctx context.Context, poll *domain.Poll, actingUser uuid.UUID, onBehalfOf *uuid.UUID) (domain.Eligibility, error) {
	if domain.EffectiveStatus(poll, s.clock.Now()) != domain.StatusActive {
		return domain.Deny(domain.ErrPollNotActive), nil
	}

	participant := actingUser
	if onBehalfOf != nil {
		participant = *onBehalfOf
	}

	if poll.Visibility == domain.VisibilityInviteOnly {
		invited, err := s.audience.InAudience(ctx, poll.ID, participant)
		if err != nil {
			return domain.Eligibility{}, fmt.Errorf("failed to resolve audience: %w", err)
		}
		if !invited {
			return domain.Deny(domain.ErrNotInvited), nil
		}
	}

	var verificationType domain.VerificationType
	switch poll.AccessMode {
	case domain.AccessRemoteOnly:
		verificationType = domain.VerificationRemote
	case domain.AccessOnPremiseOnly, domain.AccessHybrid:
		rec, err := s.verifications.Get(ctx, poll.ID, participant)
		if err != nil {
			return domain.Eligibility{}, fmt.Errorf("failed to load verification: %w", err)
		}
		switch {
		case rec != nil:
			verificationType = domain.VerificationOnPremise
		case poll.AccessMode == domain.AccessHybrid:
			verificationType = domain.VerificationRemote
		default:
			return domain.Deny(domain.ErrPresenceRequired), nil
		}
	default:
		return domain.Deny(domain.ErrUnsupportedMode), nil
	}

	if onBehalfOf != nil {
		assignment, err := s.proxies.Get(ctx, poll.ID, *onBehalfOf)
		if err != nil {
			return domain.Eligibility{}, fmt.Errorf("failed to load proxy assignment: %w", err)
		}
		if assignment == nil || assignment.ProxyID != actingUser {
			return domain.Deny(domain.ErrNotAuthorizedProxy), nil
		}
	}

	return domain.Allow(verificationType), nil
}
