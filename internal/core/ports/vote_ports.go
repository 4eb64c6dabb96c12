package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
)

type VoteRepository interface {
	// SaveVote must return domain.ErrAlreadyVoted when a vote for
	// (poll, voter) exists; the check and the insert are one operation.
	SaveVote(ctx context.Context, vote *domain.Vote) error
	GetVote(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error)
}

type CastVoteInput struct {
	PollID           uuid.UUID
	OptionID         uuid.UUID
	VoterID          uuid.UUID
	CastByID         uuid.UUID
	VerificationType domain.VerificationType
	VoterIP          string
}

type VoteLedger interface {
	CastVote(ctx context.Context, input CastVoteInput) (*domain.Vote, error)
}

type VoteInput struct {
	Actor      domain.Actor
	PollID     uuid.UUID
	OptionID   uuid.UUID
	OnBehalfOf *uuid.UUID
	VoterIP    string
}

type VoteService interface {
	Vote(ctx context.Context, input VoteInput) (*domain.Vote, error)
	MyVote(ctx context.Context, actor domain.Actor, pollID uuid.UUID) (*domain.Vote, error)
}

type EligibilityResolver interface {
	CanVote(ctx context.Context, poll *domain.Poll, actingUser uuid.UUID, onBehalfOf *uuid.UUID) (domain.Eligibility, error)
}
