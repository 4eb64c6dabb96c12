package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

type voteLedger struct {
	pollRepo ports.PollRepository
	voteRepo ports.VoteRepository
	clock    ports.Clock
}

func NewVoteLedger(pollRepo ports.PollRepository, voteRepo ports.VoteRepository, clock ports.Clock) ports.VoteLedger {
	return &voteLedger{
		pollRepo: pollRepo,
		voteRepo: voteRepo,
		clock:    clock,
	}
}

// CastVote re-validates the poll at write time and appends the vote. The
// (poll, voter) uniqueness is enforced by the repository in the same
// operation as the insert.
func (l *voteLedger) CastVote(ctx context.Context, input ports.CastVoteInput) (*domain.Vote, error) {
	poll, err := l.pollRepo.GetByID(ctx, input.PollID)
	if err != nil {
		return nil, err
	}

	now := l.clock.Now()
	if domain.EffectiveStatus(poll, now) != domain.StatusActive {
		return nil, domain.ErrPollNotActive
	}
	if !poll.HasOption(input.OptionID) {
		return nil, domain.ErrOptionNotFound
	}

	castBy := input.CastByID
	if castBy == uuid.Nil {
		castBy = input.VoterID
	}

	vote := &domain.Vote{
		ID:               uuid.New(),
		PollID:           poll.ID,
		OptionID:         input.OptionID,
		VoterID:          input.VoterID,
		CastByID:         castBy,
		VerificationType: input.VerificationType,
		VoterIP:          input.VoterIP,
		CreatedAt:        now,
	}

	if err := l.voteRepo.SaveVote(ctx, vote); err != nil {
		return nil, err
	}
	return vote, nil
}

type voteService struct {
	pollRepo    ports.PollRepository
	voteRepo    ports.VoteRepository
	polls       ports.PollService
	eligibility ports.EligibilityResolver
	ledger      ports.VoteLedger
	logger      *slog.Logger
}

func NewVoteService(pollRepo ports.PollRepository, voteRepo ports.VoteRepository, polls ports.PollService, eligibility ports.EligibilityResolver, ledger ports.VoteLedger, logger *slog.Logger) ports.VoteService {
	return &voteService{
		pollRepo:    pollRepo,
		voteRepo:    voteRepo,
		polls:       polls,
		eligibility: eligibility,
		ledger:      ledger,
		logger:      resolveLogger(logger),
	}
}

func (s *voteService) Vote(ctx context.Context, input ports.VoteInput) (*domain.Vote, error) {
	poll, err := loadVisiblePoll(ctx, s.pollRepo, input.Actor, input.PollID)
	if err != nil {
		return nil, err
	}
	if _, err := s.polls.Refresh(ctx, poll); err != nil {
		return nil, err
	}

	decision, err := s.eligibility.CanVote(ctx, poll, input.Actor.UserID, input.OnBehalfOf)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		s.logger.Debug("vote denied", "poll_id", poll.ID, "user_id", input.Actor.UserID, "reason", decision.Reason)
		return nil, decision.Err
	}

	voter := input.Actor.UserID
	if input.OnBehalfOf != nil {
		voter = *input.OnBehalfOf
	}

	vote, err := s.ledger.CastVote(ctx, ports.CastVoteInput{
		PollID:           poll.ID,
		OptionID:         input.OptionID,
		VoterID:          voter,
		CastByID:         input.Actor.UserID,
		VerificationType: decision.VerificationType,
		VoterIP:          input.VoterIP,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("vote cast",
		"poll_id", vote.PollID,
		"voter_id", vote.VoterID,
		"cast_by_id", vote.CastByID,
		"verification_type", vote.VerificationType,
	)
	return vote, nil
}

func (s *voteService) MyVote(ctx context.Context, actor domain.Actor, pollID uuid.UUID) (*domain.Vote, error) {
	poll, err := loadVisiblePoll(ctx, s.pollRepo, actor, pollID)
	if err != nil {
		return nil, err
	}

	vote, err := s.voteRepo.GetVote(ctx, poll.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if vote == nil {
		return nil, domain.ErrVoteNotFound
	}
	return vote, nil
}
