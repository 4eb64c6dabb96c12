package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

// SaveVote relies on votes_poll_voter_key to reject a second vote for the
// same (poll, voter), and on votes_option_poll_fkey for option membership.
func (r *voteRepository) SaveVote(ctx context.Context, vote *domain.Vote) error {
	query := `
		INSERT INTO votes (id, poll_id, option_id, voter_id, cast_by_id, verification_type, voter_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.db.ExecContext(ctx, query,
		vote.ID, vote.PollID, vote.OptionID, vote.VoterID, vote.CastByID, vote.VerificationType, vote.VoterIP, vote.CreatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrAlreadyVoted
		case isForeignKeyViolation(err):
			return domain.ErrOptionNotFound
		}
		return fmt.Errorf("failed to save vote: %w", err)
	}
	return nil
}

func (r *voteRepository) GetVote(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error) {
	query := `
		SELECT id, poll_id, option_id, voter_id, cast_by_id, verification_type, voter_ip, created_at
		FROM votes
		WHERE poll_id = $1 AND voter_id = $2
	`
	var v domain.Vote
	err := r.db.QueryRowContext(ctx, query, pollID, voterID).Scan(
		&v.ID, &v.PollID, &v.OptionID, &v.VoterID, &v.CastByID, &v.VerificationType, &v.VoterIP, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return &v, nil
}
