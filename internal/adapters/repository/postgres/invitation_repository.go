package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

type invitationRepository struct {
	db *sql.DB
}

func NewInvitationRepository(db *sql.DB) ports.InvitationRepository {
	return &invitationRepository{db: db}
}

// AttachUsers returns only the rows it inserted; concurrent callers never
// both see the same id as attached.
func (r *invitationRepository) AttachUsers(ctx context.Context, pollID uuid.UUID, userIDs []uuid.UUID, invitedBy uuid.UUID) ([]uuid.UUID, error) {
	query := `
		INSERT INTO poll_user_invitations (poll_id, user_id, invited_by)
		SELECT $1, u, $3 FROM unnest($2::uuid[]) AS u
		ON CONFLICT (poll_id, user_id) DO NOTHING
		RETURNING user_id
	`
	return r.attach(ctx, query, pollID, userIDs, invitedBy)
}

func (r *invitationRepository) AttachDepartments(ctx context.Context, pollID uuid.UUID, deptIDs []uuid.UUID, invitedBy uuid.UUID) ([]uuid.UUID, error) {
	query := `
		INSERT INTO poll_department_invitations (poll_id, department_id, invited_by)
		SELECT $1, d, $3 FROM unnest($2::uuid[]) AS d
		ON CONFLICT (poll_id, department_id) DO NOTHING
		RETURNING department_id
	`
	return r.attach(ctx, query, pollID, deptIDs, invitedBy)
}

func (r *invitationRepository) attach(ctx context.Context, query string, pollID uuid.UUID, ids []uuid.UUID, invitedBy uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, query, pollID, pq.Array(uuidStrings(ids)), invitedBy)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to attach invitations: %w", err)
	}
	defer rows.Close()

	// The constraint error of a RETURNING insert can surface while iterating.
	attached, err := scanIDs(rows)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrPollNotFound
		}
		return nil, err
	}
	return attached, nil
}

func (r *invitationRepository) ListUsers(ctx context.Context, pollID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM poll_user_invitations WHERE poll_id = $1`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user invitations: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *invitationRepository) ListDepartments(ctx context.Context, pollID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT department_id FROM poll_department_invitations WHERE poll_id = $1`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list department invitations: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *invitationRepository) RevokeUser(ctx context.Context, pollID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM poll_user_invitations WHERE poll_id = $1 AND user_id = $2`, pollID, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke user invitation: %w", err)
	}
	return nil
}

func (r *invitationRepository) RevokeDepartment(ctx context.Context, pollID, deptID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM poll_department_invitations WHERE poll_id = $1 AND department_id = $2`, pollID, deptID)
	if err != nil {
		return fmt.Errorf("failed to revoke department invitation: %w", err)
	}
	return nil
}

func scanIDs(rows *sql.Rows) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ids: %w", err)
	}
	return ids, nil
}
