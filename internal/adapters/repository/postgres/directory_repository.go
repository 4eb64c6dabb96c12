package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
)

// DirectoryRepository reads the role and department tables owned by the
// identity and tenant services.
type DirectoryRepository struct {
	db *sql.DB
}

func NewDirectoryRepository(db *sql.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) CanManagePollPresence(ctx context.Context, poll *domain.Poll, userID uuid.UUID) (bool, error) {
	if poll.CreatedBy == userID {
		return true, nil
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE id = $1 AND is_super_admin AND deleted_at IS NULL
		) OR EXISTS (
			SELECT 1 FROM organization_members
			WHERE organization_id = $2::uuid AND user_id = $1 AND role = 'admin'
		)
	`
	var allowed bool
	if err := r.db.QueryRowContext(ctx, query, userID, poll.OrganizationID).Scan(&allowed); err != nil {
		return false, fmt.Errorf("failed to check poll capability: %w", err)
	}
	return allowed, nil
}

func (r *DirectoryRepository) MembersOf(ctx context.Context, deptIDs []uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT dm.user_id
		FROM department_members dm
		JOIN users u ON u.id = dm.user_id AND u.deleted_at IS NULL
		WHERE dm.department_id = ANY($1::uuid[])
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(uuidStrings(deptIDs)))
	if err != nil {
		return nil, fmt.Errorf("failed to list department members: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}
