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

type proxyRepository struct {
	db *sql.DB
}

func NewProxyRepository(db *sql.DB) ports.ProxyRepository {
	return &proxyRepository{db: db}
}

func (r *proxyRepository) Save(ctx context.Context, a *domain.ProxyAssignment) error {
	query := `
		INSERT INTO proxy_assignments (id, poll_id, principal_id, proxy_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, a.ID, a.PollID, a.PrincipalID, a.ProxyID, a.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrConflict
		case isForeignKeyViolation(err):
			return domain.ErrPollNotFound
		}
		return fmt.Errorf("failed to save proxy assignment: %w", err)
	}
	return nil
}

func (r *proxyRepository) Get(ctx context.Context, pollID, principalID uuid.UUID) (*domain.ProxyAssignment, error) {
	query := `
		SELECT id, poll_id, principal_id, proxy_id, created_at
		FROM proxy_assignments
		WHERE poll_id = $1 AND principal_id = $2
	`
	var a domain.ProxyAssignment
	err := r.db.QueryRowContext(ctx, query, pollID, principalID).Scan(&a.ID, &a.PollID, &a.PrincipalID, &a.ProxyID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get proxy assignment: %w", err)
	}
	return &a, nil
}

func (r *proxyRepository) List(ctx context.Context, pollID uuid.UUID) ([]*domain.ProxyAssignment, error) {
	query := `
		SELECT id, poll_id, principal_id, proxy_id, created_at
		FROM proxy_assignments
		WHERE poll_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proxy assignments: %w", err)
	}
	defer rows.Close()

	var out []*domain.ProxyAssignment
	for rows.Next() {
		var a domain.ProxyAssignment
		if err := rows.Scan(&a.ID, &a.PollID, &a.PrincipalID, &a.ProxyID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan proxy assignment: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating proxy assignments: %w", err)
	}
	return out, nil
}

func (r *proxyRepository) Delete(ctx context.Context, pollID, principalID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM proxy_assignments WHERE poll_id = $1 AND principal_id = $2`, pollID, principalID)
	if err != nil {
		return fmt.Errorf("failed to delete proxy assignment: %w", err)
	}
	return nil
}
