package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
)

type ProxyRepository interface {
	// Save returns domain.ErrConflict when the principal already has a
	// proxy on the poll.
	Save(ctx context.Context, assignment *domain.ProxyAssignment) error
	Get(ctx context.Context, pollID, principalID uuid.UUID) (*domain.ProxyAssignment, error)
	List(ctx context.Context, pollID uuid.UUID) ([]*domain.ProxyAssignment, error)
	Delete(ctx context.Context, pollID, principalID uuid.UUID) error
}

type AssignProxyInput struct {
	Actor       domain.Actor
	PollID      uuid.UUID
	PrincipalID uuid.UUID
	ProxyID     uuid.UUID
}

type ProxyService interface {
	Assign(ctx context.Context, input AssignProxyInput) (*domain.ProxyAssignment, error)
	Remove(ctx context.Context, actor domain.Actor, pollID, principalID uuid.UUID) error
	List(ctx context.Context, actor domain.Actor, pollID uuid.UUID) ([]*domain.ProxyAssignment, error)
}
