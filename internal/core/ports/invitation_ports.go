package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
)

type InvitationRepository interface {
	// AttachUsers inserts the missing rows and returns exactly the user ids
	// it inserted.
	AttachUsers(ctx context.Context, pollID uuid.UUID, userIDs []uuid.UUID, invitedBy uuid.UUID) ([]uuid.UUID, error)
	AttachDepartments(ctx context.Context, pollID uuid.UUID, deptIDs []uuid.UUID, invitedBy uuid.UUID) ([]uuid.UUID, error)
	ListUsers(ctx context.Context, pollID uuid.UUID) ([]uuid.UUID, error)
	ListDepartments(ctx context.Context, pollID uuid.UUID) ([]uuid.UUID, error)
	RevokeUser(ctx context.Context, pollID, userID uuid.UUID) error
	RevokeDepartment(ctx context.Context, pollID, deptID uuid.UUID) error
}

type InvitationService interface {
	InviteUsers(ctx context.Context, actor domain.Actor, pollID uuid.UUID, userIDs []uuid.UUID) (*domain.InvitationResult, error)
	InviteDepartments(ctx context.Context, actor domain.Actor, pollID uuid.UUID, deptIDs []uuid.UUID) (*domain.InvitationResult, error)
	// Audience is ResolveAudience for callers who may manage the poll.
	Audience(ctx context.Context, actor domain.Actor, pollID uuid.UUID) ([]uuid.UUID, error)
	ResolveAudience(ctx context.Context, pollID uuid.UUID) ([]uuid.UUID, error)
	InAudience(ctx context.Context, pollID, userID uuid.UUID) (bool, error)
	RevokeUserInvitation(ctx context.Context, actor domain.Actor, pollID, userID uuid.UUID) error
	RevokeDepartmentInvitation(ctx context.Context, actor domain.Actor, pollID, deptID uuid.UUID) error
}
