package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
)

// PresenceAuthorizer is the capability predicate owned by role
// administration: poll creator, admin of the poll's organization, or
// platform super-admin.
type PresenceAuthorizer interface {
	CanManagePollPresence(ctx context.Context, poll *domain.Poll, userID uuid.UUID) (bool, error)
}

// DepartmentDirectory answers live department membership.
type DepartmentDirectory interface {
	MembersOf(ctx context.Context, deptIDs []uuid.UUID) ([]uuid.UUID, error)
}

// Notifier receives the users that became reachable through an invitation.
type Notifier interface {
	NotifyInvited(ctx context.Context, poll *domain.Poll, userIDs []uuid.UUID) error
}
