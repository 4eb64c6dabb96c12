package domain

import (
	"github.com/google/uuid"
)

// Actor is the authenticated caller together with the organization scope
// the tenant collaborator resolved for the request. A nil OrganizationID is
// the platform scope.
type Actor struct {
	UserID         uuid.UUID
	OrganizationID *uuid.UUID
}
