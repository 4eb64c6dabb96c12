package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
)

// Directory stands in for the role administration and department
// collaborators.
type Directory struct{ s *Store }

func (d *Directory) SetSuperAdmin(userID uuid.UUID) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.s.superAdmins[userID] = true
}

func (d *Directory) SetOrgAdmin(orgID, userID uuid.UUID) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.s.orgAdmins[memberKey{orgID, userID}] = true
}

func (d *Directory) AddDepartmentMember(deptID, userID uuid.UUID) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	members, ok := d.s.departments[deptID]
	if !ok {
		members = make(map[uuid.UUID]struct{})
		d.s.departments[deptID] = members
	}
	members[userID] = struct{}{}
}

func (d *Directory) RemoveDepartmentMember(deptID, userID uuid.UUID) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	delete(d.s.departments[deptID], userID)
}

func (d *Directory) CanManagePollPresence(ctx context.Context, poll *domain.Poll, userID uuid.UUID) (bool, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	if poll.CreatedBy == userID || d.s.superAdmins[userID] {
		return true, nil
	}
	if poll.OrganizationID != nil && d.s.orgAdmins[memberKey{*poll.OrganizationID, userID}] {
		return true, nil
	}
	return false, nil
}

func (d *Directory) MembersOf(ctx context.Context, deptIDs []uuid.UUID) ([]uuid.UUID, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, dept := range deptIDs {
		for id := range d.s.departments[dept] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out, nil
}
