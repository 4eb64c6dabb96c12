package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserInvitation struct {
	PollID    uuid.UUID `json:"pollId"`
	UserID    uuid.UUID `json:"userId"`
	InvitedBy uuid.UUID `json:"invitedBy"`
	InvitedAt time.Time `json:"invitedAt"`
}

// DepartmentInvitation is resolved to member users at read time only.
type DepartmentInvitation struct {
	PollID       uuid.UUID `json:"pollId"`
	DepartmentID uuid.UUID `json:"departmentId"`
	InvitedBy    uuid.UUID `json:"invitedBy"`
	InvitedAt    time.Time `json:"invitedAt"`
}

// InvitationResult lists what an invite call changed. NewlyReachable holds
// the users who entered the audience because of this call and are the only
// ones to notify.
type InvitationResult struct {
	Attached       []uuid.UUID `json:"attached"`
	AlreadyInvited []uuid.UUID `json:"alreadyInvited"`
	NewlyReachable []uuid.UUID `json:"newlyReachable"`
}
