package domain

import (
	"time"

	"github.com/google/uuid"
)

type PollType string

const (
	PollTypeOpen   PollType = "open"
	PollTypeClosed PollType = "closed"
)

type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityInviteOnly Visibility = "invite_only"
)

type AccessMode string

const (
	AccessRemoteOnly    AccessMode = "remote_only"
	AccessOnPremiseOnly AccessMode = "on_premise_only"
	AccessHybrid        AccessMode = "hybrid"
)

// UsesPresence reports whether the mode accepts QR presence verification.
func (m AccessMode) UsesPresence() bool {
	return m == AccessOnPremiseOnly || m == AccessHybrid
}

func (m AccessMode) Valid() bool {
	switch m {
	case AccessRemoteOnly, AccessOnPremiseOnly, AccessHybrid:
		return true
	}
	return false
}

type PollStatus string

const (
	StatusScheduled PollStatus = "scheduled"
	StatusActive    PollStatus = "active"
	StatusEnded     PollStatus = "ended"
	StatusArchived  PollStatus = "archived"
)

type Poll struct {
	ID             uuid.UUID    `json:"id"`
	OrganizationID *uuid.UUID   `json:"organizationId,omitempty"`
	CreatedBy      uuid.UUID    `json:"createdBy"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Type           PollType     `json:"type"`
	Visibility     Visibility   `json:"visibility"`
	AccessMode     AccessMode   `json:"votingAccessMode"`
	Status         PollStatus   `json:"status"`
	StartAt        *time.Time   `json:"startAt,omitempty"`
	EndAt          *time.Time   `json:"endAt,omitempty"`
	Options        []PollOption `json:"options"`
	CreatedAt      time.Time    `json:"createdAt"`
}

type PollOption struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"pollId"`
	Order     int       `json:"order"`
	Text      string    `json:"text"`
	Name      string    `json:"name,omitempty"`
	Position  string    `json:"position,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasOption reports whether optionID belongs to the poll.
func (p *Poll) HasOption(optionID uuid.UUID) bool {
	for _, opt := range p.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// VisibleTo reports whether a caller scoped to orgID may see the poll.
// Platform-wide polls are visible from every scope; an organization's polls
// only from that organization. A nil orgID is the platform scope.
func (p *Poll) VisibleTo(orgID *uuid.UUID) bool {
	if p.OrganizationID == nil {
		return true
	}
	return orgID != nil && *orgID == *p.OrganizationID
}

// EffectiveStatus resolves the lifecycle state of p as of now. Archived is
// terminal. The scheduled->active and active->ended rules are applied in
// sequence, so a poll past both bounds resolves to ended.
func EffectiveStatus(p *Poll, now time.Time) PollStatus {
	status := p.Status
	if status == StatusArchived {
		return status
	}
	if status == StatusScheduled && p.StartAt != nil && !now.Before(*p.StartAt) {
		status = StatusActive
	}
	if status == StatusActive && p.EndAt != nil && !now.Before(*p.EndAt) {
		status = StatusEnded
	}
	return status
}
