package domain

import (
	"time"

	"github.com/google/uuid"
)

type VerificationType string

const (
	VerificationRemote    VerificationType = "remote"
	VerificationOnPremise VerificationType = "on_premise"
)

// Vote is immutable once stored. VoterID is the identity credited with the
// vote (the principal for proxy votes) and is unique per poll; CastByID is
// the user who submitted it.
type Vote struct {
	ID               uuid.UUID        `json:"id"`
	PollID           uuid.UUID        `json:"pollId"`
	OptionID         uuid.UUID        `json:"optionId"`
	VoterID          uuid.UUID        `json:"voterId"`
	CastByID         uuid.UUID        `json:"castById"`
	VerificationType VerificationType `json:"verificationType"`
	VoterIP          string           `json:"voterIp"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// ByProxy reports whether the vote was cast on behalf of someone else.
func (v *Vote) ByProxy() bool {
	return v.CastByID != v.VoterID
}

type ProxyAssignment struct {
	ID          uuid.UUID `json:"id"`
	PollID      uuid.UUID `json:"pollId"`
	PrincipalID uuid.UUID `json:"principalId"`
	ProxyID     uuid.UUID `json:"proxyId"`
	CreatedAt   time.Time `json:"createdAt"`
}
