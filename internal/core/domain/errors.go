package domain

import "errors"

var (
	ErrPollNotFound       = errors.New("poll not found")
	ErrInvalidPollID      = errors.New("invalid poll id")
	ErrOptionNotFound     = errors.New("option not found for this poll")
	ErrVoteNotFound       = errors.New("user did not vote on this poll")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("not allowed to manage this poll")
	ErrNotAuthorizedProxy = errors.New("user is not an authorized proxy for this principal")
	ErrUnsupportedMode    = errors.New("operation not supported by the poll's voting access mode")
	ErrInvalidToken       = errors.New("malformed presence token")
	ErrTokenNotFound      = errors.New("presence token not found")
	ErrTokenExpired       = errors.New("presence token expired")
	ErrPollNotActive      = errors.New("poll is not active")
	ErrNotInvited         = errors.New("user is not invited to this poll")
	ErrPresenceRequired   = errors.New("on-premise presence verification required")
	ErrAlreadyVoted       = errors.New("user has already voted")
	ErrConflict           = errors.New("concurrent write conflict")
)

// DenyReason is the stable code a caller renders for an expected business
// outcome.
type DenyReason string

const (
	ReasonNone               DenyReason = ""
	ReasonNotFound           DenyReason = "not_found"
	ReasonInvalidInput       DenyReason = "invalid_input"
	ReasonUnauthorized       DenyReason = "unauthorized"
	ReasonNotAuthorizedProxy DenyReason = "not_authorized_proxy"
	ReasonUnsupportedMode    DenyReason = "unsupported_mode"
	ReasonExpired            DenyReason = "expired"
	ReasonPollNotActive      DenyReason = "poll_not_active"
	ReasonNotInvited         DenyReason = "not_invited"
	ReasonPresenceRequired   DenyReason = "presence_required"
	ReasonAlreadyVoted       DenyReason = "already_voted"
	ReasonConflict           DenyReason = "conflict"
)

var reasonErrors = []struct {
	err    error
	reason DenyReason
}{
	{ErrPollNotFound, ReasonNotFound},
	{ErrOptionNotFound, ReasonNotFound},
	{ErrVoteNotFound, ReasonNotFound},
	{ErrTokenNotFound, ReasonNotFound},
	{ErrInvalidPollID, ReasonInvalidInput},
	{ErrInvalidInput, ReasonInvalidInput},
	{ErrInvalidToken, ReasonInvalidInput},
	{ErrUnauthorized, ReasonUnauthorized},
	{ErrNotAuthorizedProxy, ReasonNotAuthorizedProxy},
	{ErrUnsupportedMode, ReasonUnsupportedMode},
	{ErrTokenExpired, ReasonExpired},
	{ErrPollNotActive, ReasonPollNotActive},
	{ErrNotInvited, ReasonNotInvited},
	{ErrPresenceRequired, ReasonPresenceRequired},
	{ErrAlreadyVoted, ReasonAlreadyVoted},
	{ErrConflict, ReasonConflict},
}

// ReasonOf classifies err. It returns ReasonNone for infrastructure
// failures, which callers must treat as faults.
func ReasonOf(err error) DenyReason {
	for _, re := range reasonErrors {
		if errors.Is(err, re.err) {
			return re.reason
		}
	}
	return ReasonNone
}
