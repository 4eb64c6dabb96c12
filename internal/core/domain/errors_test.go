package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReasonOf(t *testing.T) {
	assert.Equal(t, ReasonAlreadyVoted, ReasonOf(fmt.Errorf("cast failed: %w", ErrAlreadyVoted)))
	assert.Equal(t, ReasonNotFound, ReasonOf(ErrTokenNotFound))
	assert.Equal(t, ReasonExpired, ReasonOf(ErrTokenExpired))
	assert.Equal(t, ReasonInvalidInput, ReasonOf(ErrInvalidToken))
	assert.Equal(t, ReasonNone, ReasonOf(errors.New("connection reset")))
	assert.Equal(t, ReasonNone, ReasonOf(nil))
}

func TestDeny(t *testing.T) {
	e := Deny(ErrNotInvited)
	assert.False(t, e.Allowed)
	assert.Equal(t, ReasonNotInvited, e.Reason)
	assert.ErrorIs(t, e.Err, ErrNotInvited)

	a := Allow(VerificationRemote)
	assert.True(t, a.Allowed)
	assert.Equal(t, ReasonNone, a.Reason)
}
