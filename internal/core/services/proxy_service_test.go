package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

func TestProxyService_Assign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	principal, proxy := uuid.New(), uuid.New()
	poll := env.createPoll(t, owner, nil)

	tests := []struct {
		name    string
		input   ports.AssignProxyInput
		wantErr error
	}{
		{"self proxy", ports.AssignProxyInput{Actor: actor(owner), PollID: poll.ID, PrincipalID: proxy, ProxyID: proxy}, domain.ErrInvalidInput},
		{"missing principal", ports.AssignProxyInput{Actor: actor(owner), PollID: poll.ID, ProxyID: proxy}, domain.ErrInvalidInput},
		{"not a manager", ports.AssignProxyInput{Actor: actor(uuid.New()), PollID: poll.ID, PrincipalID: principal, ProxyID: proxy}, domain.ErrUnauthorized},
		{"unknown poll", ports.AssignProxyInput{Actor: actor(owner), PollID: uuid.New(), PrincipalID: principal, ProxyID: proxy}, domain.ErrPollNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.proxies.Assign(ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	a, err := env.proxies.Assign(ctx, ports.AssignProxyInput{Actor: actor(owner), PollID: poll.ID, PrincipalID: principal, ProxyID: proxy})
	require.NoError(t, err)
	assert.Equal(t, principal, a.PrincipalID)

	_, err = env.proxies.Assign(ctx, ports.AssignProxyInput{Actor: actor(owner), PollID: poll.ID, PrincipalID: principal, ProxyID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrConflict)

	list, err := env.proxies.List(ctx, actor(owner), poll.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, env.proxies.Remove(ctx, actor(owner), poll.ID, principal))
	list, err = env.proxies.List(ctx, actor(owner), poll.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
