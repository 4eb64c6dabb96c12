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

func inviteOnly(in *ports.CreatePollInput) {
	in.Visibility = domain.VisibilityInviteOnly
}

func TestInvitationService_InviteUsersDiff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	u1, u2, u3 := uuid.New(), uuid.New(), uuid.New()
	poll := env.createPoll(t, owner, inviteOnly)

	first, err := env.invitations.InviteUsers(ctx, actor(owner), poll.ID, []uuid.UUID{u1, u2, u1})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{u1, u2}, first.Attached)
	assert.Empty(t, first.AlreadyInvited)
	assert.ElementsMatch(t, []uuid.UUID{u1, u2}, first.NewlyReachable)

	second, err := env.invitations.InviteUsers(ctx, actor(owner), poll.ID, []uuid.UUID{u2, u3})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{u3}, second.Attached)
	assert.Equal(t, []uuid.UUID{u2}, second.AlreadyInvited)
	assert.Equal(t, []uuid.UUID{u3}, second.NewlyReachable)

	calls := env.notifier.notified()
	require.Len(t, calls, 2)
	assert.Equal(t, []uuid.UUID{u3}, calls[1])
}

func TestInvitationService_DepartmentOverlapNotifiesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	dept := uuid.New()
	direct, member := uuid.New(), uuid.New()
	env.dir.AddDepartmentMember(dept, direct)
	env.dir.AddDepartmentMember(dept, member)
	poll := env.createPoll(t, owner, inviteOnly)

	_, err := env.invitations.InviteUsers(ctx, actor(owner), poll.ID, []uuid.UUID{direct})
	require.NoError(t, err)

	res, err := env.invitations.InviteDepartments(ctx, actor(owner), poll.ID, []uuid.UUID{dept})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{dept}, res.Attached)
	assert.Equal(t, []uuid.UUID{member}, res.NewlyReachable)

	again, err := env.invitations.InviteDepartments(ctx, actor(owner), poll.ID, []uuid.UUID{dept})
	require.NoError(t, err)
	assert.Empty(t, again.Attached)
	assert.Equal(t, []uuid.UUID{dept}, again.AlreadyInvited)
	assert.Empty(t, again.NewlyReachable)

	calls := env.notifier.notified()
	require.Len(t, calls, 2)
	assert.Equal(t, []uuid.UUID{member}, calls[1])

	// Reached through the department already, so the direct row adds no one.
	late, err := env.invitations.InviteUsers(ctx, actor(owner), poll.ID, []uuid.UUID{member})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{member}, late.Attached)
	assert.Empty(t, late.NewlyReachable)
}

func TestInvitationService_LiveDepartmentMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	dept := uuid.New()
	early, late := uuid.New(), uuid.New()
	env.dir.AddDepartmentMember(dept, early)
	poll := env.createPoll(t, owner, inviteOnly)

	_, err := env.invitations.InviteDepartments(ctx, actor(owner), poll.ID, []uuid.UUID{dept})
	require.NoError(t, err)

	env.dir.AddDepartmentMember(dept, late)
	in, err := env.invitations.InAudience(ctx, poll.ID, late)
	require.NoError(t, err)
	assert.True(t, in)

	env.dir.RemoveDepartmentMember(dept, early)
	in, err = env.invitations.InAudience(ctx, poll.ID, early)
	require.NoError(t, err)
	assert.False(t, in)

	decision, err := env.eligibility.CanVote(ctx, poll, early, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonNotInvited, decision.Reason)
}

func TestInvitationService_AudienceUnion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	dept := uuid.New()
	direct, member, principal, proxy := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	env.dir.AddDepartmentMember(dept, member)
	poll := env.createPoll(t, owner, inviteOnly)

	_, err := env.invitations.InviteUsers(ctx, actor(owner), poll.ID, []uuid.UUID{direct})
	require.NoError(t, err)
	_, err = env.invitations.InviteDepartments(ctx, actor(owner), poll.ID, []uuid.UUID{dept})
	require.NoError(t, err)
	_, err = env.proxies.Assign(ctx, ports.AssignProxyInput{Actor: actor(owner), PollID: poll.ID, PrincipalID: principal, ProxyID: proxy})
	require.NoError(t, err)

	audience, err := env.invitations.ResolveAudience(ctx, poll.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{direct, member, principal}, audience)

	listed, err := env.invitations.Audience(ctx, actor(owner), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, audience, listed)

	_, err = env.invitations.Audience(ctx, actor(direct), poll.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestInvitationService_RevokeAndAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	user := uuid.New()
	poll := env.createPoll(t, owner, inviteOnly)

	_, err := env.invitations.InviteUsers(ctx, actor(uuid.New()), poll.ID, []uuid.UUID{user})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = env.invitations.InviteUsers(ctx, actor(owner), poll.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.invitations.InviteUsers(ctx, actor(owner), poll.ID, []uuid.UUID{user})
	require.NoError(t, err)
	require.NoError(t, env.invitations.RevokeUserInvitation(ctx, actor(owner), poll.ID, user))

	in, err := env.invitations.InAudience(ctx, poll.ID, user)
	require.NoError(t, err)
	assert.False(t, in)
}

func TestInvitationService_NotifierFailureDoesNotFailInvite(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.fail = true
	owner := uuid.New()
	user := uuid.New()
	poll := env.createPoll(t, owner, inviteOnly)

	res, err := env.invitations.InviteUsers(context.Background(), actor(owner), poll.ID, []uuid.UUID{user})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{user}, res.NewlyReachable)
}
