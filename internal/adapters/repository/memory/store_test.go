package memory_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/presencepoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
)

func savePoll(t *testing.T, store *memory.Store, owner uuid.UUID, orgID *uuid.UUID) *domain.Poll {
	t.Helper()

	poll := &domain.Poll{
		ID:             uuid.New(),
		OrganizationID: orgID,
		CreatedBy:      owner,
		Title:          "Budget",
		AccessMode:     domain.AccessHybrid,
		Status:         domain.StatusActive,
		CreatedAt:      time.Now().UTC(),
	}
	poll.Options = []domain.PollOption{{ID: uuid.New(), PollID: poll.ID, Text: "Yes"}, {ID: uuid.New(), PollID: poll.ID, Order: 1, Text: "No"}}
	require.NoError(t, store.Polls().Save(context.Background(), poll))
	return poll
}

func TestStore_PollsAreCopied(t *testing.T) {
	store := memory.NewStore()
	poll := savePoll(t, store, uuid.New(), nil)

	got, err := store.Polls().GetByID(context.Background(), poll.ID)
	require.NoError(t, err)
	got.Title = "changed"
	got.Options[0].Text = "changed"

	again, err := store.Polls().GetByID(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, "Budget", again.Title)
	assert.Equal(t, "Yes", again.Options[0].Text)
}

func TestStore_ListScopesByOrganization(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	orgA, orgB := uuid.New(), uuid.New()

	global := savePoll(t, store, uuid.New(), nil)
	inA := savePoll(t, store, uuid.New(), &orgA)
	savePoll(t, store, uuid.New(), &orgB)

	polls, err := store.Polls().List(ctx, &orgA, 10, 0)
	require.NoError(t, err)
	var ids []uuid.UUID
	for _, p := range polls {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{global.ID, inA.ID}, ids)

	unscoped, err := store.Polls().List(ctx, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, unscoped, 1)
	assert.Equal(t, global.ID, unscoped[0].ID)

	all, err := store.Polls().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	empty, err := store.Polls().List(ctx, &orgA, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_ConcurrentVotesAdmitOne(t *testing.T) {
	store := memory.NewStore()
	poll := savePoll(t, store, uuid.New(), nil)
	voter := uuid.New()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Votes().SaveVote(context.Background(), &domain.Vote{
				ID: uuid.New(), PollID: poll.ID, OptionID: poll.Options[0].ID, VoterID: voter, CastByID: voter,
			})
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
	}
	assert.Equal(t, 1, ok)

	err := store.Votes().SaveVote(context.Background(), &domain.Vote{
		ID: uuid.New(), PollID: poll.ID, OptionID: uuid.New(), VoterID: uuid.New(),
	})
	assert.ErrorIs(t, err, domain.ErrOptionNotFound)
}

func TestStore_CredentialRotation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	poll := savePoll(t, store, uuid.New(), nil)
	creds := store.Credentials()

	t0 := time.Now().UTC()
	first := &domain.PresenceCredential{ID: uuid.New(), PollID: poll.ID, Token: strings.Repeat("1", domain.TokenLength), IssuedAt: t0, ExpiresAt: t0.Add(30 * time.Second)}
	second := &domain.PresenceCredential{ID: uuid.New(), PollID: poll.ID, Token: strings.Repeat("2", domain.TokenLength), IssuedAt: t0.Add(time.Second), ExpiresAt: t0.Add(31 * time.Second)}
	require.NoError(t, creds.Issue(ctx, first))
	require.NoError(t, creds.Issue(ctx, second))
	assert.ErrorIs(t, creds.Issue(ctx, second), domain.ErrConflict)

	old, err := creds.GetByToken(ctx, first.Token)
	require.NoError(t, err)
	assert.True(t, old.ExpiresAt.Equal(second.IssuedAt))

	active, err := creds.Active(ctx, poll.ID, t0.Add(2*time.Second))
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)

	n, err := creds.PurgeExpired(ctx, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStore_EnsureKeepsFirstRecord(t *testing.T) {
	store := memory.NewStore()
	poll := savePoll(t, store, uuid.New(), nil)
	user := uuid.New()
	first := time.Now().UTC()

	rec, err := store.Verifications().Ensure(context.Background(), &domain.VerificationRecord{PollID: poll.ID, UserID: user, VerifiedAt: first})
	require.NoError(t, err)
	again, err := store.Verifications().Ensure(context.Background(), &domain.VerificationRecord{PollID: poll.ID, UserID: user, VerifiedAt: first.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, rec.VerifiedAt, again.VerifiedAt)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Verifications().Ensure(ctx, &domain.VerificationRecord{PollID: poll.ID, UserID: uuid.New(), VerifiedAt: first})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_DeleteCascades(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	poll := savePoll(t, store, uuid.New(), nil)
	voter := uuid.New()

	require.NoError(t, store.Votes().SaveVote(ctx, &domain.Vote{ID: uuid.New(), PollID: poll.ID, OptionID: poll.Options[1].ID, VoterID: voter}))
	_, err := store.Invitations().AttachUsers(ctx, poll.ID, []uuid.UUID{voter}, poll.CreatedBy)
	require.NoError(t, err)

	require.NoError(t, store.Polls().Delete(ctx, poll.ID))

	vote, err := store.Votes().GetVote(ctx, poll.ID, voter)
	require.NoError(t, err)
	assert.Nil(t, vote)
	invited, err := store.Invitations().ListUsers(ctx, poll.ID)
	require.NoError(t, err)
	assert.Empty(t, invited)
	assert.ErrorIs(t, store.Polls().Delete(ctx, poll.ID), domain.ErrPollNotFound)
}

func TestDirectory_Capabilities(t *testing.T) {
	store := memory.NewStore()
	dir := store.Directory()
	ctx := context.Background()

	orgID := uuid.New()
	owner, admin, super, member := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	poll := savePoll(t, store, owner, &orgID)
	dir.SetOrgAdmin(orgID, admin)
	dir.SetSuperAdmin(super)

	for _, tc := range []struct {
		user uuid.UUID
		want bool
	}{{owner, true}, {admin, true}, {super, true}, {member, false}} {
		ok, err := dir.CanManagePollPresence(ctx, poll, tc.user)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok)
	}

	dept := uuid.New()
	dir.AddDepartmentMember(dept, member)
	dir.AddDepartmentMember(dept, admin)
	dir.RemoveDepartmentMember(dept, admin)
	members, err := dir.MembersOf(ctx, []uuid.UUID{dept, dept})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{member}, members)
}
