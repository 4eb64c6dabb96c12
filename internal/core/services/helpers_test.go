package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/presencepoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
	"github.com/vncsmyrnk/presencepoll/internal/core/services"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]uuid.UUID
	fail  bool
}

func (n *recordingNotifier) NotifyInvited(ctx context.Context, poll *domain.Poll, userIDs []uuid.UUID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, append([]uuid.UUID(nil), userIDs...))
	if n.fail {
		return errors.New("mail relay down")
	}
	return nil
}

func (n *recordingNotifier) notified() [][]uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

type testEnv struct {
	store       *memory.Store
	dir         *memory.Directory
	clock       *testClock
	notifier    *recordingNotifier
	polls       ports.PollService
	presence    ports.PresenceService
	eligibility ports.EligibilityResolver
	ledger      ports.VoteLedger
	votes       ports.VoteService
	invitations ports.InvitationService
	proxies     ports.ProxyService
	maintenance ports.MaintenanceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	dir := store.Directory()
	clock := newTestClock()
	notifier := &recordingNotifier{}

	polls := services.NewPollService(store.Polls(), dir, clock, nil)
	invitations := services.NewInvitationService(services.InvitationServiceConfig{
		Polls:       store.Polls(),
		Invitations: store.Invitations(),
		Proxies:     store.Proxies(),
		Directory:   dir,
		Authorizer:  dir,
		Notifier:    notifier,
	})
	eligibility := services.NewEligibilityService(invitations, store.Verifications(), store.Proxies(), clock)
	ledger := services.NewVoteLedger(store.Polls(), store.Votes(), clock)

	return &testEnv{
		store:       store,
		dir:         dir,
		clock:       clock,
		notifier:    notifier,
		polls:       polls,
		eligibility: eligibility,
		ledger:      ledger,
		invitations: invitations,
		votes:       services.NewVoteService(store.Polls(), store.Votes(), polls, eligibility, ledger, nil),
		presence: services.NewPresenceService(services.PresenceServiceConfig{
			Polls:         store.Polls(),
			Credentials:   store.Credentials(),
			Verifications: store.Verifications(),
			Authorizer:    dir,
			Eligibility:   eligibility,
			Clock:         clock,
		}),
		proxies:     services.NewProxyService(store.Polls(), store.Proxies(), dir, clock, nil),
		maintenance: services.NewMaintenanceService(store.Polls(), store.Credentials(), clock, nil),
	}
}

func (e *testEnv) createPoll(t *testing.T, owner uuid.UUID, customize func(*ports.CreatePollInput)) *domain.Poll {
	t.Helper()

	input := ports.CreatePollInput{
		Actor:       domain.Actor{UserID: owner},
		Title:       "Annual assembly",
		Description: "Approve the budget",
		Options: []ports.CreateOptionInput{
			{Text: "Yes"},
			{Text: "No"},
		},
	}
	if customize != nil {
		customize(&input)
	}

	poll, err := e.polls.Create(context.Background(), input)
	require.NoError(t, err)
	return poll
}

func actor(id uuid.UUID) domain.Actor {
	return domain.Actor{UserID: id}
}

func ptr[T any](v T) *T {
	return &v
}
