package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

type voteKey struct {
	pollID  uuid.UUID
	voterID uuid.UUID
}

type memberKey struct {
	pollID uuid.UUID
	id     uuid.UUID
}

// Store keeps every table of the engine in process. Repositories are views
// over one Store and share its lock.
type Store struct {
	mu sync.RWMutex

	polls         map[uuid.UUID]*domain.Poll
	votes         map[voteKey]*domain.Vote
	credentials   map[string]*domain.PresenceCredential
	verifications map[voteKey]*domain.VerificationRecord
	userInvites   map[memberKey]domain.UserInvitation
	deptInvites   map[memberKey]domain.DepartmentInvitation
	proxies       map[voteKey]*domain.ProxyAssignment

	superAdmins map[uuid.UUID]bool
	orgAdmins   map[memberKey]bool
	departments map[uuid.UUID]map[uuid.UUID]struct{}
}

func NewStore() *Store {
	return &Store{
		polls:         make(map[uuid.UUID]*domain.Poll),
		votes:         make(map[voteKey]*domain.Vote),
		credentials:   make(map[string]*domain.PresenceCredential),
		verifications: make(map[voteKey]*domain.VerificationRecord),
		userInvites:   make(map[memberKey]domain.UserInvitation),
		deptInvites:   make(map[memberKey]domain.DepartmentInvitation),
		proxies:       make(map[voteKey]*domain.ProxyAssignment),
		superAdmins:   make(map[uuid.UUID]bool),
		orgAdmins:     make(map[memberKey]bool),
		departments:   make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

func (s *Store) Polls() ports.PollRepository                 { return pollRepository{s} }
func (s *Store) Votes() ports.VoteRepository                 { return voteRepository{s} }
func (s *Store) Credentials() ports.CredentialRepository     { return credentialRepository{s} }
func (s *Store) Verifications() ports.VerificationRepository { return verificationRepository{s} }
func (s *Store) Invitations() ports.InvitationRepository     { return invitationRepository{s} }
func (s *Store) Proxies() ports.ProxyRepository              { return proxyRepository{s} }
func (s *Store) Directory() *Directory                       { return &Directory{s} }

// Polls

type pollRepository struct{ s *Store }

func (r pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.polls[poll.ID] = clonePoll(poll)
	return nil
}

func (r pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	poll, ok := r.s.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return clonePoll(poll), nil
}

func (r pollRepository) GetAll(ctx context.Context) ([]*domain.Poll, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.sortedPolls(func(*domain.Poll) bool { return true }), nil
}

func (r pollRepository) List(ctx context.Context, orgID *uuid.UUID, limit, offset int) ([]*domain.Poll, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	polls := r.s.sortedPolls(func(p *domain.Poll) bool { return p.VisibleTo(orgID) })
	if offset >= len(polls) {
		return []*domain.Poll{}, nil
	}
	end := offset + limit
	if end > len(polls) {
		end = len(polls)
	}
	return polls[offset:end], nil
}

func (r pollRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PollStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	poll, ok := r.s.polls[id]
	if !ok {
		return domain.ErrPollNotFound
	}
	if poll.Status != domain.StatusArchived {
		poll.Status = status
	}
	return nil
}

func (r pollRepository) Archive(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	poll, ok := r.s.polls[id]
	if !ok {
		return domain.ErrPollNotFound
	}
	poll.Status = domain.StatusArchived
	return nil
}

func (r pollRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.polls[id]; !ok {
		return domain.ErrPollNotFound
	}
	delete(r.s.polls, id)
	for k := range r.s.votes {
		if k.pollID == id {
			delete(r.s.votes, k)
		}
	}
	for token, c := range r.s.credentials {
		if c.PollID == id {
			delete(r.s.credentials, token)
		}
	}
	for k := range r.s.verifications {
		if k.pollID == id {
			delete(r.s.verifications, k)
		}
	}
	for k := range r.s.userInvites {
		if k.pollID == id {
			delete(r.s.userInvites, k)
		}
	}
	for k := range r.s.deptInvites {
		if k.pollID == id {
			delete(r.s.deptInvites, k)
		}
	}
	for k := range r.s.proxies {
		if k.pollID == id {
			delete(r.s.proxies, k)
		}
	}
	return nil
}

func (s *Store) sortedPolls(keep func(*domain.Poll) bool) []*domain.Poll {
	polls := make([]*domain.Poll, 0, len(s.polls))
	for _, p := range s.polls {
		if !keep(p) {
			continue
		}
		polls = append(polls, clonePoll(p))
	}
	sort.Slice(polls, func(i, j int) bool {
		if polls[i].CreatedAt.Equal(polls[j].CreatedAt) {
			return bytes.Compare(polls[i].ID[:], polls[j].ID[:]) < 0
		}
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
	return polls
}

func clonePoll(p *domain.Poll) *domain.Poll {
	c := *p
	c.Options = append([]domain.PollOption(nil), p.Options...)
	return &c
}

// Votes

type voteRepository struct{ s *Store }

func (r voteRepository) SaveVote(ctx context.Context, vote *domain.Vote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	poll, ok := r.s.polls[vote.PollID]
	if !ok {
		return domain.ErrPollNotFound
	}
	if !poll.HasOption(vote.OptionID) {
		return domain.ErrOptionNotFound
	}

	key := voteKey{vote.PollID, vote.VoterID}
	if _, exists := r.s.votes[key]; exists {
		return domain.ErrAlreadyVoted
	}
	v := *vote
	r.s.votes[key] = &v
	return nil
}

func (r voteRepository) GetVote(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.votes[voteKey{pollID, voterID}]
	if !ok {
		return nil, nil
	}
	c := *v
	return &c, nil
}

// Presence credentials

type credentialRepository struct{ s *Store }

func (r credentialRepository) Issue(ctx context.Context, cred *domain.PresenceCredential) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.credentials[cred.Token]; exists {
		return domain.ErrConflict
	}
	for _, c := range r.s.credentials {
		if c.PollID == cred.PollID && issuedBefore(c, cred) && c.ExpiresAt.After(cred.IssuedAt) {
			c.ExpiresAt = cred.IssuedAt
		}
	}
	c := *cred
	r.s.credentials[cred.Token] = &c
	return nil
}

func (r credentialRepository) Active(ctx context.Context, pollID uuid.UUID, now time.Time) (*domain.PresenceCredential, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var newest *domain.PresenceCredential
	for _, c := range r.s.credentials {
		if c.PollID != pollID || c.Expired(now) {
			continue
		}
		if newest == nil || issuedBefore(newest, c) {
			newest = c
		}
	}
	if newest == nil {
		return nil, nil
	}
	c := *newest
	return &c, nil
}

func (r credentialRepository) GetByToken(ctx context.Context, token string) (*domain.PresenceCredential, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.credentials[token]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	cp := *c
	return &cp, nil
}

func (r credentialRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for token, c := range r.s.credentials {
		if c.ExpiresAt.Before(before) {
			delete(r.s.credentials, token)
			n++
		}
	}
	return n, nil
}

// issuedBefore orders credentials by (IssuedAt, ID).
func issuedBefore(a, b *domain.PresenceCredential) bool {
	if a.IssuedAt.Equal(b.IssuedAt) {
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	}
	return a.IssuedAt.Before(b.IssuedAt)
}

// Verification records

type verificationRepository struct{ s *Store }

func (r verificationRepository) Ensure(ctx context.Context, rec *domain.VerificationRecord) (*domain.VerificationRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := voteKey{rec.PollID, rec.UserID}
	if existing, ok := r.s.verifications[key]; ok {
		c := *existing
		return &c, nil
	}
	// Same contract as a transaction commit: nothing is written once the
	// context is done.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := *rec
	r.s.verifications[key] = &c
	out := c
	return &out, nil
}

func (r verificationRepository) Get(ctx context.Context, pollID, userID uuid.UUID) (*domain.VerificationRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.verifications[voteKey{pollID, userID}]
	if !ok {
		return nil, nil
	}
	c := *rec
	return &c, nil
}

// Invitations

type invitationRepository struct{ s *Store }

func (r invitationRepository) AttachUsers(ctx context.Context, pollID uuid.UUID, userIDs []uuid.UUID, invitedBy uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	attached := []uuid.UUID{}
	for _, id := range userIDs {
		key := memberKey{pollID, id}
		if _, ok := r.s.userInvites[key]; ok {
			continue
		}
		r.s.userInvites[key] = domain.UserInvitation{PollID: pollID, UserID: id, InvitedBy: invitedBy, InvitedAt: now}
		attached = append(attached, id)
	}
	return attached, nil
}

func (r invitationRepository) AttachDepartments(ctx context.Context, pollID uuid.UUID, deptIDs []uuid.UUID, invitedBy uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	attached := []uuid.UUID{}
	for _, id := range deptIDs {
		key := memberKey{pollID, id}
		if _, ok := r.s.deptInvites[key]; ok {
			continue
		}
		r.s.deptInvites[key] = domain.DepartmentInvitation{PollID: pollID, DepartmentID: id, InvitedBy: invitedBy, InvitedAt: now}
		attached = append(attached, id)
	}
	return attached, nil
}

func (r invitationRepository) ListUsers(ctx context.Context, pollID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ids []uuid.UUID
	for k := range r.s.userInvites {
		if k.pollID == pollID {
			ids = append(ids, k.id)
		}
	}
	return ids, nil
}

func (r invitationRepository) ListDepartments(ctx context.Context, pollID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ids []uuid.UUID
	for k := range r.s.deptInvites {
		if k.pollID == pollID {
			ids = append(ids, k.id)
		}
	}
	return ids, nil
}

func (r invitationRepository) RevokeUser(ctx context.Context, pollID, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.userInvites, memberKey{pollID, userID})
	return nil
}

func (r invitationRepository) RevokeDepartment(ctx context.Context, pollID, deptID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.deptInvites, memberKey{pollID, deptID})
	return nil
}

// Proxy assignments

type proxyRepository struct{ s *Store }

func (r proxyRepository) Save(ctx context.Context, a *domain.ProxyAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.polls[a.PollID]; !ok {
		return domain.ErrPollNotFound
	}
	key := voteKey{a.PollID, a.PrincipalID}
	if _, exists := r.s.proxies[key]; exists {
		return domain.ErrConflict
	}
	c := *a
	r.s.proxies[key] = &c
	return nil
}

func (r proxyRepository) Get(ctx context.Context, pollID, principalID uuid.UUID) (*domain.ProxyAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.proxies[voteKey{pollID, principalID}]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (r proxyRepository) List(ctx context.Context, pollID uuid.UUID) ([]*domain.ProxyAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.ProxyAssignment
	for k, a := range r.s.proxies {
		if k.pollID == pollID {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r proxyRepository) Delete(ctx context.Context, pollID, principalID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.proxies, voteKey{pollID, principalID})
	return nil
}
