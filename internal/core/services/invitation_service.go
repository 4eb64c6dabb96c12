package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

type invitationService struct {
	polls       ports.PollRepository
	invitations ports.InvitationRepository
	proxies     ports.ProxyRepository
	directory   ports.DepartmentDirectory
	authorizer  ports.PresenceAuthorizer
	notifier    ports.Notifier
	logger      *slog.Logger
}

type InvitationServiceConfig struct {
	Polls       ports.PollRepository
	Invitations ports.InvitationRepository
	Proxies     ports.ProxyRepository
	Directory   ports.DepartmentDirectory
	Authorizer  ports.PresenceAuthorizer
	Notifier    ports.Notifier
	Logger      *slog.Logger
}

func NewInvitationService(cfg InvitationServiceConfig) ports.InvitationService {
	return &invitationService{
		polls:       cfg.Polls,
		invitations: cfg.Invitations,
		proxies:     cfg.Proxies,
		directory:   cfg.Directory,
		authorizer:  cfg.Authorizer,
		notifier:    cfg.Notifier,
		logger:      resolveLogger(cfg.Logger),
	}
}

func (s *invitationService) InviteUsers(ctx context.Context, actor domain.Actor, pollID uuid.UUID, userIDs []uuid.UUID) (*domain.InvitationResult, error) {
	poll, err := loadManagedPoll(ctx, s.polls, s.authorizer, actor, pollID)
	if err != nil {
		return nil, err
	}

	requested := dedupe(userIDs)
	if len(requested) == 0 {
		return nil, fmt.Errorf("%w: no user ids given", domain.ErrInvalidInput)
	}

	before, err := s.audienceSet(ctx, poll.ID)
	if err != nil {
		return nil, err
	}

	attached, err := s.invitations.AttachUsers(ctx, poll.ID, requested, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to attach user invitations: %w", err)
	}

	var reachable []uuid.UUID
	for _, id := range attached {
		if _, ok := before[id]; !ok {
			reachable = append(reachable, id)
		}
	}

	result := &domain.InvitationResult{
		Attached:       sortIDs(attached),
		AlreadyInvited: sortIDs(difference(requested, attached)),
		NewlyReachable: sortIDs(reachable),
	}
	s.notify(ctx, poll, result)
	return result, nil
}

func (s *invitationService) InviteDepartments(ctx context.Context, actor domain.Actor, pollID uuid.UUID, deptIDs []uuid.UUID) (*domain.InvitationResult, error) {
	poll, err := loadManagedPoll(ctx, s.polls, s.authorizer, actor, pollID)
	if err != nil {
		return nil, err
	}

	requested := dedupe(deptIDs)
	if len(requested) == 0 {
		return nil, fmt.Errorf("%w: no department ids given", domain.ErrInvalidInput)
	}

	before, err := s.audienceSet(ctx, poll.ID)
	if err != nil {
		return nil, err
	}

	attached, err := s.invitations.AttachDepartments(ctx, poll.ID, requested, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to attach department invitations: %w", err)
	}

	var reachable []uuid.UUID
	if len(attached) > 0 {
		after, err := s.audienceSet(ctx, poll.ID)
		if err != nil {
			return nil, err
		}
		for id := range after {
			if _, ok := before[id]; !ok {
				reachable = append(reachable, id)
			}
		}
	}

	result := &domain.InvitationResult{
		Attached:       sortIDs(attached),
		AlreadyInvited: sortIDs(difference(requested, attached)),
		NewlyReachable: sortIDs(reachable),
	}
	s.notify(ctx, poll, result)
	return result, nil
}

// ResolveAudience unions direct invitations, the current members of every
// invited department and the principals registered for proxy voting. It is
// recomputed on every call.
func (s *invitationService) ResolveAudience(ctx context.Context, pollID uuid.UUID) ([]uuid.UUID, error) {
	set, err := s.audienceSet(ctx, pollID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return sortIDs(ids), nil
}

func (s *invitationService) Audience(ctx context.Context, actor domain.Actor, pollID uuid.UUID) ([]uuid.UUID, error) {
	poll, err := loadManagedPoll(ctx, s.polls, s.authorizer, actor, pollID)
	if err != nil {
		return nil, err
	}
	return s.ResolveAudience(ctx, poll.ID)
}

func (s *invitationService) InAudience(ctx context.Context, pollID, userID uuid.UUID) (bool, error) {
	set, err := s.audienceSet(ctx, pollID)
	if err != nil {
		return false, err
	}
	_, ok := set[userID]
	return ok, nil
}

func (s *invitationService) RevokeUserInvitation(ctx context.Context, actor domain.Actor, pollID, userID uuid.UUID) error {
	poll, err := loadManagedPoll(ctx, s.polls, s.authorizer, actor, pollID)
	if err != nil {
		return err
	}
	return s.invitations.RevokeUser(ctx, poll.ID, userID)
}

func (s *invitationService) RevokeDepartmentInvitation(ctx context.Context, actor domain.Actor, pollID, deptID uuid.UUID) error {
	poll, err := loadManagedPoll(ctx, s.polls, s.authorizer, actor, pollID)
	if err != nil {
		return err
	}
	return s.invitations.RevokeDepartment(ctx, poll.ID, deptID)
}

func (s *invitationService) audienceSet(ctx context.Context, pollID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	set := make(map[uuid.UUID]struct{})

	users, err := s.invitations.ListUsers(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user invitations: %w", err)
	}
	for _, id := range users {
		set[id] = struct{}{}
	}

	depts, err := s.invitations.ListDepartments(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list department invitations: %w", err)
	}
	if len(depts) > 0 {
		members, err := s.directory.MembersOf(ctx, depts)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve department members: %w", err)
		}
		for _, id := range members {
			set[id] = struct{}{}
		}
	}

	assignments, err := s.proxies.List(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proxy assignments: %w", err)
	}
	for _, a := range assignments {
		set[a.PrincipalID] = struct{}{}
	}

	return set, nil
}

// notify hands the newly reachable users to the dispatcher. The invitation
// rows are already committed, so a dispatch failure is logged, not returned.
func (s *invitationService) notify(ctx context.Context, poll *domain.Poll, result *domain.InvitationResult) {
	s.logger.Info("invitations attached",
		"poll_id", poll.ID,
		"attached", len(result.Attached),
		"already_invited", len(result.AlreadyInvited),
		"newly_reachable", len(result.NewlyReachable),
	)
	if len(result.NewlyReachable) == 0 || s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyInvited(ctx, poll, result.NewlyReachable); err != nil {
		s.logger.Error("failed to dispatch invitation notifications", "poll_id", poll.ID, "error", err)
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func difference(all, remove []uuid.UUID) []uuid.UUID {
	drop := make(map[uuid.UUID]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}
	out := []uuid.UUID{}
	for _, id := range all {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func sortIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}
