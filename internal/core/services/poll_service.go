package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

const pageSize = 10

type pollService struct {
	repo       ports.PollRepository
	authorizer ports.PresenceAuthorizer
	clock      ports.Clock
	logger     *slog.Logger
}

func NewPollService(repo ports.PollRepository, authorizer ports.PresenceAuthorizer, clock ports.Clock, logger *slog.Logger) ports.PollService {
	return &pollService{
		repo:       repo,
		authorizer: authorizer,
		clock:      clock,
		logger:     resolveLogger(logger),
	}
}

func (s *pollService) Create(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if input.StartAt != nil && input.EndAt != nil && input.EndAt.Before(*input.StartAt) {
		return nil, fmt.Errorf("%w: end_at must not be before start_at", domain.ErrInvalidInput)
	}

	if input.Type == "" {
		input.Type = domain.PollTypeOpen
	}
	if input.Type != domain.PollTypeOpen && input.Type != domain.PollTypeClosed {
		return nil, fmt.Errorf("%w: unknown poll type %q", domain.ErrInvalidInput, input.Type)
	}
	if input.Visibility == "" {
		input.Visibility = domain.VisibilityPublic
	}
	if input.Visibility != domain.VisibilityPublic && input.Visibility != domain.VisibilityInviteOnly {
		return nil, fmt.Errorf("%w: unknown visibility %q", domain.ErrInvalidInput, input.Visibility)
	}
	if input.AccessMode == "" {
		input.AccessMode = domain.AccessRemoteOnly
	}
	if !input.AccessMode.Valid() {
		return nil, fmt.Errorf("%w: unknown voting access mode %q", domain.ErrInvalidInput, input.AccessMode)
	}

	pollID := uuid.New()
	now := s.clock.Now()

	// Polls without a start bound open immediately; the rest wait for the
	// lifecycle resolver.
	status := domain.StatusActive
	if input.StartAt != nil {
		status = domain.StatusScheduled
	}

	poll := &domain.Poll{
		ID:             pollID,
		OrganizationID: input.Actor.OrganizationID,
		CreatedBy:      input.Actor.UserID,
		Title:          input.Title,
		Description:    input.Description,
		Type:           input.Type,
		Visibility:     input.Visibility,
		AccessMode:     input.AccessMode,
		Status:         status,
		StartAt:        input.StartAt,
		EndAt:          input.EndAt,
		CreatedAt:      now,
	}

	for _, opt := range input.Options {
		if strings.TrimSpace(opt.Text) == "" && strings.TrimSpace(opt.Name) == "" {
			continue
		}
		poll.Options = append(poll.Options, domain.PollOption{
			ID:        uuid.New(),
			PollID:    pollID,
			Order:     len(poll.Options) + 1,
			Text:      opt.Text,
			Name:      opt.Name,
			Position:  opt.Position,
			ImageURL:  opt.ImageURL,
			CreatedAt: now,
		})
	}

	if len(poll.Options) < 2 {
		return nil, fmt.Errorf("%w: at least two valid options are required", domain.ErrInvalidInput)
	}

	// Store the status as of creation so a poll created past its start
	// bound is not persisted stale.
	poll.Status = domain.EffectiveStatus(poll, now)

	if err := s.repo.Save(ctx, poll); err != nil {
		return nil, err
	}

	s.logger.Info("poll created", "poll_id", poll.ID, "access_mode", poll.AccessMode, "visibility", poll.Visibility)
	return poll, nil
}

func (s *pollService) GetPoll(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Poll, error) {
	poll, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !poll.VisibleTo(actor.OrganizationID) {
		return nil, domain.ErrPollNotFound
	}

	if _, err := s.Refresh(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

func (s *pollService) ListPolls(ctx context.Context, input ports.ListPollsInput) ([]*domain.Poll, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}

	polls, err := s.repo.List(ctx, input.Actor.OrganizationID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	for _, poll := range polls {
		if _, err := s.Refresh(ctx, poll); err != nil {
			return nil, err
		}
	}
	return polls, nil
}

// Refresh recomputes the effective status of poll, persists it when it
// differs from the stored one and updates poll in place. The stored status
// is only a cache; callers gating on status must use the returned value.
func (s *pollService) Refresh(ctx context.Context, poll *domain.Poll) (domain.PollStatus, error) {
	effective := domain.EffectiveStatus(poll, s.clock.Now())
	if effective == poll.Status {
		return effective, nil
	}

	if err := s.repo.UpdateStatus(ctx, poll.ID, effective); err != nil {
		return "", fmt.Errorf("failed to persist status transition: %w", err)
	}

	s.logger.Debug("poll status transitioned", "poll_id", poll.ID, "from", poll.Status, "to", effective)
	poll.Status = effective
	return effective, nil
}

func (s *pollService) Archive(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	poll, err := s.managedPoll(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.repo.Archive(ctx, poll.ID)
}

func (s *pollService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	poll, err := s.managedPoll(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, poll.ID); err != nil {
		return err
	}
	s.logger.Info("poll deleted", "poll_id", poll.ID, "by", actor.UserID)
	return nil
}

func (s *pollService) managedPoll(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Poll, error) {
	return loadManagedPoll(ctx, s.repo, s.authorizer, actor, id)
}

// loadManagedPoll fetches a poll the actor may administer. The capability
// check is the only way to reach a poll outside the actor's scope; callers
// without it see such polls as missing.
func loadManagedPoll(ctx context.Context, repo ports.PollRepository, authorizer ports.PresenceAuthorizer, actor domain.Actor, id uuid.UUID) (*domain.Poll, error) {
	poll, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := authorizer.CanManagePollPresence(ctx, poll, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check poll capability: %w", err)
	}
	if !ok {
		if !poll.VisibleTo(actor.OrganizationID) {
			return nil, domain.ErrPollNotFound
		}
		return nil, domain.ErrUnauthorized
	}
	return poll, nil
}

func loadVisiblePoll(ctx context.Context, repo ports.PollRepository, actor domain.Actor, id uuid.UUID) (*domain.Poll, error) {
	poll, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !poll.VisibleTo(actor.OrganizationID) {
		return nil, domain.ErrPollNotFound
	}
	return poll, nil
}
