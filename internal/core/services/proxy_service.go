package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

type proxyService struct {
	polls      ports.PollRepository
	proxies    ports.ProxyRepository
	authorizer ports.PresenceAuthorizer
	clock      ports.Clock
	logger     *slog.Logger
}

func NewProxyService(polls ports.PollRepository, proxies ports.ProxyRepository, authorizer ports.PresenceAuthorizer, clock ports.Clock, logger *slog.Logger) ports.ProxyService {
	return &proxyService{
		polls:      polls,
		proxies:    proxies,
		authorizer: authorizer,
		clock:      clock,
		logger:     resolveLogger(logger),
	}
}

func (s *proxyService) Assign(ctx context.Context, input ports.AssignProxyInput) (*domain.ProxyAssignment, error) {
	if input.PrincipalID == uuid.Nil || input.ProxyID == uuid.Nil {
		return nil, fmt.Errorf("%w: principal and proxy are required", domain.ErrInvalidInput)
	}
	if input.PrincipalID == input.ProxyID {
		return nil, fmt.Errorf("%w: a user cannot be their own proxy", domain.ErrInvalidInput)
	}

	poll, err := loadManagedPoll(ctx, s.polls, s.authorizer, input.Actor, input.PollID)
	if err != nil {
		return nil, err
	}

	assignment := &domain.ProxyAssignment{
		ID:          uuid.New(),
		PollID:      poll.ID,
		PrincipalID: input.PrincipalID,
		ProxyID:     input.ProxyID,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.proxies.Save(ctx, assignment); err != nil {
		return nil, err
	}

	s.logger.Info("proxy assigned", "poll_id", poll.ID, "principal_id", assignment.PrincipalID, "proxy_id", assignment.ProxyID)
	return assignment, nil
}

func (s *proxyService) Remove(ctx context.Context, actor domain.Actor, pollID, principalID uuid.UUID) error {
	poll, err := loadManagedPoll(ctx, s.polls, s.authorizer, actor, pollID)
	if err != nil {
		return err
	}
	return s.proxies.Delete(ctx, poll.ID, principalID)
}

func (s *proxyService) List(ctx context.Context, actor domain.Actor, pollID uuid.UUID) ([]*domain.ProxyAssignment, error) {
	poll, err := loadManagedPoll(ctx, s.polls, s.authorizer, actor, pollID)
	if err != nil {
		return nil, err
	}
	return s.proxies.List(ctx, poll.ID)
}
