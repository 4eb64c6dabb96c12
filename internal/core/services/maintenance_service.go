package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

type maintenanceService struct {
	pollRepo    ports.PollRepository
	credentials ports.CredentialRepository
	clock       ports.Clock
	logger      *slog.Logger
}

func NewMaintenanceService(pollRepo ports.PollRepository, credentials ports.CredentialRepository, clock ports.Clock, logger *slog.Logger) ports.MaintenanceService {
	return &maintenanceService{
		pollRepo:    pollRepo,
		credentials: credentials,
		clock:       clock,
		logger:      resolveLogger(logger),
	}
}

// RefreshStatuses persists pending lifecycle transitions for every poll.
// Request paths re-derive status on their own; this only keeps the stored
// value fresh for listings.
func (s *maintenanceService) RefreshStatuses(ctx context.Context) error {
	polls, err := s.pollRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch all polls: %w", err)
	}

	now := s.clock.Now()

	var wg sync.WaitGroup
	errChan := make(chan error, len(polls))

	for _, poll := range polls {
		effective := domain.EffectiveStatus(poll, now)
		if effective == poll.Status {
			continue
		}

		wg.Add(1)
		go func(pID uuid.UUID, status domain.PollStatus) {
			defer wg.Done()
			if err := s.pollRepo.UpdateStatus(ctx, pID, status); err != nil {
				errChan <- fmt.Errorf("failed to refresh poll %s: %w", pID, err)
				return
			}
			s.logger.Info("poll status refreshed", "poll_id", pID, "status", status)
		}(poll.ID, effective)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *maintenanceService) PurgeExpiredCredentials(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.credentials.PurgeExpired(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge presence credentials: %w", err)
	}
	s.logger.Info("expired presence credentials purged", "count", n, "before", before)
	return n, nil
}
