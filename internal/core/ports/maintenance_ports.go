package ports

import (
	"context"
	"time"
)

type MaintenanceService interface {
	RefreshStatuses(ctx context.Context) error
	PurgeExpiredCredentials(ctx context.Context, before time.Time) (int64, error)
}
