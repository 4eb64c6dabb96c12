package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

// LogNotifier dispatches invitation notices to the structured log. A
// delivery channel (mail, push) plugs in behind the same port.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) ports.Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyInvited(ctx context.Context, poll *domain.Poll, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, id := range userIDs {
		n.logger.InfoContext(ctx, "poll invitation", "poll_id", poll.ID, "poll_title", poll.Title, "user_id", id)
	}
	return nil
}
