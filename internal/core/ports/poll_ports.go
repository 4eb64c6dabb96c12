package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
)

type PollRepository interface {
	Save(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	GetAll(ctx context.Context) ([]*domain.Poll, error)
	List(ctx context.Context, orgID *uuid.UUID, limit, offset int) ([]*domain.Poll, error)
	// UpdateStatus persists status unless the poll is archived. It is
	// idempotent and safe to race.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PollStatus) error
	Archive(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type CreateOptionInput struct {
	Text     string
	Name     string
	Position string
	ImageURL string
}

type CreatePollInput struct {
	Actor       domain.Actor
	Title       string
	Description string
	Type        domain.PollType
	Visibility  domain.Visibility
	AccessMode  domain.AccessMode
	StartAt     *time.Time
	EndAt       *time.Time
	Options     []CreateOptionInput
}

type ListPollsInput struct {
	Actor domain.Actor
	Page  int
}

type PollService interface {
	Create(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	GetPoll(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Poll, error)
	ListPolls(ctx context.Context, input ListPollsInput) ([]*domain.Poll, error)
	Refresh(ctx context.Context, poll *domain.Poll) (domain.PollStatus, error)
	Archive(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}
