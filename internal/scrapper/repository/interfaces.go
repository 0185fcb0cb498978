package repository

import (
	"context"
	"time"

	"github.com/central-university-dev/linktracker/internal/domain/models"
)

// LinkRepository is the tracked-link read model. It also serves per-chat
// filters, so one value satisfies filter.FilterRepository.
type LinkRepository interface {
	Save(ctx context.Context, link *models.Link) error
	AddSubscription(ctx context.Context, chatID, linkID int64, filters []string) error
	FindDue(ctx context.Context, limit, offset int) ([]*models.Link, error)
	UpdateLastSeen(ctx context.Context, linkID int64, lastSeen time.Time) error
	GetFilters(ctx context.Context, linkID, chatID int64) ([]models.FilterPredicate, error)
}

type ChatRepository interface {
	Save(ctx context.Context, chat *models.Chat) error
	FindByID(ctx context.Context, id int64) (*models.Chat, error)
}
