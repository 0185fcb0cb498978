package filter

import (
	"context"
	"log/slog"
	"strings"

	"github.com/central-university-dev/linktracker/internal/domain/models"
)

type FilterRepository interface {
	GetFilters(ctx context.Context, linkID, chatID int64) ([]models.FilterPredicate, error)
}

// PredicateFunc reports whether the change passes the predicate for a
// single recipient. It must not have side effects.
type PredicateFunc func(change *models.ChangeEvent, predicate models.FilterPredicate) bool

// Chain computes the recipients of a change. A chat receives the change only
// if every predicate stored for the (chat, link) pair passes.
type Chain struct {
	repo       FilterRepository
	predicates map[string]PredicateFunc
	logger     *slog.Logger
}

func NewChain(repo FilterRepository, logger *slog.Logger) *Chain {
	c := &Chain{
		repo:       repo,
		predicates: make(map[string]PredicateFunc),
		logger:     logger,
	}

	c.Register(models.FilterFieldUser, ExcludeAuthor)

	return c
}

// Register binds a predicate to a filter field, replacing any previous one.
func (c *Chain) Register(field string, fn PredicateFunc) {
	c.predicates[strings.ToLower(field)] = fn
}

func (c *Chain) Filter(ctx context.Context, change *models.ChangeEvent, link *models.Link) []int64 {
	recipients := make([]int64, 0, len(link.Subscribers))

	for _, chatID := range link.Subscribers {
		predicates, err := c.repo.GetFilters(ctx, link.ID, chatID)
		if err != nil {
			c.logger.Error("Ошибка при получении фильтров, чат пропущен",
				"linkID", link.ID,
				"chatID", chatID,
				"error", err,
			)

			continue
		}

		if c.passes(change, link, chatID, predicates) {
			recipients = append(recipients, chatID)
		}
	}

	return recipients
}

func (c *Chain) passes(change *models.ChangeEvent, link *models.Link, chatID int64, predicates []models.FilterPredicate) bool {
	for _, predicate := range predicates {
		fn, ok := c.predicates[predicate.Field]
		if !ok {
			c.logger.Debug("Неизвестный фильтр проигнорирован",
				"linkID", link.ID,
				"chatID", chatID,
				"filter", predicate.String(),
			)

			continue
		}

		if !fn(change, predicate) {
			return false
		}
	}

	return true
}

// ExcludeAuthor rejects changes made by the user named in the predicate.
func ExcludeAuthor(change *models.ChangeEvent, predicate models.FilterPredicate) bool {
	if change.Author == "" {
		return true
	}

	return !strings.EqualFold(change.Author, predicate.Value)
}
