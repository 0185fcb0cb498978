package sql

import (
	"context"
	"fmt"
	"time"

	"github.com/central-university-dev/linktracker/internal/common"
	"github.com/central-university-dev/linktracker/internal/database"
	customerrors "github.com/central-university-dev/linktracker/internal/domain/errors"
	"github.com/central-university-dev/linktracker/internal/domain/models"
	"github.com/central-university-dev/linktracker/pkg/txs"
)

type LinkRepository struct {
	db        *database.PostgresDB
	txManager *txs.TxManager
}

func NewLinkRepository(db *database.PostgresDB, txManager *txs.TxManager) *LinkRepository {
	return &LinkRepository{
		db:        db,
		txManager: txManager,
	}
}

// Save inserts the link or refreshes the type of an existing one with the
// same URL. LastSeen of an existing link is left untouched.
func (r *LinkRepository) Save(ctx context.Context, link *models.Link) error {
	if link.Type == "" {
		link.Type = common.NewLinkAnalyzer().AnalyzeLink(link.URL)
	}

	return r.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		querier := txs.GetQuerier(ctx, r.db.Pool)

		err := querier.QueryRow(ctx, `
			INSERT INTO links (url, type, last_seen)
			VALUES ($1, $2, $3)
			ON CONFLICT (url) DO UPDATE SET type = EXCLUDED.type
			RETURNING id, created_at`,
			link.URL, string(link.Type), nullableTime(link.LastSeen),
		).Scan(&link.ID, &link.CreatedAt)
		if err != nil {
			return fmt.Errorf("ошибка при сохранении ссылки: %w", err)
		}

		for _, tag := range link.Tags {
			var tagID int64

			err := querier.QueryRow(ctx, `
				INSERT INTO tags (name) VALUES ($1)
				ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
				RETURNING id`, tag,
			).Scan(&tagID)
			if err != nil {
				return fmt.Errorf("ошибка при сохранении тега %s: %w", tag, err)
			}

			_, err = querier.Exec(ctx,
				"INSERT INTO link_tags (link_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
				link.ID, tagID)
			if err != nil {
				return fmt.Errorf("ошибка при связывании тега %s со ссылкой: %w", tag, err)
			}
		}

		return nil
	})
}

// AddSubscription links chatID to linkID and replaces the chat's filters for
// that link.
func (r *LinkRepository) AddSubscription(ctx context.Context, chatID, linkID int64, filters []string) error {
	return r.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		querier := txs.GetQuerier(ctx, r.db.Pool)

		_, err := querier.Exec(ctx,
			"INSERT INTO chat_links (chat_id, link_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			chatID, linkID)
		if err != nil {
			return fmt.Errorf("ошибка при добавлении подписки чата %d: %w", chatID, err)
		}

		_, err = querier.Exec(ctx, "DELETE FROM filters WHERE link_id = $1 AND chat_id = $2", linkID, chatID)
		if err != nil {
			return fmt.Errorf("ошибка при удалении фильтров: %w", err)
		}

		for _, filter := range filters {
			_, err = querier.Exec(ctx,
				"INSERT INTO filters (link_id, chat_id, value) VALUES ($1, $2, $3)",
				linkID, chatID, filter)
			if err != nil {
				return fmt.Errorf("ошибка при сохранении фильтра: %w", err)
			}
		}

		return nil
	})
}

// FindDue pages through tracked links ordered by id, so pages stay stable
// while LastSeen advances during a scan.
func (r *LinkRepository) FindDue(ctx context.Context, limit, offset int) ([]*models.Link, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx, `
		SELECT l.id, l.url, l.type, l.last_seen, l.created_at,
			COALESCE(array_agg(DISTINCT cl.chat_id) FILTER (WHERE cl.chat_id IS NOT NULL), '{}') AS subscribers,
			COALESCE(array_agg(DISTINCT t.name) FILTER (WHERE t.name IS NOT NULL), '{}') AS tags
		FROM links l
		LEFT JOIN chat_links cl ON cl.link_id = l.id
		LEFT JOIN link_tags lt ON lt.link_id = l.id
		LEFT JOIN tags t ON t.id = lt.tag_id
		GROUP BY l.id
		ORDER BY l.id
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе ссылок для проверки: %w", err)
	}
	defer rows.Close()

	links := make([]*models.Link, 0, limit)

	for rows.Next() {
		link := &models.Link{}

		var (
			linkType string
			lastSeen *time.Time
		)

		err := rows.Scan(&link.ID, &link.URL, &linkType, &lastSeen, &link.CreatedAt, &link.Subscribers, &link.Tags)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании ссылки: %w", err)
		}

		link.Type = models.LinkType(linkType)
		if lastSeen != nil {
			link.LastSeen = *lastSeen
		}

		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса ссылок: %w", err)
	}

	return links, nil
}

// UpdateLastSeen never moves last_seen backwards: GREATEST ignores NULL.
func (r *LinkRepository) UpdateLastSeen(ctx context.Context, linkID int64, lastSeen time.Time) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	tag, err := querier.Exec(ctx,
		"UPDATE links SET last_seen = GREATEST(last_seen, $2) WHERE id = $1",
		linkID, lastSeen)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении last_seen ссылки %d: %w", linkID, err)
	}

	if tag.RowsAffected() == 0 {
		return &customerrors.ErrLinkNotFound{URL: fmt.Sprintf("id=%d", linkID)}
	}

	return nil
}

func (r *LinkRepository) GetFilters(ctx context.Context, linkID, chatID int64) ([]models.FilterPredicate, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		"SELECT value FROM filters WHERE link_id = $1 AND chat_id = $2 ORDER BY id",
		linkID, chatID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении фильтров: %w", err)
	}
	defer rows.Close()

	var predicates []models.FilterPredicate

	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании фильтра: %w", err)
		}

		if predicate, ok := models.ParseFilter(value); ok {
			predicates = append(predicates, predicate)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке фильтров: %w", err)
	}

	return predicates, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}
