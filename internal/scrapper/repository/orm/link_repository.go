package orm

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/central-university-dev/linktracker/internal/common"
	"github.com/central-university-dev/linktracker/internal/database"
	customerrors "github.com/central-university-dev/linktracker/internal/domain/errors"
	"github.com/central-university-dev/linktracker/internal/domain/models"
	"github.com/central-university-dev/linktracker/pkg/txs"
)

type LinkRepository struct {
	db        *database.PostgresDB
	sq        sq.StatementBuilderType
	txManager *txs.TxManager
}

func NewLinkRepository(db *database.PostgresDB, txManager *txs.TxManager) *LinkRepository {
	return &LinkRepository{
		db:        db,
		sq:        sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		txManager: txManager,
	}
}

func (r *LinkRepository) Save(ctx context.Context, link *models.Link) error {
	if link.Type == "" {
		link.Type = common.NewLinkAnalyzer().AnalyzeLink(link.URL)
	}

	return r.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		querier := txs.GetQuerier(ctx, r.db.Pool)

		query, args, err := r.sq.Insert("links").
			Columns("url", "type", "last_seen").
			Values(link.URL, string(link.Type), nullableTime(link.LastSeen)).
			Suffix("ON CONFLICT (url) DO UPDATE SET type = EXCLUDED.type RETURNING id, created_at").
			ToSql()
		if err != nil {
			return &customerrors.ErrBuildSQLQuery{Operation: "сохранение ссылки", Cause: err}
		}

		if err := querier.QueryRow(ctx, query, args...).Scan(&link.ID, &link.CreatedAt); err != nil {
			return &customerrors.ErrSQLExecution{Operation: "сохранение ссылки", Cause: err}
		}

		for _, tag := range link.Tags {
			if err := r.attachTag(ctx, querier, link.ID, tag); err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *LinkRepository) attachTag(ctx context.Context, querier txs.Querier, linkID int64, tag string) error {
	query, args, err := r.sq.Insert("tags").
		Columns("name").
		Values(tag).
		Suffix("ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id").
		ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сохранение тега", Cause: err}
	}

	var tagID int64
	if err := querier.QueryRow(ctx, query, args...).Scan(&tagID); err != nil {
		return &customerrors.ErrSQLExecution{Operation: "сохранение тега", Cause: err}
	}

	query, args, err = r.sq.Insert("link_tags").
		Columns("link_id", "tag_id").
		Values(linkID, tagID).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "связывание тега", Cause: err}
	}

	if _, err := querier.Exec(ctx, query, args...); err != nil {
		return &customerrors.ErrSQLExecution{Operation: "связывание тега", Cause: err}
	}

	return nil
}

func (r *LinkRepository) AddSubscription(ctx context.Context, chatID, linkID int64, filters []string) error {
	return r.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		querier := txs.GetQuerier(ctx, r.db.Pool)

		query, args, err := r.sq.Insert("chat_links").
			Columns("chat_id", "link_id").
			Values(chatID, linkID).
			Suffix("ON CONFLICT DO NOTHING").
			ToSql()
		if err != nil {
			return &customerrors.ErrBuildSQLQuery{Operation: "добавление подписки", Cause: err}
		}

		if _, err := querier.Exec(ctx, query, args...); err != nil {
			return &customerrors.ErrSQLExecution{Operation: "добавление подписки", Cause: err}
		}

		query, args, err = r.sq.Delete("filters").
			Where(sq.Eq{"link_id": linkID, "chat_id": chatID}).
			ToSql()
		if err != nil {
			return &customerrors.ErrBuildSQLQuery{Operation: "удаление фильтров", Cause: err}
		}

		if _, err := querier.Exec(ctx, query, args...); err != nil {
			return &customerrors.ErrSQLExecution{Operation: "удаление фильтров", Cause: err}
		}

		if len(filters) == 0 {
			return nil
		}

		insert := r.sq.Insert("filters").Columns("link_id", "chat_id", "value")
		for _, filter := range filters {
			insert = insert.Values(linkID, chatID, filter)
		}

		query, args, err = insert.ToSql()
		if err != nil {
			return &customerrors.ErrBuildSQLQuery{Operation: "сохранение фильтров", Cause: err}
		}

		if _, err := querier.Exec(ctx, query, args...); err != nil {
			return &customerrors.ErrSQLExecution{Operation: "сохранение фильтров", Cause: err}
		}

		return nil
	})
}

func (r *LinkRepository) FindDue(ctx context.Context, limit, offset int) ([]*models.Link, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select(
		"l.id", "l.url", "l.type", "l.last_seen", "l.created_at",
		"COALESCE(array_agg(DISTINCT cl.chat_id) FILTER (WHERE cl.chat_id IS NOT NULL), '{}')",
		"COALESCE(array_agg(DISTINCT t.name) FILTER (WHERE t.name IS NOT NULL), '{}')",
	).
		From("links l").
		LeftJoin("chat_links cl ON cl.link_id = l.id").
		LeftJoin("link_tags lt ON lt.link_id = l.id").
		LeftJoin("tags t ON t.id = lt.tag_id").
		GroupBy("l.id").
		OrderBy("l.id ASC")

	if limit > 0 {
		selectQuery = selectQuery.Limit(uint64(limit))
	}

	if offset > 0 {
		selectQuery = selectQuery.Offset(uint64(offset))
	}

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск ссылок для проверки", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "запрос ссылок для проверки", Cause: err}
	}
	defer rows.Close()

	links := make([]*models.Link, 0)

	for rows.Next() {
		var (
			link     models.Link
			linkType string
			lastSeen *time.Time
		)

		err = rows.Scan(&link.ID, &link.URL, &linkType, &lastSeen, &link.CreatedAt, &link.Subscribers, &link.Tags)
		if err != nil {
			return nil, &customerrors.ErrSQLExecution{Operation: "сканирование ссылки", Cause: err}
		}

		link.Type = models.LinkType(linkType)
		if lastSeen != nil {
			link.LastSeen = *lastSeen
		}

		links = append(links, &link)
	}

	if err = rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка результатов", Cause: err}
	}

	return links, nil
}

func (r *LinkRepository) UpdateLastSeen(ctx context.Context, linkID int64, lastSeen time.Time) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	query, args, err := r.sq.Update("links").
		Set("last_seen", sq.Expr("GREATEST(last_seen, ?)", lastSeen)).
		Where(sq.Eq{"id": linkID}).
		ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "обновление last_seen", Cause: err}
	}

	tag, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "обновление last_seen", Cause: err}
	}

	if tag.RowsAffected() == 0 {
		return &customerrors.ErrLinkNotFound{URL: fmt.Sprintf("id=%d", linkID)}
	}

	return nil
}

func (r *LinkRepository) GetFilters(ctx context.Context, linkID, chatID int64) ([]models.FilterPredicate, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	query, args, err := r.sq.Select("value").
		From("filters").
		Where(sq.Eq{"link_id": linkID, "chat_id": chatID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "получение фильтров", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "получение фильтров", Cause: err}
	}
	defer rows.Close()

	var predicates []models.FilterPredicate

	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, &customerrors.ErrSQLExecution{Operation: "сканирование фильтра", Cause: err}
		}

		if predicate, ok := models.ParseFilter(value); ok {
			predicates = append(predicates, predicate)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка фильтров", Cause: err}
	}

	return predicates, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}
