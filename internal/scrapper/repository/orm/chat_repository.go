package orm

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/central-university-dev/linktracker/internal/database"
	customerrors "github.com/central-university-dev/linktracker/internal/domain/errors"
	"github.com/central-university-dev/linktracker/internal/domain/models"
	"github.com/central-university-dev/linktracker/pkg/txs"
	"github.com/jackc/pgx/v5"
)

type ChatRepository struct {
	db *database.PostgresDB
	sq sq.StatementBuilderType
}

func NewChatRepository(db *database.PostgresDB) *ChatRepository {
	return &ChatRepository{
		db: db,
		sq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *ChatRepository) Save(ctx context.Context, chat *models.Chat) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if chat.NotificationMode == "" {
		chat.NotificationMode = models.NotificationModeInstant
	}

	var deliveryTime *string
	if chat.DeliveryTime != "" {
		deliveryTime = &chat.DeliveryTime
	}

	query, args, err := r.sq.Insert("chats").
		Columns("id", "notification_mode", "delivery_time").
		Values(chat.ID, string(chat.NotificationMode), deliveryTime).
		Suffix(`ON CONFLICT (id) DO UPDATE
			SET notification_mode = EXCLUDED.notification_mode, delivery_time = EXCLUDED.delivery_time
			RETURNING created_at`).
		ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сохранение чата", Cause: err}
	}

	if err := querier.QueryRow(ctx, query, args...).Scan(&chat.CreatedAt); err != nil {
		return &customerrors.ErrSQLExecution{Operation: "сохранение чата", Cause: err}
	}

	return nil
}

func (r *ChatRepository) FindByID(ctx context.Context, id int64) (*models.Chat, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	query, args, err := r.sq.Select("id", "notification_mode", "delivery_time", "created_at").
		From("chats").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск чата", Cause: err}
	}

	var (
		chat         models.Chat
		mode         string
		deliveryTime *string
	)

	err = querier.QueryRow(ctx, query, args...).Scan(&chat.ID, &mode, &deliveryTime, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrChatNotFound{ChatID: id}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск чата", Cause: err}
	}

	chat.NotificationMode = models.NotificationMode(mode)
	if deliveryTime != nil {
		chat.DeliveryTime = *deliveryTime
	}

	return &chat, nil
}
