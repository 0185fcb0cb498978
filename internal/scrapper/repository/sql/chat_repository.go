package sql

import (
	"context"
	"errors"
	"fmt"

	"github.com/central-university-dev/linktracker/internal/database"
	customerrors "github.com/central-university-dev/linktracker/internal/domain/errors"
	"github.com/central-university-dev/linktracker/internal/domain/models"
	"github.com/central-university-dev/linktracker/pkg/txs"
	"github.com/jackc/pgx/v5"
)

type ChatRepository struct {
	db *database.PostgresDB
}

func NewChatRepository(db *database.PostgresDB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Save upserts the chat delivery settings.
func (r *ChatRepository) Save(ctx context.Context, chat *models.Chat) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if chat.NotificationMode == "" {
		chat.NotificationMode = models.NotificationModeInstant
	}

	err := querier.QueryRow(ctx, `
		INSERT INTO chats (id, notification_mode, delivery_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
			SET notification_mode = EXCLUDED.notification_mode,
				delivery_time = EXCLUDED.delivery_time
		RETURNING created_at`,
		chat.ID, string(chat.NotificationMode), nullableString(chat.DeliveryTime),
	).Scan(&chat.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении чата: %w", err)
	}

	return nil
}

func (r *ChatRepository) FindByID(ctx context.Context, id int64) (*models.Chat, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	var (
		chat         models.Chat
		mode         string
		deliveryTime *string
	)

	err := querier.QueryRow(ctx,
		"SELECT id, notification_mode, delivery_time, created_at FROM chats WHERE id = $1", id,
	).Scan(&chat.ID, &mode, &deliveryTime, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrChatNotFound{ChatID: id}
		}

		return nil, fmt.Errorf("ошибка при поиске чата: %w", err)
	}

	chat.NotificationMode = models.NotificationMode(mode)
	if deliveryTime != nil {
		chat.DeliveryTime = *deliveryTime
	}

	return &chat, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
