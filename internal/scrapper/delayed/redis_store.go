package delayed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/central-university-dev/linktracker/internal/domain/models"
)

const keyPrefix = "delayed:updates:"

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisStore(
	ctx context.Context,
	addr, password string,
	db int,
	ttl time.Duration,
	logger *slog.Logger,
) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ошибка при подключении к Redis: %w", err)
	}

	logger.Info("Соединение с Redis для отложенных уведомлений установлено", "addr", addr)

	return NewRedisStoreWithClient(client, ttl, logger), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Append pushes the update to the bucket list and refreshes its TTL.
func (s *RedisStore) Append(ctx context.Context, bucket string, update *models.LinkUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации обновления для Redis: %w", err)
	}

	key := keyPrefix + bucket

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)

		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка при сохранении обновления в Redis: %w", err)
	}

	s.logger.Debug("Обновление добавлено в корзину", "bucket", bucket, "linkID", update.ID)

	return nil
}

// Drain reads and deletes the bucket inside MULTI/EXEC.
func (s *RedisStore) Drain(ctx context.Context, bucket string) ([]*models.LinkUpdate, error) {
	key := keyPrefix + bucket

	var values *redis.StringSliceCmd

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		values = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка при чтении корзины %s из Redis: %w", bucket, err)
	}

	raw := values.Val()
	updates := make([]*models.LinkUpdate, 0, len(raw))

	for _, item := range raw {
		var update models.LinkUpdate
		if err := json.Unmarshal([]byte(item), &update); err != nil {
			s.logger.Error("Поврежденное обновление в корзине пропущено",
				"bucket", bucket,
				"error", err,
			)

			continue
		}

		updates = append(updates, &update)
	}

	return updates, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
