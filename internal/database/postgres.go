package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/central-university-dev/linktracker/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxInt32 = 1<<31 - 1

	connectTimeout     = 5 * time.Second
	slowQueryThreshold = 200 * time.Millisecond
)

type PostgresDB struct {
	Pool   *pgxpool.Pool
	Config *config.Config
	Logger *slog.Logger
}

func NewPostgresDB(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка при парсинге строки подключения к PostgreSQL: %w", err)
	}

	poolConfig.MaxConns = clampMaxConns(cfg.DatabaseMaxConn)
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout
	poolConfig.ConnConfig.Tracer = NewQueryTracer(logger, slowQueryThreshold)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании пула соединений PostgreSQL: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка при проверке соединения с PostgreSQL: %w", err)
	}

	logger.Info("Соединение с PostgreSQL успешно установлено", "maxConns", poolConfig.MaxConns)

	return &PostgresDB{
		Pool:   pool,
		Config: cfg,
		Logger: logger,
	}, nil
}

// clampMaxConns maps the configured limit onto pgxpool's int32. Zero keeps
// the pool default.
func clampMaxConns(limit int) int32 {
	switch {
	case limit <= 0:
		return 0
	case limit >= maxInt32:
		return maxInt32
	default:
		return int32(limit)
	}
}

func (db *PostgresDB) Close() error {
	if db.Pool != nil {
		db.Pool.Close()
		db.Logger.Info("Соединение с PostgreSQL закрыто")
	}

	return nil
}
