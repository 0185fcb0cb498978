package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/central-university-dev/linktracker/internal/common/metrics"
	"github.com/central-university-dev/linktracker/internal/config"
	"github.com/central-university-dev/linktracker/internal/database"
	"github.com/central-university-dev/linktracker/internal/scrapper/clients"
	"github.com/central-university-dev/linktracker/internal/scrapper/delayed"
	"github.com/central-university-dev/linktracker/internal/scrapper/filter"
	"github.com/central-university-dev/linktracker/internal/scrapper/notify"
	"github.com/central-university-dev/linktracker/internal/scrapper/repository"
	"github.com/central-university-dev/linktracker/internal/scrapper/scheduler"
	"github.com/central-university-dev/linktracker/internal/scrapper/service"
	"github.com/central-university-dev/linktracker/pkg"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка запуска сервиса: %v\n", err)
		os.Exit(1)
	}
}

//nolint:funlen // Длина функции обусловлена последовательной инициализацией компонентов.
func run() error {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	appLogger := pkg.NewLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg, appLogger)
	if err != nil {
		return err
	}

	repoFactory := repository.NewFactory(db, cfg, appLogger)

	linkRepo, err := repoFactory.CreateLinkRepository()
	if err != nil {
		return closeOnError(err, db)
	}

	chatRepo, err := repoFactory.CreateChatRepository()
	if err != nil {
		return closeOnError(err, db)
	}

	registry := clients.NewDefaultRegistry(cfg, appLogger)
	recipients := filter.NewChain(linkRepo, appLogger)

	notifierFactory := notify.NewNotifierFactory(cfg, appLogger)

	botNotifier, err := notifierFactory.CreateNotifier()
	if err != nil {
		return closeOnError(err, db, notifierFactory)
	}

	var (
		delayedScheduler *delayed.DelayedSendingScheduler
		delayedSender    service.DelayedSender
	)

	if cfg.DelayedSendingEnabled {
		store, err := openDelayedStore(ctx, cfg, appLogger)
		if err != nil {
			return closeOnError(err, db, notifierFactory)
		}

		delayedScheduler = delayed.NewDelayedSendingScheduler(store, botNotifier, appLogger)
		if err := delayedScheduler.Start(); err != nil {
			return closeOnError(fmt.Errorf("ошибка запуска планировщика отложенной отправки: %w", err), db, notifierFactory, store)
		}

		delayedSender = delayedScheduler
	} else {
		appLogger.Info("Отложенная отправка отключена в конфигурации")
	}

	scrapperService := service.NewScrapperService(
		linkRepo,
		chatRepo,
		registry,
		recipients,
		botNotifier,
		delayedSender,
		appLogger,
	)

	pollingScheduler := scheduler.NewPollingScheduler(scrapperService, linkRepo, scheduler.Settings{
		Interval:     cfg.SchedulerCheckInterval,
		InitialDelay: cfg.SchedulerInitialDelay,
		BatchSize:    cfg.DatabaseBatchSize,
		Workers:      cfg.SchedulerWorkers,
	}, appLogger)

	if err := pollingScheduler.Start(); err != nil {
		return closeOnError(fmt.Errorf("ошибка запуска планировщика проверки ссылок: %w", err), db, notifierFactory)
	}

	metricsServer := metrics.NewMetricsServer(cfg.ScrapperMetricsPort, appLogger)

	go func() {
		if err := metricsServer.Start(ctx); err != nil {
			appLogger.Error("Сервер метрик остановлен с ошибкой", "error", err)
		}
	}()

	appLogger.Info("Скраппер запущен",
		"transport", cfg.MessageTransport,
		"fallbackEnabled", cfg.FallbackEnabled,
		"delayedSending", cfg.DelayedSendingEnabled,
	)

	<-ctx.Done()
	appLogger.Info("Получен сигнал завершения")

	return shutdown(appLogger, pollingScheduler, delayedScheduler, notifierFactory, db)
}

// shutdown stops producers before the transports and storage they use.
func shutdown(
	appLogger *slog.Logger,
	pollingScheduler *scheduler.PollingScheduler,
	delayedScheduler *delayed.DelayedSendingScheduler,
	notifierFactory *notify.NotifierFactory,
	db *database.PostgresDB,
) error {
	done := make(chan error, 1)

	go func() {
		pollingScheduler.Stop()

		var err error

		if delayedScheduler != nil {
			err = multierr.Append(err, delayedScheduler.Stop())
		}

		err = multierr.Append(err, notifierFactory.Close())

		if db != nil {
			err = multierr.Append(err, db.Close())
		}

		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			appLogger.Error("Ошибки при остановке сервиса", "error", err)
			return err
		}

		appLogger.Info("Сервис успешно остановлен")

		return nil
	case <-time.After(shutdownTimeout):
		return fmt.Errorf("остановка сервиса не завершилась за %s", shutdownTimeout)
	}
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*database.PostgresDB, error) {
	if cfg.DatabaseAccessType == config.MemoryAccess {
		logger.Warn("Используется in-memory хранилище, данные не сохраняются между запусками")
		return nil, nil
	}

	db, err := database.NewPostgresDB(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(); err != nil {
			return nil, closeOnError(err, db)
		}
	}

	return db, nil
}

func openDelayedStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (delayed.Store, error) {
	if cfg.DelayedStore == config.MemoryStore {
		logger.Warn("Отложенные уведомления хранятся в памяти процесса")
		return delayed.NewMemoryStore(), nil
	}

	return delayed.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB, cfg.RedisCacheTTL, logger)
}

type closer interface {
	Close() error
}

// closeOnError releases already opened resources and returns err with any
// close failures attached.
func closeOnError(err error, resources ...closer) error {
	for _, resource := range resources {
		switch r := resource.(type) {
		case *database.PostgresDB:
			if r == nil {
				continue
			}
		case nil:
			continue
		}

		err = multierr.Append(err, resource.Close())
	}

	return err
}
