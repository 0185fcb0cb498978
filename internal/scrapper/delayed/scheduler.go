package delayed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/central-university-dev/linktracker/internal/common/metrics"
	"github.com/central-university-dev/linktracker/internal/domain/models"
)

const (
	actionDeferred = "deferred"
	actionFlushed  = "flushed"
	actionFailed   = "failed"

	// maxCatchUp bounds how many skipped minutes a late tick drains.
	maxCatchUp = 60
)

type BotNotifier interface {
	SendUpdate(ctx context.Context, update *models.LinkUpdate) error
}

// DelayedSendingScheduler buffers updates for chats in delayed mode and
// forwards them once a minute, when their HH:mm bucket comes due. Buckets
// are keyed in UTC.
type DelayedSendingScheduler struct {
	scheduler *gocron.Scheduler
	store     Store
	sender    BotNotifier
	logger    *slog.Logger

	mu        sync.Mutex
	lastFlush time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func NewDelayedSendingScheduler(store Store, sender BotNotifier, logger *slog.Logger) *DelayedSendingScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &DelayedSendingScheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     store,
		sender:    sender,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Defer appends update to the bucket for deliveryTime.
func (s *DelayedSendingScheduler) Defer(ctx context.Context, deliveryTime string, update *models.LinkUpdate) error {
	bucket, err := models.ParseDeliveryTime(deliveryTime)
	if err != nil {
		return err
	}

	if err := s.store.Append(ctx, bucket, update); err != nil {
		return err
	}

	metrics.RecordDeferredMessages(actionDeferred, 1)

	return nil
}

func (s *DelayedSendingScheduler) Start() error {
	now := time.Now().UTC()

	s.mu.Lock()
	s.lastFlush = now.Truncate(time.Minute).Add(-time.Minute)
	s.mu.Unlock()

	_, err := s.scheduler.Every(1).Minute().
		StartAt(now.Truncate(time.Minute).Add(time.Minute)).
		SingletonMode().
		Do(func() {
			s.Flush(s.ctx, time.Now())
		})
	if err != nil {
		return err
	}

	s.logger.Info("Запуск планировщика отложенной отправки")
	s.scheduler.StartAsync()

	return nil
}

// Flush drains every bucket from the one after the previous flush up to the
// bucket of now, so a late tick does not leave a minute behind. It returns
// the number of forwarded updates.
func (s *DelayedSendingScheduler) Flush(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := now.UTC().Truncate(time.Minute)

	from := current
	if !s.lastFlush.IsZero() && s.lastFlush.Before(current) {
		from = s.lastFlush.Add(time.Minute)
		if current.Sub(from) >= maxCatchUp*time.Minute {
			from = current.Add(-(maxCatchUp - 1) * time.Minute)
		}
	}

	sent := 0

	for minute := from; !minute.After(current); minute = minute.Add(time.Minute) {
		sent += s.flushBucket(ctx, models.BucketKey(minute))
	}

	if current.After(s.lastFlush) {
		s.lastFlush = current
	}

	return sent
}

func (s *DelayedSendingScheduler) flushBucket(ctx context.Context, bucket string) int {
	updates, err := s.store.Drain(ctx, bucket)
	if err != nil {
		s.logger.Error("Ошибка при чтении отложенных уведомлений", "bucket", bucket, "error", err)
		return 0
	}

	if len(updates) == 0 {
		return 0
	}

	s.logger.Info("Отправка отложенных уведомлений", "bucket", bucket, "count", len(updates))

	sent := 0

	for _, update := range updates {
		if err := s.sender.SendUpdate(ctx, update); err != nil {
			metrics.RecordDeferredMessages(actionFailed, 1)

			s.logger.Error("Ошибка при отправке отложенного уведомления",
				"bucket", bucket,
				"linkID", update.ID,
				"error", err,
			)

			continue
		}

		sent++
	}

	metrics.RecordDeferredMessages(actionFlushed, sent)

	return sent
}

func (s *DelayedSendingScheduler) Stop() error {
	s.logger.Info("Остановка планировщика отложенной отправки")
	s.cancel()
	s.scheduler.Stop()

	if err := s.store.Close(); err != nil {
		return fmt.Errorf("ошибка при закрытии хранилища отложенных уведомлений: %w", err)
	}

	return nil
}
