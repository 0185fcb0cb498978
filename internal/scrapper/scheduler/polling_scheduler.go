package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"golang.org/x/sync/errgroup"

	"github.com/central-university-dev/linktracker/internal/common/metrics"
	"github.com/central-university-dev/linktracker/internal/domain/models"
)

type LinkProcessor interface {
	ProcessLink(ctx context.Context, link *models.Link) (bool, error)
}

type LinkSource interface {
	FindDue(ctx context.Context, limit, offset int) ([]*models.Link, error)
}

type Settings struct {
	Interval     time.Duration
	InitialDelay time.Duration
	BatchSize    int
	Workers      int
}

// PollingScheduler scans all tracked links on a fixed period. A run never
// starts while the previous one is still in progress.
type PollingScheduler struct {
	scheduler     *gocron.Scheduler
	linkProcessor LinkProcessor
	links         LinkSource
	logger        *slog.Logger
	settings      Settings
	running       atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewPollingScheduler(
	linkProcessor LinkProcessor,
	links LinkSource,
	settings Settings,
	logger *slog.Logger,
) *PollingScheduler {
	if settings.Workers <= 0 {
		settings.Workers = 4
	}

	if settings.BatchSize <= 0 {
		settings.BatchSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &PollingScheduler{
		scheduler:     gocron.NewScheduler(time.UTC),
		linkProcessor: linkProcessor,
		links:         links,
		logger:        logger,
		settings:      settings,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (s *PollingScheduler) Start() error {
	s.logger.Info("Запуск планировщика проверки ссылок",
		"interval", s.settings.Interval.String(),
		"initialDelay", s.settings.InitialDelay.String(),
		"workers", s.settings.Workers,
		"batchSize", s.settings.BatchSize,
	)

	_, err := s.scheduler.Every(s.settings.Interval).
		StartAt(time.Now().Add(s.settings.InitialDelay)).
		SingletonMode().
		Do(func() {
			s.RunOnce(s.ctx)
		})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()

	return nil
}

// Stop cancels the current run and waits for the scheduler to halt.
func (s *PollingScheduler) Stop() {
	s.logger.Info("Остановка планировщика проверки ссылок")
	s.cancel()
	s.scheduler.Stop()
}

// RunOnce performs a full scan unless one is already running. It reports
// whether the scan was performed.
func (s *PollingScheduler) RunOnce(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Предыдущая проверка ссылок еще не завершена, запуск пропущен")
		return false
	}
	defer s.running.Store(false)

	start := time.Now()
	s.logger.Info("Начало проверки ссылок")

	counts := newTypeCounter()
	offset := 0
	batchNum := 1

	for {
		links, err := s.links.FindDue(ctx, s.settings.BatchSize, offset)
		if err != nil {
			s.logger.Error("Ошибка при получении порции ссылок",
				"error", err,
				"offset", offset,
			)

			break
		}

		if len(links) == 0 {
			break
		}

		s.logger.Debug("Обработка батча",
			"batch", batchNum,
			"size", len(links),
			"offset", offset,
		)

		s.processBatch(ctx, links, batchNum, counts)

		offset += len(links)
		batchNum++

		if len(links) < s.settings.BatchSize {
			break
		}
	}

	counts.publish()

	s.logger.Info("Проверка ссылок завершена",
		"processed", offset,
		"updated", counts.updated.Load(),
		"failed", counts.failed.Load(),
		"duration", time.Since(start).String(),
	)

	return true
}

func (s *PollingScheduler) processBatch(ctx context.Context, batch []*models.Link, batchNum int, counts *typeCounter) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Workers)

	for _, link := range batch {
		g.Go(func() error {
			counts.scanned(link.Type)

			updated, err := s.linkProcessor.ProcessLink(gctx, link)
			if err != nil {
				counts.failed.Add(1)

				s.logger.Error("Ошибка при обработке ссылки",
					"batch", batchNum,
					"linkID", link.ID,
					"url", link.URL,
					"error", err,
				)

				return nil
			}

			if updated {
				counts.updated.Add(1)

				s.logger.Info("Ссылка обновлена",
					"batch", batchNum,
					"linkID", link.ID,
					"url", link.URL,
				)
			}

			return nil
		})
	}

	_ = g.Wait()
}

type typeCounter struct {
	mu      sync.Mutex
	byType  map[models.LinkType]int
	updated atomic.Int64
	failed  atomic.Int64
}

func newTypeCounter() *typeCounter {
	return &typeCounter{byType: make(map[models.LinkType]int)}
}

func (c *typeCounter) scanned(linkType models.LinkType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byType[linkType]++
}

func (c *typeCounter) publish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, linkType := range []models.LinkType{models.GitHub, models.StackOverflow} {
		metrics.UpdateScannedLinksCount(string(linkType), float64(c.byType[linkType]))
	}
}
