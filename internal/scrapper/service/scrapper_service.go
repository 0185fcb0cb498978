package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/central-university-dev/linktracker/internal/domain/models"
	"github.com/central-university-dev/linktracker/internal/scrapper/clients"
)

type LinkRepository interface {
	UpdateLastSeen(ctx context.Context, linkID int64, lastSeen time.Time) error
}

type ChatRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Chat, error)
}

type ClientSelector interface {
	Select(url string) (clients.ResourceClient, error)
}

type RecipientFilter interface {
	Filter(ctx context.Context, change *models.ChangeEvent, link *models.Link) []int64
}

type BotNotifier interface {
	SendUpdate(ctx context.Context, update *models.LinkUpdate) error
}

// DelayedSender buffers an update until the HH:mm delivery bucket is due.
type DelayedSender interface {
	Defer(ctx context.Context, deliveryTime string, update *models.LinkUpdate) error
}

// ScrapperService runs one link through detection, filtering and delivery.
type ScrapperService struct {
	linkRepo    LinkRepository
	chatRepo    ChatRepository
	selector    ClientSelector
	filter      RecipientFilter
	botNotifier BotNotifier
	delayed     DelayedSender
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewScrapperService wires the pipeline. delayed may be nil, then every chat
// is notified instantly.
func NewScrapperService(
	linkRepo LinkRepository,
	chatRepo ChatRepository,
	selector ClientSelector,
	filter RecipientFilter,
	botNotifier BotNotifier,
	delayed DelayedSender,
	logger *slog.Logger,
) *ScrapperService {
	return &ScrapperService{
		linkRepo:    linkRepo,
		chatRepo:    chatRepo,
		selector:    selector,
		filter:      filter,
		botNotifier: botNotifier,
		delayed:     delayed,
		logger:      logger,
		tracer:      otel.Tracer("linktracker/scrapper"),
	}
}

// ProcessLink reports whether a change was detected. The new LastSeen is
// persisted before any notification goes out, so a failed write never leads
// to a notification that will be repeated next cycle.
func (s *ScrapperService) ProcessLink(ctx context.Context, link *models.Link) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "scrapper.ProcessLink", trace.WithAttributes(
		attribute.Int64("link.id", link.ID),
		attribute.String("link.url", link.URL),
	))
	defer span.End()

	updated, err := s.processLink(ctx, link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.SetAttributes(attribute.Bool("link.updated", updated))

	return updated, err
}

func (s *ScrapperService) processLink(ctx context.Context, link *models.Link) (bool, error) {
	client, err := s.selector.Select(link.URL)
	if err != nil {
		return false, err
	}

	previous := link.LastSeen

	changes, err := client.FetchChanges(ctx, link)
	if err != nil {
		return false, fmt.Errorf("ошибка при получении изменений %s: %w", client.Name(), err)
	}

	if len(changes) == 0 {
		s.logger.Debug("Изменений не обнаружено", "linkID", link.ID, "url", link.URL)
		return false, nil
	}

	if err := s.linkRepo.UpdateLastSeen(ctx, link.ID, link.LastSeen); err != nil {
		link.LastSeen = previous
		return false, fmt.Errorf("ошибка при сохранении времени последнего изменения: %w", err)
	}

	for i := range changes {
		s.deliver(ctx, &changes[i], link)
	}

	return true, nil
}

func (s *ScrapperService) deliver(ctx context.Context, change *models.ChangeEvent, link *models.Link) {
	recipients := s.filter.Filter(ctx, change, link)
	if len(recipients) == 0 {
		s.logger.Info("Нет получателей для обновления после фильтрации",
			"linkID", link.ID,
			"url", link.URL,
		)

		return
	}

	update := models.NewLinkUpdate(change, recipients)

	instant, delayed := s.splitByMode(ctx, recipients)

	if len(instant) > 0 {
		s.sendInstant(ctx, update.WithChats(instant))
	}

	for _, deliveryTime := range sortedKeys(delayed) {
		batch := update.WithChats(delayed[deliveryTime])

		if err := s.delayed.Defer(ctx, deliveryTime, batch); err != nil {
			s.logger.Error("Не удалось отложить уведомление, отправляем сразу",
				"linkID", link.ID,
				"deliveryTime", deliveryTime,
				"error", err,
			)

			s.sendInstant(ctx, batch)

			continue
		}

		s.logger.Info("Уведомление отложено",
			"linkID", link.ID,
			"deliveryTime", deliveryTime,
			"chats", len(batch.TgChatIDs),
		)
	}
}

func (s *ScrapperService) sendInstant(ctx context.Context, update *models.LinkUpdate) {
	if err := s.botNotifier.SendUpdate(ctx, update); err != nil {
		s.logger.Error("Ошибка при отправке уведомления",
			"linkID", update.ID,
			"url", update.URL,
			"error", err,
		)

		return
	}

	s.logger.Info("Уведомление об обновлении отправлено",
		"linkID", update.ID,
		"url", update.URL,
		"chats", len(update.TgChatIDs),
	)
}

// splitByMode groups delayed chats by delivery time. A chat whose settings
// cannot be read is notified instantly.
func (s *ScrapperService) splitByMode(ctx context.Context, chatIDs []int64) ([]int64, map[string][]int64) {
	instant := make([]int64, 0, len(chatIDs))
	delayed := make(map[string][]int64)

	if s.delayed == nil || s.chatRepo == nil {
		return append(instant, chatIDs...), delayed
	}

	for _, chatID := range chatIDs {
		chat, err := s.chatRepo.FindByID(ctx, chatID)
		if err != nil {
			s.logger.Warn("Не удалось получить настройки чата, уведомляем сразу",
				"chatID", chatID,
				"error", err,
			)

			instant = append(instant, chatID)

			continue
		}

		if chat.NotificationMode != models.NotificationModeDelayed || chat.DeliveryTime == "" {
			instant = append(instant, chatID)
			continue
		}

		delayed[chat.DeliveryTime] = append(delayed[chat.DeliveryTime], chatID)
	}

	return instant, delayed
}

func sortedKeys(m map[string][]int64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
