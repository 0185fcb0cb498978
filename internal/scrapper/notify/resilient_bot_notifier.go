package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/central-university-dev/linktracker/internal/common/metrics"
	"github.com/central-university-dev/linktracker/internal/domain/models"
	"github.com/central-university-dev/linktracker/internal/resilience"
)

const fallbackDropped = "dropped"

// ResilientBotNotifier delivers through the primary transport under a retry
// policy and a circuit breaker. When the primary gives up the same message
// is handed once to the fallback transport. SendUpdate always returns nil.
type ResilientBotNotifier struct {
	primary      BotNotifier
	primaryName  string
	fallback     BotNotifier
	fallbackName string
	retry        *resilience.RetryPolicy
	breaker      *resilience.CircuitBreaker
	logger       *slog.Logger
	tracer       trace.Tracer
}

// NewResilientBotNotifier wires the delivery chain. fallback may be nil, in
// which case undeliverable messages are logged and dropped.
func NewResilientBotNotifier(
	primary Transport,
	fallback *Transport,
	retry *resilience.RetryPolicy,
	breaker *resilience.CircuitBreaker,
	logger *slog.Logger,
) *ResilientBotNotifier {
	n := &ResilientBotNotifier{
		primary:     primary.Notifier,
		primaryName: primary.Name,
		retry:       retry,
		breaker:     breaker,
		logger:      logger,
		tracer:      otel.Tracer("linktracker/notify"),
	}

	if fallback != nil {
		n.fallback = fallback.Notifier
		n.fallbackName = fallback.Name
	}

	return n
}

func (n *ResilientBotNotifier) SendUpdate(ctx context.Context, update *models.LinkUpdate) error {
	deliveryID := uuid.NewString()
	ctx = WithDeliveryID(ctx, deliveryID)

	ctx, span := n.tracer.Start(ctx, "notify.SendUpdate", trace.WithAttributes(
		attribute.Int64("link.id", update.ID),
		attribute.Int("chats", len(update.TgChatIDs)),
		attribute.String("delivery.id", deliveryID),
	))
	defer span.End()

	lastErr := n.sendPrimary(ctx, update)
	if lastErr == nil {
		return nil
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())

	n.sendFallback(ctx, update, lastErr)

	return nil
}

func (n *ResilientBotNotifier) sendPrimary(ctx context.Context, update *models.LinkUpdate) error {
	for attempt := 1; ; attempt++ {
		err := n.breaker.Execute(ctx, func(ctx context.Context) error {
			return n.primary.SendUpdate(ctx, update)
		})
		if err == nil {
			metrics.RecordNotification(n.primaryName, metrics.StatusSuccess)
			return nil
		}

		if resilience.IsRejected(err) {
			n.logger.Warn("Circuit breaker отклонил отправку",
				"linkID", update.ID,
				"transport", n.primaryName,
				"state", n.breaker.State().String(),
			)

			return err
		}

		metrics.RecordNotification(n.primaryName, metrics.StatusError)

		if !n.retry.CanRetry(attempt, err) {
			n.logger.Error("Не удалось доставить уведомление основным транспортом",
				"linkID", update.ID,
				"transport", n.primaryName,
				"attempt", attempt,
				"error", err,
			)

			return err
		}

		n.logger.Warn("Повтор отправки уведомления",
			"linkID", update.ID,
			"transport", n.primaryName,
			"attempt", attempt,
			"error", err,
		)

		if waitErr := n.retry.Wait(ctx); waitErr != nil {
			return waitErr
		}
	}
}

func (n *ResilientBotNotifier) sendFallback(ctx context.Context, update *models.LinkUpdate, cause error) {
	if n.fallback == nil {
		metrics.RecordFallbackDelivery(fallbackDropped)

		n.logger.Error("Резервный транспорт отключен, уведомление потеряно",
			"linkID", update.ID,
			"error", cause,
		)

		return
	}

	n.logger.Warn("Основной транспорт недоступен, переключаемся на резервный",
		"linkID", update.ID,
		"primary", n.primaryName,
		"fallback", n.fallbackName,
		"primaryError", cause,
	)

	if err := n.fallback.SendUpdate(ctx, update); err != nil {
		metrics.RecordFallbackDelivery(metrics.StatusError)
		metrics.RecordNotification(n.fallbackName, metrics.StatusError)

		n.logger.Error("Резервный транспорт не смог доставить уведомление, уведомление потеряно",
			"linkID", update.ID,
			"fallback", n.fallbackName,
			"error", err,
		)

		return
	}

	metrics.RecordFallbackDelivery(metrics.StatusSuccess)
	metrics.RecordNotification(n.fallbackName, metrics.StatusSuccess)

	n.logger.Info("Уведомление отправлено через резервный транспорт",
		"linkID", update.ID,
		"fallback", n.fallbackName,
	)
}
