package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"

	"github.com/central-university-dev/linktracker/internal/common/metrics"
	"github.com/central-university-dev/linktracker/internal/domain/models"
)

type HTTPBotNotifier struct {
	client  *resty.Client
	baseURL string
	logger  *slog.Logger
}

func NewHTTPBotNotifier(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPBotNotifier {
	if baseURL == "" {
		baseURL = "http://link_tracker_bot:8080"
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return &HTTPBotNotifier{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// SendUpdate performs a single POST /updates. Non-2xx answers are returned
// as *errors.APIError so that the retry policy can classify them.
func (n *HTTPBotNotifier) SendUpdate(ctx context.Context, update *models.LinkUpdate) error {
	n.logger.Info("Отправка уведомления в бота",
		"linkID", update.ID,
		"url", update.URL,
		"chats", len(update.TgChatIDs),
	)

	start := time.Now()

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(DeliveryIDHeader, DeliveryID(ctx)).
		SetBody(encodeLinkUpdate(update, formatDescription(update))).
		Post(n.baseURL + "/updates")
	if err != nil {
		return errors.Wrap(err, "ошибка при отправке уведомления в бота")
	}

	metrics.RecordHTTPRequest("bot", "POST", "/updates", resp.StatusCode(), time.Since(start))

	if !resp.IsSuccess() {
		apiErr := decodeAPIError(resp.StatusCode(), resp.Body())

		n.logger.Warn("Бот вернул ошибку",
			"linkID", update.ID,
			"status", apiErr.StatusCode,
			"code", apiErr.Code,
			"description", apiErr.Description,
		)

		return apiErr
	}

	n.logger.Info("Уведомление успешно отправлено", "linkID", update.ID)

	return nil
}
