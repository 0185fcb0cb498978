package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/multierr"

	"github.com/central-university-dev/linktracker/internal/domain/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBotNotifier publishes updates to a topic. Publishing is
// fire-and-forget: failures are logged, copied to the dead-letter topic and
// never returned to the caller.
type KafkaBotNotifier struct {
	producer    messageWriter
	dlqProducer messageWriter
	logger      *slog.Logger
	linkTopic   string
	dlqTopic    string
}

func newWriter(brokers []string, topic string, logger *slog.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Logger:                 kafka.LoggerFunc(logger.Debug),
		ErrorLogger:            kafka.LoggerFunc(logger.Error),
	}
}

func NewKafkaBotNotifier(brokers []string, linkTopic, dlqTopic string, logger *slog.Logger) *KafkaBotNotifier {
	return newKafkaBotNotifier(
		newWriter(brokers, linkTopic, logger),
		newWriter(brokers, dlqTopic, logger),
		linkTopic, dlqTopic, logger,
	)
}

func newKafkaBotNotifier(producer, dlqProducer messageWriter, linkTopic, dlqTopic string, logger *slog.Logger) *KafkaBotNotifier {
	return &KafkaBotNotifier{
		producer:    producer,
		dlqProducer: dlqProducer,
		logger:      logger,
		linkTopic:   linkTopic,
		dlqTopic:    dlqTopic,
	}
}

func (n *KafkaBotNotifier) SendUpdate(ctx context.Context, update *models.LinkUpdate) error {
	n.logger.Info("Отправка уведомления в Kafka",
		"linkID", update.ID,
		"url", update.URL,
		"chats", len(update.TgChatIDs),
		"topic", n.linkTopic,
	)

	value := encodeLinkUpdate(update, formatDescription(update))
	deliveryID := DeliveryID(ctx)

	err := n.producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", update.ID)),
		Value: value,
		Headers: []kafka.Header{
			{Key: DeliveryIDHeader, Value: []byte(deliveryID)},
		},
		Time: time.Now(),
	})
	if err != nil {
		n.logger.Error("Ошибка при отправке сообщения в Kafka",
			"linkID", update.ID,
			"error", err,
		)

		n.sendToDLQ(ctx, value, deliveryID, err)

		return nil
	}

	n.logger.Info("Уведомление успешно отправлено в Kafka", "linkID", update.ID)

	return nil
}

func (n *KafkaBotNotifier) sendToDLQ(ctx context.Context, value []byte, deliveryID string, cause error) {
	err := n.dlqProducer.WriteMessages(ctx, kafka.Message{
		Key:   []byte("error"),
		Value: value,
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(cause.Error())},
			{Key: "timestamp", Value: []byte(time.Now().Format(time.RFC3339))},
			{Key: DeliveryIDHeader, Value: []byte(deliveryID)},
		},
		Time: time.Now(),
	})
	if err != nil {
		n.logger.Error("Ошибка при отправке сообщения в DLQ",
			"topic", n.dlqTopic,
			"error", err,
		)

		return
	}

	n.logger.Info("Сообщение отправлено в DLQ", "topic", n.dlqTopic)
}

func (n *KafkaBotNotifier) Close() error {
	return multierr.Combine(n.producer.Close(), n.dlqProducer.Close())
}
