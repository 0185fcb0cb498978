package notify

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.uber.org/multierr"

	"github.com/central-university-dev/linktracker/internal/common/metrics"
	"github.com/central-university-dev/linktracker/internal/config"
	"github.com/central-university-dev/linktracker/internal/domain/errors"
	"github.com/central-university-dev/linktracker/internal/domain/models"
	"github.com/central-university-dev/linktracker/internal/resilience"
)

type NotifierType string

const (
	HTTPNotifier  NotifierType = "HTTP"
	KafkaNotifier NotifierType = "KAFKA"
)

type BotNotifier interface {
	SendUpdate(ctx context.Context, update *models.LinkUpdate) error
}

// Transport is a named BotNotifier; the name labels logs and metrics.
type Transport struct {
	Name     string
	Notifier BotNotifier
}

type NotifierFactory struct {
	config  *config.Config
	logger  *slog.Logger
	closers []io.Closer
}

func NewNotifierFactory(config *config.Config, logger *slog.Logger) *NotifierFactory {
	return &NotifierFactory{
		config: config,
		logger: logger,
	}
}

// CreateNotifier builds the primary transport from MESSAGE_TRANSPORT and,
// when FALLBACK_ENABLED is set, the fallback from FALLBACK_TRANSPORT.
func (f *NotifierFactory) CreateNotifier() (*ResilientBotNotifier, error) {
	primary, err := f.createTransport(f.config.MessageTransport)
	if err != nil {
		return nil, err
	}

	var fallback *Transport

	if f.config.FallbackEnabled && f.config.FallbackTransport != "" {
		if strings.EqualFold(f.config.FallbackTransport, f.config.MessageTransport) {
			f.logger.Warn("Резервный транспорт совпадает с основным и не будет использован",
				"transport", f.config.FallbackTransport,
			)
		} else {
			secondary, err := f.createTransport(f.config.FallbackTransport)
			if err != nil {
				return nil, multierr.Append(err, f.Close())
			}

			fallback = &secondary
		}
	}

	breakerName := "bot_" + strings.ToLower(primary.Name)

	settings := resilience.SettingsFromConfig(f.config, breakerName)
	settings.Logger = f.logger
	settings.OnStateChange = func(name string, _, to resilience.State) {
		metrics.SetCircuitBreakerState(name, int(to))
	}

	metrics.SetCircuitBreakerState(breakerName, int(resilience.StateClosed))

	f.logger.Info("Создание нотификатора",
		"primary", primary.Name,
		"fallbackEnabled", fallback != nil,
	)

	return NewResilientBotNotifier(
		primary,
		fallback,
		resilience.NewRetryPolicyFromConfig(f.config),
		resilience.NewCircuitBreaker(settings),
		f.logger,
	), nil
}

func (f *NotifierFactory) createTransport(name string) (Transport, error) {
	notifierType := NotifierType(strings.ToUpper(strings.TrimSpace(name)))

	switch notifierType {
	case HTTPNotifier:
		return Transport{
			Name:     string(HTTPNotifier),
			Notifier: NewHTTPBotNotifier(f.config.BotBaseURL, f.config.HTTPRequestTimeout, f.logger),
		}, nil
	case KafkaNotifier:
		brokers := strings.Split(f.config.KafkaBrokers, ",")
		notifier := NewKafkaBotNotifier(brokers, f.config.TopicLinkUpdates, f.config.TopicDeadLetterQueue, f.logger)
		f.closers = append(f.closers, notifier)

		return Transport{Name: string(KafkaNotifier), Notifier: notifier}, nil
	default:
		return Transport{}, &errors.ErrUnknownTransport{Transport: name}
	}
}

// Close releases the Kafka writers created by the factory.
func (f *NotifierFactory) Close() error {
	var err error

	for _, closer := range f.closers {
		err = multierr.Append(err, closer.Close())
	}

	f.closers = nil

	return err
}
