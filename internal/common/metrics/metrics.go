package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "link_tracker"

	ScrapperSubsystem = "scrapper"
	DeliverySubsystem = "delivery"

	StatusSuccess = "success"
	StatusError   = "error"
)

// Исходящие HTTP-запросы к провайдерам и боту.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint"},
	)
)

// Scrapper метрики.
var (
	ScannedLinks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: ScrapperSubsystem,
			Name:      "scanned_links_count",
			Help:      "Number of links processed by the last scan, by type",
		},
		[]string{"link_type"},
	)

	ScrapeRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: ScrapperSubsystem,
			Name:      "scrape_request_duration_seconds",
			Help:      "Scrape request duration in seconds (p50, p95, p99)",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		},
		[]string{"link_type", "status"},
	)

	ScrapeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: ScrapperSubsystem,
			Name:      "scrape_requests_total",
			Help:      "Total number of scrape requests",
		},
		[]string{"link_type", "status"},
	)

	ChangesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: ScrapperSubsystem,
			Name:      "changes_detected_total",
			Help:      "Total number of detected resource changes",
		},
		[]string{"kind"},
	)

	DatabaseQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: ScrapperSubsystem,
			Name:      "database_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: ScrapperSubsystem,
			Name:      "database_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Метрики доставки уведомлений.
var (
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: DeliverySubsystem,
			Name:      "notifications_total",
			Help:      "Total number of notification attempts by transport",
		},
		[]string{"transport", "status"},
	)

	FallbackDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: DeliverySubsystem,
			Name:      "fallback_deliveries_total",
			Help:      "Total number of notifications handed to the fallback transport",
		},
		[]string{"status"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: DeliverySubsystem,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"name"},
	)

	DeferredMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: DeliverySubsystem,
			Name:      "deferred_messages_total",
			Help:      "Total number of messages deferred to or flushed from delivery buckets",
		},
		[]string{"action"},
	)
)

func RecordHTTPRequest(service, method, endpoint string, statusCode int, duration time.Duration) {
	status := StatusSuccess
	if statusCode >= 400 {
		status = StatusError
	}

	HTTPRequestsTotal.WithLabelValues(service, method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(service, method, endpoint).Observe(duration.Seconds())
}

func RecordScrapeRequest(linkType, status string, duration time.Duration) {
	ScrapeRequestsTotal.WithLabelValues(linkType, status).Inc()
	ScrapeRequestDuration.WithLabelValues(linkType, status).Observe(duration.Seconds())
}

func RecordChangeDetected(kind string) {
	ChangesDetectedTotal.WithLabelValues(kind).Inc()
}

func UpdateScannedLinksCount(linkType string, count float64) {
	ScannedLinks.WithLabelValues(linkType).Set(count)
}

func RecordDatabaseQuery(operation, status string, duration time.Duration) {
	DatabaseQueriesTotal.WithLabelValues(operation, status).Inc()
	DatabaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordNotification(transport, status string) {
	NotificationsTotal.WithLabelValues(transport, status).Inc()
}

func RecordFallbackDelivery(status string) {
	FallbackDeliveriesTotal.WithLabelValues(status).Inc()
}

func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func RecordDeferredMessages(action string, count int) {
	DeferredMessagesTotal.WithLabelValues(action).Add(float64(count))
}
