package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/linktracker/internal/common/metrics"
)

func TestRecordHTTPRequest(t *testing.T) {
	// Arrange
	service := "test-service"
	method := "GET"
	endpoint := "/test"
	duration := 100 * time.Millisecond

	// Act
	metrics.RecordHTTPRequest(service, method, endpoint, 200, duration)
	metrics.RecordHTTPRequest(service, method, endpoint, 503, duration)

	// Assert
	successValue := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(service, method, endpoint, metrics.StatusSuccess))
	assert.Equal(t, float64(1), successValue)

	errorValue := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(service, method, endpoint, metrics.StatusError))
	assert.Equal(t, float64(1), errorValue)
}

func TestRecordScrapeRequest(t *testing.T) {
	// Arrange
	linkType := "github_test"

	durations := []time.Duration{
		10 * time.Millisecond,
		500 * time.Millisecond,
		1000 * time.Millisecond,
	}

	initialValue := testutil.ToFloat64(metrics.ScrapeRequestsTotal.WithLabelValues(linkType, metrics.StatusSuccess))

	// Act
	for _, duration := range durations {
		metrics.RecordScrapeRequest(linkType, metrics.StatusSuccess, duration)
	}

	// Assert
	finalValue := testutil.ToFloat64(metrics.ScrapeRequestsTotal.WithLabelValues(linkType, metrics.StatusSuccess))
	assert.Equal(t, initialValue+float64(len(durations)), finalValue)
}

func TestUpdateScannedLinksCount(t *testing.T) {
	// Act
	metrics.UpdateScannedLinksCount("stackoverflow", 42)

	// Assert
	gaugeValue := testutil.ToFloat64(metrics.ScannedLinks.WithLabelValues("stackoverflow"))
	assert.Equal(t, float64(42), gaugeValue)
}

func TestDeliveryMetrics(t *testing.T) {
	// Act
	metrics.RecordNotification("HTTP", metrics.StatusError)
	metrics.RecordFallbackDelivery(metrics.StatusSuccess)
	metrics.SetCircuitBreakerState("bot_http", 2)
	metrics.RecordDeferredMessages("flushed", 3)

	// Assert
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.NotificationsTotal.WithLabelValues("HTTP", metrics.StatusError)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FallbackDeliveriesTotal.WithLabelValues(metrics.StatusSuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("bot_http")))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.DeferredMessagesTotal.WithLabelValues("flushed")))
}

func TestRecordDatabaseQuery(t *testing.T) {
	// Act
	metrics.RecordDatabaseQuery("SELECT", metrics.StatusSuccess, 10*time.Millisecond)

	// Assert
	counterValue := testutil.ToFloat64(metrics.DatabaseQueriesTotal.WithLabelValues("SELECT", metrics.StatusSuccess))
	assert.Equal(t, float64(1), counterValue)
}

func TestMetricsExist(t *testing.T) {
	// Arrange
	metrics.RecordChangeDetected("repository")

	// Act
	metricFamilies, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	metricNames := make(map[string]bool)
	for _, mf := range metricFamilies {
		metricNames[*mf.Name] = true
	}

	// Assert
	expectedMetrics := []string{
		"link_tracker_http_requests_total",
		"link_tracker_http_request_duration_seconds",
		"link_tracker_scrapper_scanned_links_count",
		"link_tracker_scrapper_scrape_request_duration_seconds",
		"link_tracker_scrapper_scrape_requests_total",
		"link_tracker_scrapper_changes_detected_total",
		"link_tracker_delivery_notifications_total",
		"link_tracker_delivery_fallback_deliveries_total",
		"link_tracker_delivery_circuit_breaker_state",
		"link_tracker_delivery_deferred_messages_total",
	}

	for _, metricName := range expectedMetrics {
		assert.True(t, metricNames[metricName], "Метрика %s должна быть зарегистрирована", metricName)
	}
}
