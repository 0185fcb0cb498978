package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/linktracker/internal/common/metrics"
)

func TestRouter_Endpoints(t *testing.T) {
	server := httptest.NewServer(metrics.NewRouter())
	defer server.Close()

	metrics.RecordNotification("Kafka", metrics.StatusSuccess)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "link_tracker_delivery_notifications_total")
}

func TestRouter_InstrumentsRequests(t *testing.T) {
	server := httptest.NewServer(metrics.NewRouter())
	defer server.Close()

	counter := metrics.HTTPRequestsTotal.WithLabelValues("scrapper", http.MethodGet, "/health", metrics.StatusSuccess)
	before := testutil.ToFloat64(counter)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	assert.InDelta(t, before+1, testutil.ToFloat64(counter), 0.001)
}
