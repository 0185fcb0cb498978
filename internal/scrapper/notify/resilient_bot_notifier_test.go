package notify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/linktracker/internal/domain/models"
	"github.com/central-university-dev/linktracker/internal/resilience"
	"github.com/central-university-dev/linktracker/internal/scrapper/notify"
)

type MockBotNotifier struct {
	mock.Mock
}

func (m *MockBotNotifier) SendUpdate(ctx context.Context, update *models.LinkUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

// botServer answers with statuses[i] for the i-th request and repeats the
// last status afterwards.
func botServer(t *testing.T, statuses ...int) (*httptest.Server, *int32) {
	t.Helper()

	var requestCount int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(atomic.AddInt32(&requestCount, 1))

		status := statuses[len(statuses)-1]
		if n <= len(statuses) {
			status = statuses[n-1]
		}

		if status >= 400 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"description":"ошибка","code":"` + http.StatusText(status) + `"}`))

			return
		}

		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	return server, &requestCount
}

func newTestNotifier(
	serverURL string,
	fallback notify.BotNotifier,
	retry *resilience.RetryPolicy,
	breaker *resilience.CircuitBreaker,
) *notify.ResilientBotNotifier {
	primary := notify.Transport{
		Name:     "HTTP",
		Notifier: notify.NewHTTPBotNotifier(serverURL, time.Second, testLogger()),
	}

	var secondary *notify.Transport
	if fallback != nil {
		secondary = &notify.Transport{Name: "KAFKA", Notifier: fallback}
	}

	return notify.NewResilientBotNotifier(primary, secondary, retry, breaker, testLogger())
}

func lenientBreaker() *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.CircuitBreakerSettings{
		Name:                    "test",
		SlidingWindowSize:       10,
		MinimumCalls:            10,
		FailureRateThreshold:    100,
		WaitDurationInOpenState: time.Minute,
	})
}

func testUpdate() *models.LinkUpdate {
	return &models.LinkUpdate{
		ID:          1,
		URL:         "https://github.com/owner/repo",
		Description: "Обновление репозитория",
		TgChatIDs:   []int64{123},
	}
}

func TestResilientBotNotifier_RetrySucceedsOnThirdAttempt(t *testing.T) {
	// Arrange
	server, requests := botServer(t, http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusOK)
	fallback := new(MockBotNotifier)

	notifier := newTestNotifier(server.URL, fallback,
		resilience.NewRetryPolicy(3, 10*time.Millisecond, []int{500, 502, 503, 504}),
		lenientBreaker(),
	)

	// Act
	err := notifier.SendUpdate(context.Background(), testUpdate())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(requests))
	fallback.AssertNotCalled(t, "SendUpdate", mock.Anything, mock.Anything)
}

func TestResilientBotNotifier_ExhaustionFallsBackOnce(t *testing.T) {
	// Arrange
	server, requests := botServer(t, http.StatusServiceUnavailable)
	fallback := new(MockBotNotifier)
	update := testUpdate()

	fallback.On("SendUpdate", mock.Anything, update).Return(nil).Once()

	notifier := newTestNotifier(server.URL, fallback,
		resilience.NewRetryPolicy(3, 10*time.Millisecond, []int{500, 502, 503, 504}),
		lenientBreaker(),
	)

	// Act
	err := notifier.SendUpdate(context.Background(), update)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(requests))
	fallback.AssertExpectations(t)
	fallback.AssertNumberOfCalls(t, "SendUpdate", 1)
}

func TestResilientBotNotifier_NonRetryableGoesStraightToFallback(t *testing.T) {
	server, requests := botServer(t, http.StatusBadRequest)
	fallback := new(MockBotNotifier)
	update := testUpdate()

	fallback.On("SendUpdate", mock.Anything, update).Return(nil).Once()

	notifier := newTestNotifier(server.URL, fallback,
		resilience.NewRetryPolicy(3, 10*time.Millisecond, []int{500, 502, 503, 504}),
		lenientBreaker(),
	)

	require.NoError(t, notifier.SendUpdate(context.Background(), update))
	assert.Equal(t, int32(1), atomic.LoadInt32(requests))
	fallback.AssertExpectations(t)
}

func TestResilientBotNotifier_OpenBreakerSkipsPrimary(t *testing.T) {
	// Arrange
	server, requests := botServer(t, http.StatusInternalServerError)
	fallback := new(MockBotNotifier)
	fallback.On("SendUpdate", mock.Anything, mock.Anything).Return(nil)

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerSettings{
		Name:                    "test",
		SlidingWindowSize:       2,
		MinimumCalls:            2,
		FailureRateThreshold:    50,
		WaitDurationInOpenState: time.Minute,
	})

	notifier := newTestNotifier(server.URL, fallback,
		resilience.NewRetryPolicy(1, 10*time.Millisecond, []int{500}),
		breaker,
	)

	// Act
	require.NoError(t, notifier.SendUpdate(context.Background(), testUpdate()))
	require.NoError(t, notifier.SendUpdate(context.Background(), testUpdate()))

	require.Equal(t, resilience.StateOpen, breaker.State())

	err := notifier.SendUpdate(context.Background(), testUpdate())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(requests), "Открытый circuit breaker не должен пропускать запросы")
	fallback.AssertNumberOfCalls(t, "SendUpdate", 3)
}

func TestResilientBotNotifier_FallbackFailureIsSwallowed(t *testing.T) {
	server, _ := botServer(t, http.StatusServiceUnavailable)
	fallback := new(MockBotNotifier)
	fallback.On("SendUpdate", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	notifier := newTestNotifier(server.URL, fallback,
		resilience.NewRetryPolicy(2, 10*time.Millisecond, []int{503}),
		lenientBreaker(),
	)

	assert.NoError(t, notifier.SendUpdate(context.Background(), testUpdate()))
	fallback.AssertExpectations(t)
}

func TestResilientBotNotifier_NoFallbackConfigured(t *testing.T) {
	server, requests := botServer(t, http.StatusServiceUnavailable)

	notifier := newTestNotifier(server.URL, nil,
		resilience.NewRetryPolicy(2, 10*time.Millisecond, []int{503}),
		lenientBreaker(),
	)

	assert.NoError(t, notifier.SendUpdate(context.Background(), testUpdate()))
	assert.Equal(t, int32(2), atomic.LoadInt32(requests))
}

func TestResilientBotNotifier_SameDeliveryIDAcrossAttempts(t *testing.T) {
	ids := make(chan string, 3)

	var requestCount int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get(notify.DeliveryIDHeader)

		if atomic.AddInt32(&requestCount, 1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := newTestNotifier(server.URL, nil,
		resilience.NewRetryPolicy(3, 10*time.Millisecond, []int{502}),
		lenientBreaker(),
	)

	require.NoError(t, notifier.SendUpdate(context.Background(), testUpdate()))

	first, second := <-ids, <-ids

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}
