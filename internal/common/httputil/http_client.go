package httputil

import (
	"log/slog"
	"time"

	"github.com/central-university-dev/linktracker/internal/common/metrics"
	"github.com/central-university-dev/linktracker/internal/config"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// NewRateLimiter converts "requests per window" into a token bucket.
// A non-positive request count disables limiting.
func NewRateLimiter(requests int, window time.Duration) *rate.Limiter {
	if requests <= 0 || window <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}

	return rate.NewLimiter(rate.Limit(float64(requests)/window.Seconds()), requests)
}

// CreateHTTPClient builds a resty client for an external provider.
// Requests are bounded by EXTERNAL_REQUEST_TIMEOUT and are never retried here.
func CreateHTTPClient(cfg *config.Config, logger *slog.Logger, serviceName string) *resty.Client {
	client := resty.New()

	client.SetTimeout(cfg.ExternalRequestTimeout)
	client.SetRetryCount(0)

	limiter := NewRateLimiter(cfg.ExternalRateLimitRequests, cfg.ExternalRateLimitWindow)

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		endpoint := ""
		if raw := resp.Request.RawRequest; raw != nil {
			endpoint = raw.URL.Host
		}

		metrics.RecordHTTPRequest(serviceName, resp.Request.Method, endpoint, resp.StatusCode(), resp.Time())

		if logger != nil {
			logger.Debug("Ответ внешнего сервиса",
				"service", serviceName,
				"url", resp.Request.URL,
				"status", resp.StatusCode(),
				"duration", resp.Time(),
			)
		}

		return nil
	})

	return client
}
