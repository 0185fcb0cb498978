package resilience

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/central-university-dev/linktracker/internal/config"
	customerrors "github.com/central-university-dev/linktracker/internal/domain/errors"
)

// RetryPolicy decides whether a failed delivery attempt may be repeated.
// It keeps no state between calls.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	codes       map[int]struct{}
}

func NewRetryPolicy(maxAttempts int, backoff time.Duration, retryableCodes []int) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	codes := make(map[int]struct{}, len(retryableCodes))
	for _, code := range retryableCodes {
		codes[code] = struct{}{}
	}

	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     backoff,
		codes:       codes,
	}
}

func NewRetryPolicyFromConfig(cfg *config.Config) *RetryPolicy {
	return NewRetryPolicy(cfg.RetryCount, cfg.RetryBackoff, cfg.RetryableStatusCodes)
}

// CanRetry reports whether attempt number attempt (1-based) that ended with
// lastErr may be followed by another one.
func (p *RetryPolicy) CanRetry(attempt int, lastErr error) bool {
	return attempt < p.MaxAttempts && p.IsRetryable(lastErr)
}

// IsRetryable classifies an error returned by the primary transport.
func (p *RetryPolicy) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if IsRejected(err) || errors.Is(err, context.Canceled) {
		return false
	}

	if code, ok := StatusCode(err); ok {
		_, retryable := p.codes[code]
		return retryable
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Таймауты и сетевые ошибки без ответа сервера
	var netErr net.Error

	return errors.As(err, &netErr)
}

// StatusCode extracts the HTTP status carried by a transport error.
func StatusCode(err error) (int, bool) {
	var apiErr *customerrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}

	var httpErr *customerrors.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}

	return 0, false
}

// Wait sleeps for the configured backoff or until ctx is done.
func (p *RetryPolicy) Wait(ctx context.Context) error {
	if p.Backoff <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.Backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
