package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx response from the Admin API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	// RetryAfter is the server's Retry-After hint; zero when absent.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed: %s %s: %d - %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Retryable reports whether the status is a server error or a rate-limit signal.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || (e.StatusCode >= 500 && e.StatusCode < 600)
}

// MaxBackoff caps the exponential wait; a Retry-After hint is used as given.
const MaxBackoff = 5 * time.Minute

// RetryPolicy retries transient API failures with exponential backoff.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	BaseDelay  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, BaseDelay: time.Second}
}

// Backoff returns the wait before retry number attempt (zero-based).
func (p RetryPolicy) Backoff(attempt int, apiErr *APIError) time.Duration {
	if apiErr != nil && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}
	d := p.BaseDelay
	for i := 0; i < attempt && d < MaxBackoff; i++ {
		d *= 2
	}
	if d > MaxBackoff {
		d = MaxBackoff
	}
	return d
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// do runs fn until it succeeds, fails permanently or retries run out.
// onRetry is told about each wait before it happens.
func (p RetryPolicy) do(ctx context.Context, sleep SleepFunc, onRetry func(attempt int, apiErr *APIError, wait time.Duration), fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var apiErr *APIError
		if !errors.As(lastErr, &apiErr) || !apiErr.Retryable() || attempt == p.MaxRetries {
			break
		}

		wait := p.Backoff(attempt, apiErr)
		if onRetry != nil {
			onRetry(attempt, apiErr, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return fmt.Errorf("retry wait interrupted: %w (last error: %v)", err, lastErr)
		}
	}
	return lastErr
}

// parseRetryAfter accepts delta-seconds (Shopify sends "2.0") or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds * float64(time.Second))
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
