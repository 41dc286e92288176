package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/logger"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/metrics"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt
	DefaultMaxRetries = 3
	// DefaultBackoff is the fixed wait between attempts
	DefaultBackoff = 30 * time.Second
)

// HTTPDoer is the subset of *http.Client used by the fetcher
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Response is a fully read rate source response
type Response struct {
	StatusCode int
	Body       []byte
}

// RetryingFetcher performs GET requests with a bounded number of fixed-delay retries
type RetryingFetcher struct {
	client     HTTPDoer
	maxRetries int
	backoff    time.Duration
	sleep      SleepFunc
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// FetcherOption configures a RetryingFetcher
type FetcherOption func(*RetryingFetcher)

// WithMaxRetries sets how many retries follow the first attempt
func WithMaxRetries(n int) FetcherOption {
	return func(f *RetryingFetcher) {
		if n >= 0 {
			f.maxRetries = n
		}
	}
}

// WithBackoff sets the wait between attempts
func WithBackoff(d time.Duration) FetcherOption {
	return func(f *RetryingFetcher) {
		if d >= 0 {
			f.backoff = d
		}
	}
}

// WithSleep replaces the wait implementation, mainly for tests
func WithSleep(sleep SleepFunc) FetcherOption {
	return func(f *RetryingFetcher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// WithMetrics attaches Prometheus collectors
func WithMetrics(m *metrics.Metrics) FetcherOption {
	return func(f *RetryingFetcher) {
		if m != nil {
			f.metrics = m
		}
	}
}

// NewRetryingFetcher creates a fetcher. A nil client gets a 10 second timeout client.
func NewRetryingFetcher(client HTTPDoer, log logger.Logger, opts ...FetcherOption) *RetryingFetcher {
	if client == nil {
		client = &http.Client{
			Timeout: 10 * time.Second,
		}
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	f := &RetryingFetcher{
		client:     client,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
		sleep:      sleepContext,
		logger:     log,
		metrics:    metrics.NewNopMetrics(),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch issues a GET to url. Transport failures and non-2xx responses are
// retried after the backoff; once the retries are spent it returns a *entity.FetchError.
func (f *RetryingFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	maxAttempts := f.maxRetries + 1

	var (
		lastErr    error
		lastStatus int
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := f.do(ctx, url)
		if err == nil {
			f.metrics.FetchAttemptsTotal.WithLabelValues("success").Inc()
			return resp, nil
		}

		lastErr = err
		lastStatus = 0
		if resp != nil {
			lastStatus = resp.StatusCode
		}
		f.metrics.FetchAttemptsTotal.WithLabelValues(attemptOutcome(err)).Inc()

		if attempt == maxAttempts {
			break
		}

		f.logger.Warn("Rate source request failed, retrying", map[string]interface{}{
			"url":          redactURL(url),
			"attempt":      attempt,
			"max_attempts": maxAttempts,
			"status":       lastStatus,
			"backoff":      f.backoff.String(),
			"error":        err.Error(),
		})
		f.metrics.FetchRetriesTotal.Inc()

		if sleepErr := f.sleep(ctx, f.backoff); sleepErr != nil {
			f.metrics.FetchFailuresTotal.Inc()
			return nil, &entity.FetchError{URL: url, Attempts: attempt, StatusCode: lastStatus, Cause: sleepErr}
		}
	}

	f.metrics.FetchFailuresTotal.Inc()
	f.logger.Error("Rate source request failed after retries", map[string]interface{}{
		"url":      redactURL(url),
		"attempts": maxAttempts,
		"status":   lastStatus,
		"error":    lastErr.Error(),
	})

	return nil, &entity.FetchError{URL: url, Attempts: maxAttempts, StatusCode: lastStatus, Cause: lastErr}
}

// do performs a single attempt. A non-nil response with a non-nil error carries the rejected status.
func (f *RetryingFetcher) do(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Accept", "application/json")

	httpResp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil {
			f.logger.Debug("Error closing response body", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	resp := &Response{StatusCode: httpResp.StatusCode, Body: body}

	switch {
	case httpResp.StatusCode == http.StatusForbidden || httpResp.StatusCode == http.StatusTooManyRequests:
		return resp, fmt.Errorf("%w: status %d", entity.ErrRateLimited, httpResp.StatusCode)
	case httpResp.StatusCode < 200 || httpResp.StatusCode > 299:
		return resp, fmt.Errorf("API returned error status: %d", httpResp.StatusCode)
	}

	return resp, nil
}

func attemptOutcome(err error) string {
	if errors.Is(err, entity.ErrRateLimited) {
		return "rate_limited"
	}
	return "error"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
