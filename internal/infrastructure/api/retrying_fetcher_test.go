// internal/infrastructure/api/retrying_fetcher_test.go
package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleep returns a SleepFunc that records the requested waits without blocking
func recordingSleep(waits *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func quietLogger() logger.Logger {
	return logger.NewJSONLogger(&discard{}, logger.ErrorLevel)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestRetryingFetcherSuccess(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	var waits []time.Duration
	fetcher := NewRetryingFetcher(server.Client(), quietLogger(), WithSleep(recordingSleep(&waits)))

	resp, err := fetcher.Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, string(resp.Body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Empty(t, waits)
}

func TestRetryingFetcherExhaustsRetries(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		rateLimited bool
	}{
		{"Too many requests", http.StatusTooManyRequests, true},
		{"Forbidden", http.StatusForbidden, true},
		{"Server error", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			var waits []time.Duration
			fetcher := NewRetryingFetcher(server.Client(), quietLogger(), WithSleep(recordingSleep(&waits)))

			resp, err := fetcher.Fetch(context.Background(), server.URL)

			require.Error(t, err)
			assert.Nil(t, resp)

			// 1 attempt + 3 retries, each retry preceded by the fixed backoff
			assert.Equal(t, int32(4), atomic.LoadInt32(&hits))
			assert.Equal(t, []time.Duration{DefaultBackoff, DefaultBackoff, DefaultBackoff}, waits)

			var fetchErr *entity.FetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, 4, fetchErr.Attempts)
			assert.Equal(t, tt.status, fetchErr.StatusCode)
			assert.Equal(t, tt.rateLimited, errors.Is(err, entity.ErrRateLimited))
		})
	}
}

func TestRetryingFetcherRecoversAfterRateLimit(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"success":true,"rates":{"USD":1}}`))
	}))
	defer server.Close()

	var waits []time.Duration
	fetcher := NewRetryingFetcher(server.Client(), quietLogger(), WithSleep(recordingSleep(&waits)))

	resp, err := fetcher.Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Len(t, waits, 2)
}

func TestRetryingFetcherTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	var waits []time.Duration
	fetcher := NewRetryingFetcher(nil, quietLogger(),
		WithMaxRetries(2),
		WithBackoff(time.Second),
		WithSleep(recordingSleep(&waits)),
	)

	_, err := fetcher.Fetch(context.Background(), serverURL)

	var fetchErr *entity.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 3, fetchErr.Attempts)
	assert.Equal(t, 0, fetchErr.StatusCode)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, waits)
	assert.Contains(t, err.Error(), "failed to send request")
}

func TestRetryingFetcherStopsWhenContextCancelled(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := NewRetryingFetcher(server.Client(), quietLogger(), WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := fetcher.Fetch(ctx, server.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
