// internal/infrastructure/api/rates_api_client_test.go
package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *RatesAPIClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	fetcher := NewRetryingFetcher(server.Client(), quietLogger(),
		WithSleep(func(ctx context.Context, d time.Duration) error { return nil }))

	return NewRatesAPIClient(server.URL, "secret", fetcher, quietLogger())
}

func TestFetchForDate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("access_key"))

		switch r.URL.Path {
		case "/2024-01-02":
			w.Write([]byte(`{"success":true,"historical":true,"date":"2024-01-02","base":"EUR",
				"rates":{"EUR":1,"USD":1.0945,"GBP":0.8621}}`))
		case "/2024-01-03":
			w.Write([]byte(`{"success":false,"error":{"code":106,"info":"no rates for this date"}}`))
		case "/2024-01-04":
			w.Write([]byte(`{"success":true,"rates":{}}`))
		default:
			w.Write([]byte(`not json`))
		}
	})

	t.Run("Rates returned", func(t *testing.T) {
		snapshot, err := client.FetchForDate(context.Background(), time.Date(2024, 1, 2, 15, 4, 0, 0, time.UTC))

		require.NoError(t, err)
		assert.Equal(t, entity.RateSnapshot{"EUR": 1, "USD": 1.0945, "GBP": 0.8621}, snapshot)
	})

	t.Run("Success flag false", func(t *testing.T) {
		snapshot, err := client.FetchForDate(context.Background(), time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))

		assert.Nil(t, snapshot)
		assert.True(t, errors.Is(err, entity.ErrNoDataForDate))
		assert.Contains(t, err.Error(), "no rates for this date")
	})

	t.Run("Empty rates", func(t *testing.T) {
		_, err := client.FetchForDate(context.Background(), time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC))
		assert.True(t, errors.Is(err, entity.ErrNoDataForDate))
	})

	t.Run("Malformed payload", func(t *testing.T) {
		_, err := client.FetchForDate(context.Background(), time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
		assert.True(t, errors.Is(err, entity.ErrNoDataForDate))
	})
}

func TestFetchForDateTransportFailureIsNotNoData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.FetchForDate(context.Background(), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))

	require.Error(t, err)
	assert.False(t, errors.Is(err, entity.ErrNoDataForDate))
	var fetchErr *entity.FetchError
	assert.True(t, errors.As(err, &fetchErr))
}

func TestFetchLatest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		w.Write([]byte(`{"success":true,"rates":{"USD":1.1,"JPY":160.2,"bad":"x"}}`))
	})

	snapshot, err := client.FetchLatest(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"JPY", "USD"}, snapshot.Currencies())
}

func TestURLs(t *testing.T) {
	client := NewRatesAPIClient("https://rates.example.com/v1/", "", nil, quietLogger())
	assert.Equal(t, "https://rates.example.com/v1/latest", client.LatestURL())
	assert.Equal(t, "https://rates.example.com/v1/2024-02-29",
		client.HistoricalURL(time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)))

	keyed := NewRatesAPIClient("", "k y", nil, quietLogger())
	assert.Equal(t, DefaultBaseURL+"/latest?access_key=k+y", keyed.LatestURL())
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "http://x/2024-01-01?access_key=REDACTED", redactURL("http://x/2024-01-01?access_key=secret"))
	assert.Equal(t, "http://x/latest", redactURL("http://x/latest"))
}
