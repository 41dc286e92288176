package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/damon-houk/rate-history-sync/internal/application/service"
	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTrendProvider struct {
	mock.Mock
}

func (m *mockTrendProvider) Trend(ctx context.Context, base, target string, r entity.DateRange) (*service.TrendResult, error) {
	args := m.Called(ctx, base, target, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TrendResult), args.Error(1)
}

func historyNow() time.Time {
	return time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
}

func newHistoryRouter(trends *mockTrendProvider) *mux.Router {
	router := mux.NewRouter()
	NewHistoryHandler(trends, 3, historyNow, quietLogger()).RegisterRoutes(router)
	return router
}

func mustRange(t *testing.T, start, end string) entity.DateRange {
	t.Helper()
	s, err := entity.ParseDate(start)
	require.NoError(t, err)
	e, err := entity.ParseDate(end)
	require.NoError(t, err)
	r, err := entity.NewDateRange(s, e)
	require.NoError(t, err)
	return r
}

func TestHistoryHandlerDefaultWindow(t *testing.T) {
	trends := new(mockTrendProvider)
	want := mustRange(t, "2024-03-07", "2024-03-10")

	trends.On("Trend", mock.Anything, "USD", "EUR", want).Return(&service.TrendResult{
		Series: entity.ChartSeries{
			Labels:         []string{"2024-03-07", "2024-03-08", "2024-03-09", "2024-03-10"},
			BaseCurrency:   "USD",
			TargetCurrency: "EUR",
			BaseValues:     []float64{1, 1, 0, 1},
			TargetValues:   []float64{0.9, 0.91, 0, 0.92},
		},
		MissingDataDates: []string{"2024-03-09"},
	}, nil)

	w := httptest.NewRecorder()
	newHistoryRouter(trends).ServeHTTP(w, httptest.NewRequest("GET", "/history?base=USD&target=EUR", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp HistoryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "2024-03-07", resp.StartDate)
	assert.Equal(t, "2024-03-10", resp.EndDate)
	assert.Len(t, resp.Labels, 4)
	assert.Equal(t, []float64{0.9, 0.91, 0, 0.92}, resp.TargetValues)
	assert.Equal(t, []string{"2024-03-09"}, resp.MissingDates)

	trends.AssertExpectations(t)
}

func TestHistoryHandlerRanges(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  entity.DateRange
	}{
		{name: "days", query: "days=0", want: mustRange(t, "2024-03-10", "2024-03-10")},
		{name: "longest days window", query: "days=30", want: mustRange(t, "2024-02-09", "2024-03-10")},
		{name: "explicit", query: "start=2024-02-01&end=2024-02-05", want: mustRange(t, "2024-02-01", "2024-02-05")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trends := new(mockTrendProvider)
			trends.On("Trend", mock.Anything, "GBP", "JPY", tt.want).
				Return(&service.TrendResult{MissingDataDates: []string{}}, nil)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/history?base=GBP&target=JPY&"+tt.query, nil)
			newHistoryRouter(trends).ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			trends.AssertExpectations(t)
		})
	}
}

func TestHistoryHandlerValidation(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "bad base", query: "base=US&target=EUR"},
		{name: "bad days", query: "base=USD&target=EUR&days=-1"},
		{name: "too many days", query: "base=USD&target=EUR&days=400"},
		{name: "one day over the limit", query: "base=USD&target=EUR&days=31"},
		{name: "days at max int", query: "base=USD&target=EUR&days=9223372036854775807"},
		{name: "start only", query: "base=USD&target=EUR&start=2024-01-01"},
		{name: "bad date", query: "base=USD&target=EUR&start=2024-01-01&end=01/05/2024"},
		{name: "reversed", query: "base=USD&target=EUR&start=2024-01-05&end=2024-01-01"},
		{name: "range too long", query: "base=USD&target=EUR&start=2024-01-01&end=2024-06-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trends := new(mockTrendProvider)

			w := httptest.NewRecorder()
			newHistoryRouter(trends).ServeHTTP(w, httptest.NewRequest("GET", "/history?"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			trends.AssertNotCalled(t, "Trend", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHistoryHandlerSyncFailure(t *testing.T) {
	trends := new(mockTrendProvider)
	trends.On("Trend", mock.Anything, "USD", "EUR", mock.Anything).
		Return(nil, errors.New("failed to save rate cache: read-only"))

	w := httptest.NewRecorder()
	newHistoryRouter(trends).ServeHTTP(w, httptest.NewRequest("GET", "/history?base=USD&target=EUR", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "read-only")
}

func TestHistoryHandlerInvalidRangeFromService(t *testing.T) {
	trends := new(mockTrendProvider)
	trends.On("Trend", mock.Anything, "USD", "EUR", mock.Anything).
		Return(nil, fmt.Errorf("%w: 2024-03-11 is after 2024-03-10", entity.ErrInvalidDateRange))

	w := httptest.NewRecorder()
	newHistoryRouter(trends).ServeHTTP(w, httptest.NewRequest("GET", "/history?base=USD&target=EUR", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
