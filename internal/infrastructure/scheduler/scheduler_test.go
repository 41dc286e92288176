package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/logger"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/middleware"
	"github.com/damon-houk/rate-history-sync/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func quietLogger() logger.Logger {
	return logger.NewJSONLogger(io.Discard, logger.ErrorLevel)
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
}

func TestWarmNowSyncsEveryPair(t *testing.T) {
	syncer := new(mocks.MockHistorySyncer)
	want := entity.LastDays(fixedNow(), 3)

	hasRequestID := mock.MatchedBy(func(ctx context.Context) bool {
		return middleware.GetRequestID(ctx) != "unknown"
	})

	syncer.On("Sync", hasRequestID, "USD", "EUR", want).
		Return(&entity.SyncResult{FetchedData: entity.HistoricalRates{}, MissingDataDates: []string{}}, nil).Once()
	syncer.On("Sync", hasRequestID, "GBP", "JPY", want).
		Return(nil, errors.New("store down")).Once()

	s := NewScheduler(context.Background(), syncer,
		[]Pair{{Base: "USD", Target: "EUR"}, {Base: "GBP", Target: "JPY"}},
		3, fixedNow, quietLogger())

	s.WarmNow()

	syncer.AssertExpectations(t)
}

func TestWarmNowStopsWhenCancelled(t *testing.T) {
	syncer := new(mocks.MockHistorySyncer)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScheduler(ctx, syncer, []Pair{{Base: "USD", Target: "EUR"}}, 3, fixedNow, quietLogger())
	s.WarmNow()

	syncer.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), new(mocks.MockHistorySyncer), nil, 3, fixedNow, quietLogger())

	assert.NoError(t, s.Register("0 5 0 * * *"))
	assert.Error(t, s.Register("not a schedule"))

	s.Start()
	s.Stop()
}
