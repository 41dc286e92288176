// internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/logger"
	"github.com/stretchr/testify/mock"
)

// MockRateSource mocks the RateSource interface
type MockRateSource struct {
	mock.Mock
}

func (m *MockRateSource) FetchLatest(ctx context.Context) (entity.RateSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entity.RateSnapshot), args.Error(1)
}

func (m *MockRateSource) FetchForDate(ctx context.Context, date time.Time) (entity.RateSnapshot, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entity.RateSnapshot), args.Error(1)
}

// MockRateStore mocks the RateStore interface
type MockRateStore struct {
	mock.Mock
}

func (m *MockRateStore) Load(ctx context.Context) (entity.HistoricalRates, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entity.HistoricalRates), args.Error(1)
}

func (m *MockRateStore) Save(ctx context.Context, rates entity.HistoricalRates) error {
	args := m.Called(ctx, rates)
	return args.Error(0)
}

// MockHistorySyncer mocks the history sync used by conversions
type MockHistorySyncer struct {
	mock.Mock
}

func (m *MockHistorySyncer) Sync(ctx context.Context, base, target string, r entity.DateRange) (*entity.SyncResult, error) {
	args := m.Called(ctx, base, target, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SyncResult), args.Error(1)
}

// MockConverter mocks the conversion service used by handlers
type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) Convert(ctx context.Context, amount float64, base, target string) (*entity.Conversion, error) {
	args := m.Called(ctx, amount, base, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Conversion), args.Error(1)
}

// MockCurrencyLister mocks the currency service used by handlers
type MockCurrencyLister struct {
	mock.Mock
}

func (m *MockCurrencyLister) ListCurrencies(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockLogger mocks the logger interface. Child loggers share the parent's expectations.
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Info(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Warn(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Error(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Fatal(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) WithField(key string, value interface{}) logger.Logger {
	return m
}

func (m *MockLogger) WithFields(fields map[string]interface{}) logger.Logger {
	return m
}
