// Package service internal/application/service/conversion_service.go
package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/cache"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/logger"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/metrics"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/middleware"
	"github.com/shopspring/decimal"
)

// DefaultWindowDays is how many days before today a backfill covers
const DefaultWindowDays = 3

// HistorySyncer backfills the rate cache for a date range
type HistorySyncer interface {
	Sync(ctx context.Context, base, target string, r entity.DateRange) (*entity.SyncResult, error)
}

// Calculate converts amount from base to target using rates quoted against the
// same reference currency, rounded to 2 decimal places.
func Calculate(amount float64, base, target string, snapshot entity.RateSnapshot) (float64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: %v", entity.ErrInvalidAmount, amount)
	}

	baseRate, ok := snapshot.Rate(base)
	if !ok {
		return 0, fmt.Errorf("%w: no rate for %s", entity.ErrRateUnavailable, base)
	}
	targetRate, ok := snapshot.Rate(target)
	if !ok {
		return 0, fmt.Errorf("%w: no rate for %s", entity.ErrRateUnavailable, target)
	}

	converted := decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(targetRate)).
		Div(decimal.NewFromFloat(baseRate)).
		Round(2)

	return converted.InexactFloat64(), nil
}

// ConversionService computes conversions from today's cached rates,
// backfilling the cache once when they are missing
type ConversionService struct {
	cache      *cache.RateCache
	syncer     HistorySyncer
	windowDays int
	now        func() time.Time
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// ConversionOption configures a ConversionService
type ConversionOption func(*ConversionService)

// WithWindowDays sets how many days before today a backfill covers
func WithWindowDays(days int) ConversionOption {
	return func(s *ConversionService) {
		if days >= 0 {
			s.windowDays = days
		}
	}
}

// WithClock replaces the source of "today"
func WithClock(now func() time.Time) ConversionOption {
	return func(s *ConversionService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewConversionService creates a new conversion service
func NewConversionService(rateCache *cache.RateCache, syncer HistorySyncer, log logger.Logger, m *metrics.Metrics, opts ...ConversionOption) *ConversionService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if m == nil {
		m = metrics.NewNopMetrics()
	}

	s := &ConversionService{
		cache:      rateCache,
		syncer:     syncer,
		windowDays: DefaultWindowDays,
		now:        time.Now,
		logger:     log,
		metrics:    m,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Convert converts amount from base to target at today's rates
func (s *ConversionService) Convert(ctx context.Context, amount float64, base, target string) (*entity.Conversion, error) {
	requestID := middleware.GetRequestID(ctx)
	now := s.now()
	today := entity.FormatDate(now)

	s.logger.Info("Converting amount", map[string]interface{}{
		"request_id": requestID,
		"amount":     amount,
		"base":       base,
		"target":     target,
		"date":       today,
	})

	snapshot, _ := s.cache.Get(today)

	if !hasPair(snapshot, base, target) {
		s.logger.Debug("Today's rates not cached, backfilling", map[string]interface{}{
			"request_id": requestID,
			"date":       today,
		})

		result, err := s.syncer.Sync(ctx, base, target, entity.LastDays(now, s.windowDays))
		if err != nil {
			s.metrics.ConversionsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to sync rates: %w", err)
		}

		if fresh, ok := result.FetchedData[today]; ok && hasPair(fresh, base, target) {
			snapshot = fresh
		}
	}

	converted, err := Calculate(amount, base, target, snapshot)
	if err != nil {
		s.metrics.ConversionsTotal.WithLabelValues("unavailable").Inc()
		s.logger.Warn("Conversion rate unavailable", map[string]interface{}{
			"request_id": requestID,
			"base":       base,
			"target":     target,
			"date":       today,
			"error":      err.Error(),
		})
		return nil, err
	}

	baseRate, _ := snapshot.Rate(base)
	targetRate, _ := snapshot.Rate(target)

	conversion := &entity.Conversion{
		Amount:          amount,
		Base:            base,
		Target:          target,
		Rate:            targetRate / baseRate,
		ConvertedAmount: converted,
		RateDate:        today,
	}

	s.metrics.ConversionsTotal.WithLabelValues("success").Inc()
	s.logger.Info("Conversion completed", map[string]interface{}{
		"request_id":       requestID,
		"amount":           amount,
		"base":             base,
		"target":           target,
		"rate":             conversion.Rate,
		"converted_amount": converted,
	})

	return conversion, nil
}

func hasPair(snapshot entity.RateSnapshot, base, target string) bool {
	_, okBase := snapshot.Rate(base)
	_, okTarget := snapshot.Rate(target)
	return okBase && okTarget
}
