// Package service internal/application/service/history_sync_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
	"github.com/damon-houk/rate-history-sync/internal/domain/repository"
	domainservice "github.com/damon-houk/rate-history-sync/internal/domain/service"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/cache"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/logger"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/metrics"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/middleware"
)

// HistorySyncService reconciles the rate cache against the rate source for a date range
type HistorySyncService struct {
	source  domainservice.RateSource
	cache   *cache.RateCache
	store   repository.RateStore
	logger  logger.Logger
	metrics *metrics.Metrics

	// one sync at a time per cache
	mu sync.Mutex
}

// NewHistorySyncService creates a new history sync service. A nil store disables persistence.
func NewHistorySyncService(source domainservice.RateSource, rateCache *cache.RateCache, store repository.RateStore, log logger.Logger, m *metrics.Metrics) *HistorySyncService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if m == nil {
		m = metrics.NewNopMetrics()
	}

	return &HistorySyncService{
		source:  source,
		cache:   rateCache,
		store:   store,
		logger:  log,
		metrics: m,
	}
}

// Sync prunes the cache to r, fetches every date of r that is not cached and
// merges the results back. Failures are recorded per date in MissingDataDates;
// the only errors returned are an invalid range, which leaves the cache
// untouched, and a failure to persist the cache.
//
// Fetches are not cancelled with ctx: once started they run to completion and
// their results stay in the cache.
func (s *HistorySyncService) Sync(ctx context.Context, base, target string, r entity.DateRange) (*entity.SyncResult, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	requestID := middleware.GetRequestID(ctx)
	ctx = context.WithoutCancel(ctx)
	startTime := time.Now()
	s.metrics.SyncRunsTotal.Inc()

	pruned := s.cache.Prune(r)
	s.metrics.CachePrunedTotal.Add(float64(pruned))

	dates := r.Dates()
	result := &entity.SyncResult{
		FetchedData:      make(entity.HistoricalRates, len(dates)),
		MissingDataDates: []string{},
	}

	var missing []string
	for _, date := range dates {
		if snapshot, ok := s.cache.Get(date); ok {
			result.FetchedData[date] = snapshot
			continue
		}
		missing = append(missing, date)
	}
	s.metrics.SyncDatesFromCache.Add(float64(len(dates) - len(missing)))

	s.logger.Info("Syncing historical rates", map[string]interface{}{
		"request_id": requestID,
		"base":       base,
		"target":     target,
		"range":      r.String(),
		"cached":     len(dates) - len(missing),
		"missing":    len(missing),
		"pruned":     pruned,
	})

	var (
		wg       sync.WaitGroup
		resultMu sync.Mutex
	)

	for _, date := range missing {
		wg.Add(1)
		go func(date string) {
			defer wg.Done()

			snapshot, err := s.fetchDate(ctx, date)

			resultMu.Lock()
			defer resultMu.Unlock()

			if err != nil {
				result.MissingDataDates = append(result.MissingDataDates, date)
				s.logDateFailure(requestID, date, err)
				return
			}

			s.cache.Merge(date, snapshot)
			result.FetchedData[date] = snapshot
		}(date)
	}

	wg.Wait()
	sort.Strings(result.MissingDataDates)

	s.metrics.SyncDatesFetched.Add(float64(len(missing) - len(result.MissingDataDates)))
	s.metrics.SyncDatesMissing.Add(float64(len(result.MissingDataDates)))
	s.metrics.SyncDuration.Observe(time.Since(startTime).Seconds())

	if err := s.persist(ctx); err != nil {
		s.logger.Error("Failed to persist rate cache", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.logger.Info("Historical rates synced", map[string]interface{}{
		"request_id":    requestID,
		"range":         r.String(),
		"resolved":      len(result.FetchedData),
		"missing_dates": result.MissingDataDates,
		"duration_ms":   time.Since(startTime).Milliseconds(),
	})

	return result, nil
}

// Persist saves the current cache contents to the store. It waits for a running sync.
func (s *HistorySyncService) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.persist(ctx)
}

func (s *HistorySyncService) persist(ctx context.Context) error {
	s.metrics.CacheEntries.Set(float64(s.cache.Len()))

	if s.store == nil {
		return nil
	}

	if err := s.store.Save(ctx, s.cache.Snapshot()); err != nil {
		s.metrics.CacheStoreFailures.WithLabelValues("save").Inc()
		return fmt.Errorf("failed to save rate cache: %w", err)
	}

	return nil
}

// Restore loads the store contents into the cache, replacing what it holds
func (s *HistorySyncService) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rates, err := s.store.Load(ctx)
	if err != nil {
		s.metrics.CacheStoreFailures.WithLabelValues("load").Inc()
		return fmt.Errorf("failed to load rate cache: %w", err)
	}

	s.cache.Load(rates)
	s.metrics.CacheEntries.Set(float64(s.cache.Len()))

	s.logger.Info("Rate cache restored", map[string]interface{}{
		"dates": s.cache.Len(),
	})

	return nil
}

// Trend syncs r and returns the two-currency chart series over it
func (s *HistorySyncService) Trend(ctx context.Context, base, target string, r entity.DateRange) (*TrendResult, error) {
	result, err := s.Sync(ctx, base, target, r)
	if err != nil {
		return nil, err
	}

	return &TrendResult{
		Series:           BuildChartSeries(result.FetchedData, base, target),
		MissingDataDates: result.MissingDataDates,
	}, nil
}

// TrendResult is a chart series plus the dates that could not be resolved
type TrendResult struct {
	Series           entity.ChartSeries
	MissingDataDates []string
}

func (s *HistorySyncService) fetchDate(ctx context.Context, date string) (entity.RateSnapshot, error) {
	day, err := entity.ParseDate(date)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.source.FetchForDate(ctx, day)
	if err != nil {
		return nil, err
	}
	if len(snapshot) == 0 {
		return nil, fmt.Errorf("%w: %s", entity.ErrNoDataForDate, date)
	}

	return snapshot, nil
}

func (s *HistorySyncService) logDateFailure(requestID, date string, err error) {
	fields := map[string]interface{}{
		"request_id": requestID,
		"date":       date,
		"error":      err.Error(),
	}

	if errors.Is(err, entity.ErrNoDataForDate) {
		s.logger.Info("No rates available for date", fields)
		return
	}
	s.logger.Warn("Failed to fetch rates for date", fields)
}
