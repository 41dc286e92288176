package service

import (
	"context"
	"fmt"
	"time"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
	domainservice "github.com/damon-houk/rate-history-sync/internal/domain/service"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/cache"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/logger"
)

// CurrencyService lists the currency codes available for conversion
type CurrencyService struct {
	cache  *cache.RateCache
	source domainservice.RateSource
	now    func() time.Time
	logger logger.Logger
}

// NewCurrencyService creates a new currency service. A nil clock uses time.Now.
func NewCurrencyService(rateCache *cache.RateCache, source domainservice.RateSource, now func() time.Time, log logger.Logger) *CurrencyService {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &CurrencyService{
		cache:  rateCache,
		source: source,
		now:    now,
		logger: log,
	}
}

// ListCurrencies returns the codes of today's cached snapshot, or of the
// latest rates when today is not cached
func (s *CurrencyService) ListCurrencies(ctx context.Context) ([]string, error) {
	today := entity.FormatDate(s.now())

	if snapshot, ok := s.cache.Get(today); ok && len(snapshot) > 0 {
		return snapshot.Currencies(), nil
	}

	s.logger.Debug("Loading currency list from latest rates", map[string]interface{}{
		"date": today,
	})

	latest, err := s.source.FetchLatest(ctx)
	if err != nil {
		s.logger.Error("Failed to load currencies", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to load currencies: %w", err)
	}

	return latest.Currencies(), nil
}
