// Package repository internal/domain/repository/rate_store.go
package repository

import (
	"context"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
)

// RateStore defines the interface for persisting the historical rate cache
type RateStore interface {
	// Load returns the last saved cache contents, or an empty mapping when nothing was saved
	Load(ctx context.Context) (entity.HistoricalRates, error)

	// Save replaces the stored cache contents with rates
	Save(ctx context.Context, rates entity.HistoricalRates) error
}
