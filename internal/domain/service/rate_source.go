package service

import (
	"context"
	"time"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
)

// RateSource defines the interface for the remote daily rate provider
type RateSource interface {
	// FetchLatest retrieves the most recent snapshot
	FetchLatest(ctx context.Context) (entity.RateSnapshot, error)

	// FetchForDate retrieves the snapshot for a calendar date. It returns
	// entity.ErrNoDataForDate when the source has nothing for that day.
	FetchForDate(ctx context.Context, date time.Time) (entity.RateSnapshot, error)
}
