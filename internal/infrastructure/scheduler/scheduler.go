// Package scheduler runs the periodic cache warm-up.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/logger"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/middleware"
	"github.com/robfig/cron/v3"
)

// Syncer reconciles the cache for a date range
type Syncer interface {
	Sync(ctx context.Context, base, target string, r entity.DateRange) (*entity.SyncResult, error)
}

// Pair is a base/target currency pair to keep warm
type Pair struct {
	Base   string
	Target string
}

// Scheduler manages the warm-up cron task
type Scheduler struct {
	cron       *cron.Cron
	syncer     Syncer
	pairs      []Pair
	windowDays int
	now        func() time.Time
	logger     logger.Logger
	ctx        context.Context
}

// NewScheduler creates a new Scheduler. Schedules use the six-field cron format with seconds.
func NewScheduler(ctx context.Context, syncer Syncer, pairs []Pair, windowDays int, now func() time.Time, log logger.Logger) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		syncer:     syncer,
		pairs:      pairs,
		windowDays: windowDays,
		now:        now,
		logger:     log,
		ctx:        ctx,
	}
}

// Register adds the warm-up task on spec
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.WarmNow); err != nil {
		return fmt.Errorf("register warm-up task: %w", err)
	}

	s.logger.Info("Cache warm-up scheduled", map[string]interface{}{
		"schedule": spec,
		"pairs":    len(s.pairs),
	})
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", nil)
}

// Stop stops the scheduler and waits for a running task to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped", nil)
}

// WarmNow syncs the trailing window for every configured pair
func (s *Scheduler) WarmNow() {
	r := entity.LastDays(s.now(), s.windowDays)

	for _, p := range s.pairs {
		if s.ctx.Err() != nil {
			return
		}

		ctx := middleware.WithRequestID(s.ctx, "warmup-"+middleware.NewRequestID())
		result, err := s.syncer.Sync(ctx, p.Base, p.Target, r)
		if err != nil {
			s.logger.Error("Cache warm-up failed", map[string]interface{}{
				"request_id": middleware.GetRequestID(ctx),
				"base":       p.Base,
				"target":     p.Target,
				"error":      err.Error(),
			})
			continue
		}

		s.logger.Info("Cache warmed", map[string]interface{}{
			"request_id":    middleware.GetRequestID(ctx),
			"base":          p.Base,
			"target":        p.Target,
			"range":         r.String(),
			"missing_dates": result.MissingDataDates,
		})
	}
}
