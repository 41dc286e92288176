package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damon-houk/rate-history-sync/internal/application/service"
	"github.com/damon-houk/rate-history-sync/internal/domain/repository"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/api"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/cache"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/config"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/db"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/handler"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/logger"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/metrics"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/scheduler"
	"github.com/dgraph-io/badger/v3"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", map[string]interface{}{"path": cfgPath, "error": err.Error()})
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	log := logger.NewJSONLogger(os.Stdout, level).WithField("service", "rate-history-sync")
	logger.SetDefaultLogger(log)
	if err != nil {
		log.Warn("Unknown log level, using INFO", map[string]interface{}{"level": cfg.Log.Level})
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting rate history sync service", map[string]interface{}{
		"addr":         cfg.Server.Addr,
		"store_driver": cfg.Store.Driver,
		"rates_api":    cfg.RatesAPI.BaseURL,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open rate store", map[string]interface{}{"error": err.Error()})
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	fetcher := api.NewRetryingFetcher(&http.Client{Timeout: cfg.RatesAPI.Timeout}, log,
		api.WithMaxRetries(*cfg.RatesAPI.MaxRetries),
		api.WithBackoff(cfg.RatesAPI.Backoff),
		api.WithMetrics(m),
	)
	client := api.NewRatesAPIClient(cfg.RatesAPI.BaseURL, cfg.RatesAPI.APIKey, fetcher, log)

	rateCache := cache.NewRateCache()
	syncService := service.NewHistorySyncService(client, rateCache, store, log, m)
	if err := syncService.Restore(ctx); err != nil {
		// start cold rather than refuse to serve
		log.Error("Failed to restore rate cache", map[string]interface{}{"error": err.Error()})
	}

	conversionService := service.NewConversionService(rateCache, syncService, log, m,
		service.WithWindowDays(*cfg.Sync.WindowDays))
	currencyService := service.NewCurrencyService(rateCache, client, nil, log)

	router := handler.NewRouter(log, m, registry,
		handler.NewConversionHandler(conversionService, currencyService, log),
		handler.NewHistoryHandler(syncService, *cfg.Sync.WindowDays, nil, log),
	)

	if cfg.Sync.WarmCron != "" {
		sched := scheduler.NewScheduler(ctx, syncService, warmPairs(cfg), *cfg.Sync.WindowDays, nil, log)
		if err := sched.Register(cfg.Sync.WarmCron); err != nil {
			log.Fatal("Failed to schedule cache warm-up", map[string]interface{}{"error": err.Error()})
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("Server listening", map[string]interface{}{"addr": cfg.Server.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", map[string]interface{}{"error": err.Error()})
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Info("Shutdown signal received, stopping", nil)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	if err := syncService.Persist(shutdownCtx); err != nil {
		log.Error("Failed to persist rate cache on shutdown", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Server stopped", nil)
}

// openStore opens the configured rate store and returns its closer
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.RateStore, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, nil, err
		}

		return db.NewRedisRateStore(rdb, cfg.Store.Redis.Key), func() {
			if err := rdb.Close(); err != nil {
				log.Error("Error closing Redis client", map[string]interface{}{"error": err.Error()})
			}
		}, nil

	default:
		if err := os.MkdirAll(cfg.Store.BadgerPath, 0o755); err != nil {
			return nil, nil, err
		}

		badgerOpts := badger.DefaultOptions(cfg.Store.BadgerPath)
		badgerOpts.Logger = nil // Disable Badger's default logger

		badgerDB, err := badger.Open(badgerOpts)
		if err != nil {
			return nil, nil, err
		}

		return db.NewBadgerRateStore(badgerDB), func() {
			if err := badgerDB.Close(); err != nil {
				log.Error("Error closing BadgerDB", map[string]interface{}{"error": err.Error()})
			}
		}, nil
	}
}

func warmPairs(cfg *config.Config) []scheduler.Pair {
	pairs := make([]scheduler.Pair, 0, len(cfg.Sync.WarmPairs))
	for _, p := range cfg.Sync.WarmPairs {
		base, target, err := config.ParsePair(p)
		if err != nil {
			continue
		}
		pairs = append(pairs, scheduler.Pair{Base: base, Target: target})
	}
	return pairs
}
