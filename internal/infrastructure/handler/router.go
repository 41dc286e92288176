package handler

import (
	"net/http"

	"github.com/damon-houk/rate-history-sync/internal/infrastructure/logger"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/metrics"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteRegistrar is implemented by every handler
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// NewRouter wires the middleware chain, the handlers, /health and /metrics
func NewRouter(log logger.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer, handlers ...RouteRegistrar) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.MetricsMiddleware(m))

	for _, h := range handlers {
		h.RegisterRoutes(router)
	}

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, log, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	return router
}
