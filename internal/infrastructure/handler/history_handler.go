package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/damon-houk/rate-history-sync/internal/application/service"
	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/logger"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// MaxHistoryDays bounds the fan-out of a single history request
const MaxHistoryDays = 31

// TrendProvider syncs a date range and returns its chart series
type TrendProvider interface {
	Trend(ctx context.Context, base, target string, r entity.DateRange) (*service.TrendResult, error)
}

// HistoryHandler handles HTTP requests for historical rate series
type HistoryHandler struct {
	trends      TrendProvider
	defaultDays int
	now         func() time.Time
	logger      logger.Logger
}

// NewHistoryHandler creates a new history handler. defaultDays is the trailing
// window used when the request names no dates.
func NewHistoryHandler(trends TrendProvider, defaultDays int, now func() time.Time, log logger.Logger) *HistoryHandler {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &HistoryHandler{
		trends:      trends,
		defaultDays: defaultDays,
		now:         now,
		logger:      log,
	}
}

// History handles retrieving the base and target series over a date range
func (h *HistoryHandler) History(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()

	base, ok := normalizeCurrency(query.Get("base"))
	if !ok {
		sendErrorResponse(w, h.logger, "Invalid base currency",
			"The 'base' query parameter must be a 3 letter currency code (e.g., USD)", http.StatusBadRequest, requestID)
		return
	}

	target, ok := normalizeCurrency(query.Get("target"))
	if !ok {
		sendErrorResponse(w, h.logger, "Invalid target currency",
			"The 'target' query parameter must be a 3 letter currency code (e.g., EUR)", http.StatusBadRequest, requestID)
		return
	}

	dateRange, msg := h.parseRange(query.Get("start"), query.Get("end"), query.Get("days"))
	if msg != "" {
		h.logger.Warn("Invalid history range", map[string]interface{}{
			"request_id": requestID,
			"query":      r.URL.RawQuery,
			"reason":     msg,
		})
		sendErrorResponse(w, h.logger, "Invalid date range", msg, http.StatusBadRequest, requestID)
		return
	}

	trend, err := h.trends.Trend(r.Context(), base, target, dateRange)
	if errors.Is(err, entity.ErrInvalidDateRange) {
		sendErrorResponse(w, h.logger, "Invalid date range", err.Error(), http.StatusBadRequest, requestID)
		return
	}
	if err != nil {
		h.logger.Error("Failed to load historical rates", map[string]interface{}{
			"request_id": requestID,
			"range":      dateRange.String(),
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Error fetching historical rates",
			"Historical rates could not be loaded. Please try again later.", http.StatusInternalServerError, requestID)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, HistoryResponse{
		Base:         base,
		Target:       target,
		StartDate:    entity.FormatDate(dateRange.Start),
		EndDate:      entity.FormatDate(dateRange.End),
		Labels:       trend.Series.Labels,
		BaseValues:   trend.Series.BaseValues,
		TargetValues: trend.Series.TargetValues,
		MissingDates: trend.MissingDataDates,
	})
}

// parseRange resolves the request range. It returns a client-facing message when the input is invalid.
func (h *HistoryHandler) parseRange(start, end, days string) (entity.DateRange, string) {
	if start == "" && end == "" {
		n := h.defaultDays
		if days != "" {
			parsed, err := strconv.Atoi(days)
			if err != nil || parsed < 0 {
				return entity.DateRange{}, "The 'days' query parameter must be a non-negative integer"
			}
			n = parsed
		}
		if n >= MaxHistoryDays {
			return entity.DateRange{}, "The requested range is too long"
		}
		return entity.LastDays(h.now(), n), ""
	}

	if start == "" || end == "" {
		return entity.DateRange{}, "Both 'start' and 'end' are required when either is given"
	}

	startDate, err := entity.ParseDate(start)
	if err != nil {
		return entity.DateRange{}, "Dates must be in YYYY-MM-DD format"
	}
	endDate, err := entity.ParseDate(end)
	if err != nil {
		return entity.DateRange{}, "Dates must be in YYYY-MM-DD format"
	}

	dateRange, err := entity.NewDateRange(startDate, endDate)
	if err != nil {
		return entity.DateRange{}, "The start date must not be after the end date"
	}
	if dateRange.Len() > MaxHistoryDays {
		return entity.DateRange{}, "The requested range is too long"
	}

	return dateRange, ""
}

// RegisterRoutes registers the history handler routes
func (h *HistoryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/history", h.History).Methods("GET")

	h.logger.Info("History routes registered", map[string]interface{}{
		"routes": []string{
			"GET /history",
		},
	})
}
