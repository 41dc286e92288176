// Package handler internal/infrastructure/handler/conversion_handler.go
package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/logger"
	"github.com/damon-houk/rate-history-sync/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// Converter computes conversions at today's rates
type Converter interface {
	Convert(ctx context.Context, amount float64, base, target string) (*entity.Conversion, error)
}

// CurrencyLister lists the available currency codes
type CurrencyLister interface {
	ListCurrencies(ctx context.Context) ([]string, error)
}

// ConversionHandler handles HTTP requests for currency conversion
type ConversionHandler struct {
	converter  Converter
	currencies CurrencyLister
	logger     logger.Logger
}

// NewConversionHandler creates a new conversion handler
func NewConversionHandler(converter Converter, currencies CurrencyLister, log logger.Logger) *ConversionHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &ConversionHandler{
		converter:  converter,
		currencies: currencies,
		logger:     log,
	}
}

// Convert handles converting an amount between two currencies at today's rates
func (h *ConversionHandler) Convert(w http.ResponseWriter, r *http.Request) {
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

	amount, err := strconv.ParseFloat(query.Get("amount"), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		h.logger.Warn("Invalid amount", map[string]interface{}{
			"request_id": requestID,
			"amount":     query.Get("amount"),
		})
		sendErrorResponse(w, h.logger, "Invalid amount",
			"The 'amount' query parameter must be a non-negative number", http.StatusBadRequest, requestID)
		return
	}

	conversion, err := h.converter.Convert(r.Context(), amount, base, target)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrRateUnavailable):
			sendErrorResponse(w, h.logger, "Rate unavailable",
				"No rates for today are available for the requested currency pair", http.StatusUnprocessableEntity, requestID)
		case errors.Is(err, entity.ErrInvalidAmount):
			sendErrorResponse(w, h.logger, "Invalid amount",
				"The 'amount' query parameter must be a finite number", http.StatusBadRequest, requestID)
		default:
			h.logger.Error("Unexpected error in conversion handler", map[string]interface{}{
				"request_id": requestID,
				"base":       base,
				"target":     target,
				"error":      err.Error(),
			})
			sendErrorResponse(w, h.logger, "Conversion failed",
				"An unexpected error occurred. Please try again later.", http.StatusInternalServerError, requestID)
		}
		return
	}

	writeJSON(w, h.logger, http.StatusOK, newConversionResponse(conversion))
}

// ListCurrencies handles listing the currencies available for conversion
func (h *ConversionHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	currencies, err := h.currencies.ListCurrencies(r.Context())
	if err != nil {
		h.logger.Error("Failed to list currencies", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Error fetching currencies",
			"The currency list could not be loaded. Please try again later.", http.StatusServiceUnavailable, requestID)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, CurrenciesResponse{Currencies: currencies})
}

// RegisterRoutes registers the conversion handler routes
func (h *ConversionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/convert", h.Convert).Methods("GET")
	router.HandleFunc("/currencies", h.ListCurrencies).Methods("GET")

	h.logger.Info("Conversion routes registered", map[string]interface{}{
		"routes": []string{
			"GET /convert",
			"GET /currencies",
		},
	})
}
