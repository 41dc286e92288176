package handler

import "github.com/damon-houk/rate-history-sync/internal/domain/entity"

// ConversionResponse represents the response for the conversion endpoint
type ConversionResponse struct {
	Amount          float64 `json:"amount"`
	Base            string  `json:"base"`
	Target          string  `json:"target"`
	Rate            float64 `json:"rate"`
	ConvertedAmount float64 `json:"converted_amount"`
	RateDate        string  `json:"rate_date"`
	Summary         string  `json:"summary"`
}

// HistoryResponse represents the response for the history endpoint
type HistoryResponse struct {
	Base         string    `json:"base"`
	Target       string    `json:"target"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	Labels       []string  `json:"labels"`
	BaseValues   []float64 `json:"base_values"`
	TargetValues []float64 `json:"target_values"`
	MissingDates []string  `json:"missing_dates"`
}

// CurrenciesResponse represents the response for the currency list endpoint
type CurrenciesResponse struct {
	Currencies []string `json:"currencies"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

func newConversionResponse(c *entity.Conversion) ConversionResponse {
	return ConversionResponse{
		Amount:          c.Amount,
		Base:            c.Base,
		Target:          c.Target,
		Rate:            c.Rate,
		ConvertedAmount: c.ConvertedAmount,
		RateDate:        c.RateDate,
		Summary:         c.Summary(),
	}
}
