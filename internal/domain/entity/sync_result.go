package entity

import (
	"fmt"
	"strconv"
)

// SyncResult is the outcome of reconciling the cache against the rate source
// for one date range. Every date of the range is in exactly one of the two fields.
type SyncResult struct {
	FetchedData      HistoricalRates `json:"fetched_data"`
	MissingDataDates []string        `json:"missing_data_dates"`
}

// ChartSeries holds two aligned value series over ascending dates
type ChartSeries struct {
	Labels         []string  `json:"labels"`
	BaseCurrency   string    `json:"base_currency"`
	TargetCurrency string    `json:"target_currency"`
	BaseValues     []float64 `json:"base_values"`
	TargetValues   []float64 `json:"target_values"`
}

// Conversion is a computed conversion between two currencies
type Conversion struct {
	Amount          float64 `json:"amount"`
	Base            string  `json:"base"`
	Target          string  `json:"target"`
	Rate            float64 `json:"rate"`
	ConvertedAmount float64 `json:"converted_amount"`
	RateDate        string  `json:"rate_date"`
}

// Summary renders the conversion as "100 USD = 90.00 EUR"
func (c Conversion) Summary() string {
	return FormatConversion(c.Amount, c.Base, c.ConvertedAmount, c.Target)
}

// FormatConversion renders an amount and its converted value for display
func FormatConversion(amount float64, base string, converted float64, target string) string {
	return fmt.Sprintf("%s %s = %.2f %s",
		strconv.FormatFloat(amount, 'f', -1, 64), base, converted, target)
}
