package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateSnapshotRate(t *testing.T) {
	s := RateSnapshot{"USD": 1.1, "ZERO": 0, "NEG": -1}

	rate, ok := s.Rate("USD")
	assert.True(t, ok)
	assert.Equal(t, 1.1, rate)

	_, ok = s.Rate("ZERO")
	assert.False(t, ok)
	_, ok = s.Rate("NEG")
	assert.False(t, ok)
	_, ok = s.Rate("EUR")
	assert.False(t, ok)

	var empty RateSnapshot
	_, ok = empty.Rate("USD")
	assert.False(t, ok)
}

func TestHistoricalRatesSortedDates(t *testing.T) {
	h := HistoricalRates{
		"2024-01-10": {},
		"2023-12-31": {},
		"2024-01-02": {},
	}

	assert.Equal(t, []string{"2023-12-31", "2024-01-02", "2024-01-10"}, h.SortedDates())
}

func TestHistoricalRatesClone(t *testing.T) {
	h := HistoricalRates{"2024-01-01": {"USD": 1}}

	c := h.Clone()
	c["2024-01-01"]["USD"] = 2
	c["2024-01-02"] = RateSnapshot{}

	assert.Equal(t, 1.0, h["2024-01-01"]["USD"])
	assert.Len(t, h, 1)
}

func TestConversionSummary(t *testing.T) {
	c := Conversion{Amount: 100, Base: "USD", Target: "EUR", ConvertedAmount: 90}
	assert.Equal(t, "100 USD = 90.00 EUR", c.Summary())

	assert.Equal(t, "12.5 GBP = 1234.57 JPY", FormatConversion(12.5, "GBP", 1234.567, "JPY"))
}

func TestFetchError(t *testing.T) {
	err := &FetchError{URL: "http://x", Attempts: 4, StatusCode: 429, Cause: ErrRateLimited}

	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, "failed to execute request after 4 attempts (status 429): rate limit exceeded", err.Error())

	transport := &FetchError{Attempts: 2, Cause: errors.New("connection refused")}
	assert.Equal(t, "failed to execute request after 2 attempts: connection refused", transport.Error())
}
