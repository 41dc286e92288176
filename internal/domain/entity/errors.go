package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDataForDate is returned when the rate source answered but had no rates for a date
	ErrNoDataForDate = errors.New("no data for date")

	// ErrRateUnavailable is returned when a conversion lacks a usable pair of rates
	ErrRateUnavailable = errors.New("rate unavailable")

	// ErrRateLimited marks a response rejected by the rate source's quota (HTTP 403/429)
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidDateRange is returned when a range starts after it ends
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidAmount is returned for NaN or infinite conversion amounts
	ErrInvalidAmount = errors.New("invalid amount")
)

// FetchError is the terminal failure of a request after every retry was spent
type FetchError struct {
	URL        string
	Attempts   int
	StatusCode int
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to execute request after %d attempts (status %d): %v", e.Attempts, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("failed to execute request after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}
