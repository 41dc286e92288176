package entity

import (
	"sort"
	"time"
)

// DateLayout is the ISO calendar date format used for every cache key
const DateLayout = "2006-01-02"

// RateSnapshot maps a currency code to its rate against the reference currency
// for a single day
type RateSnapshot map[string]float64

// Rate returns the rate for a currency. Non-positive values count as absent.
func (s RateSnapshot) Rate(currency string) (float64, bool) {
	rate, ok := s[currency]
	if !ok || rate <= 0 {
		return 0, false
	}
	return rate, true
}

// Currencies returns the currency codes in the snapshot in ascending order
func (s RateSnapshot) Currencies() []string {
	codes := make([]string, 0, len(s))
	for code := range s {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Clone returns an independent copy of the snapshot
func (s RateSnapshot) Clone() RateSnapshot {
	if s == nil {
		return nil
	}
	out := make(RateSnapshot, len(s))
	for code, rate := range s {
		out[code] = rate
	}
	return out
}

// HistoricalRates maps an ISO date to the snapshot for that day
type HistoricalRates map[string]RateSnapshot

// SortedDates returns the date keys in chronological order
func (h HistoricalRates) SortedDates() []string {
	dates := make([]string, 0, len(h))
	for date := range h {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// Clone returns a deep copy
func (h HistoricalRates) Clone() HistoricalRates {
	out := make(HistoricalRates, len(h))
	for date, snapshot := range h {
		out[date] = snapshot.Clone()
	}
	return out
}

// FormatDate renders a time as an ISO date key in UTC
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses an ISO date key
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// truncateDay drops the time-of-day component, keeping the UTC calendar date
func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
