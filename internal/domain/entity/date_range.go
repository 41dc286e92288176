package entity

import (
	"fmt"
	"time"
)

// MaxRangeDays bounds the span LastDays will build
const MaxRangeDays = 3660

// DateRange is an inclusive span of calendar days
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range from two instants, dropping their time-of-day
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: truncateDay(start), End: truncateDay(end)}
	if r.Start.After(r.End) {
		return DateRange{}, fmt.Errorf("%w: %s is after %s",
			ErrInvalidDateRange, FormatDate(r.Start), FormatDate(r.End))
	}
	return r, nil
}

// LastDays returns the range covering end and the n days before it.
// n is clamped to [0, MaxRangeDays].
func LastDays(end time.Time, n int) DateRange {
	if n < 0 {
		n = 0
	}
	if n > MaxRangeDays {
		n = MaxRangeDays
	}
	end = truncateDay(end)
	return DateRange{Start: end.AddDate(0, 0, -n), End: end}
}

// Validate rejects zero and inverted ranges
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: unset bound", ErrInvalidDateRange)
	}
	if r.Start.After(r.End) {
		return fmt.Errorf("%w: %s is after %s",
			ErrInvalidDateRange, FormatDate(r.Start), FormatDate(r.End))
	}
	return nil
}

// Dates enumerates every day in the range as ISO keys, ascending
func (r DateRange) Dates() []string {
	var dates []string
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		dates = append(dates, FormatDate(d))
	}
	return dates
}

// Contains reports whether an ISO date key falls inside the range.
// Keys that do not parse are never contained.
func (r DateRange) Contains(date string) bool {
	d, err := ParseDate(date)
	if err != nil {
		return false
	}
	return !d.Before(r.Start) && !d.After(r.End)
}

// Len returns the number of days in the range
func (r DateRange) Len() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

func (r DateRange) String() string {
	return FormatDate(r.Start) + ".." + FormatDate(r.End)
}
