package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/expense"
)

var ErrInvalidRange = errors.New("invalid date range")

// Named ranges understood by ResolveNamedRange.
const (
	ThisMonth   = "this-month"
	LastMonth   = "last-month"
	LastNMonths = "last-n-months"
)

const maxTrendMonths = 12

// Range is an inclusive span of calendar days, both ends at UTC midnight.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewRange truncates both ends to calendar days and rejects Start after End.
func NewRange(start, end time.Time) (Range, error) {
	r := Range{Start: expense.Day(start), End: expense.Day(end)}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidRange)
	}
	if r.Start.After(r.End) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange,
			r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
	}
	return nil
}

// Contains reports whether the calendar day of t lies within the range.
func (r Range) Contains(t time.Time) bool {
	d := expense.Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Months returns the first day of every calendar month the range touches, in order.
func (r Range) Months() []time.Time {
	var out []time.Time
	for m := monthStart(r.Start); !m.After(r.End); m = m.AddDate(0, 1, 0) {
		out = append(out, m)
	}
	return out
}

// DateRange converts to the storage filter.
func (r Range) DateRange() *expense.DateRange {
	return &expense.DateRange{Start: r.Start, End: r.End}
}

func (r Range) String() string {
	return r.Start.Format(time.DateOnly) + ".." + r.End.Format(time.DateOnly)
}

// ResolveNamedRange turns a range name into dates. today should already be in the report time zone.
// n is only read for last-n-months and must be within 1..12.
func ResolveNamedRange(name string, n int, today time.Time) (Range, error) {
	today = expense.Day(today)
	first := monthStart(today)

	switch name {
	case ThisMonth:
		return Range{Start: first, End: today}, nil
	case LastMonth:
		return Range{Start: first.AddDate(0, -1, 0), End: first.AddDate(0, 0, -1)}, nil
	case LastNMonths:
		if n < 1 || n > maxTrendMonths {
			return Range{}, fmt.Errorf("%w: months must be between 1 and %d, got %d", ErrInvalidRange, maxTrendMonths, n)
		}
		return Range{Start: first.AddDate(0, -(n - 1), 0), End: today}, nil
	default:
		return Range{}, fmt.Errorf("%w: unknown range %q", ErrInvalidRange, name)
	}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
