package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveNamedRange(t *testing.T) {
	today := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		rangeName string
		n         int
		want      Range
	}{
		{"this month", ThisMonth, 0, Range{Start: day(2024, 3, 1), End: day(2024, 3, 15)}},
		{"last month", LastMonth, 0, Range{Start: day(2024, 2, 1), End: day(2024, 2, 29)}},
		{"last 1 month", LastNMonths, 1, Range{Start: day(2024, 3, 1), End: day(2024, 3, 15)}},
		{"last 3 months", LastNMonths, 3, Range{Start: day(2024, 1, 1), End: day(2024, 3, 15)}},
		{"last 12 months", LastNMonths, 12, Range{Start: day(2023, 4, 1), End: day(2024, 3, 15)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveNamedRange(tt.rangeName, tt.n, today)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveNamedRange_LastMonthAcrossYear(t *testing.T) {
	got, err := ResolveNamedRange(LastMonth, 0, day(2024, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, Range{Start: day(2023, 12, 1), End: day(2023, 12, 31)}, got)
}

func TestResolveNamedRange_Invalid(t *testing.T) {
	today := day(2024, 3, 15)
	for _, n := range []int{0, -1, 13} {
		_, err := ResolveNamedRange(LastNMonths, n, today)
		assert.ErrorIs(t, err, ErrInvalidRange, "n=%d", n)
	}
	_, err := ResolveNamedRange("last-week", 0, today)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestLastNMonthsTrendBuckets(t *testing.T) {
	f := newFixture("Food")
	rng, err := ResolveNamedRange(LastNMonths, 3, day(2024, 3, 15))
	require.NoError(t, err)

	r, err := Aggregate(nil, rng, f.set, Options{Trend: true})
	require.NoError(t, err)
	require.Len(t, r.Trend, 3)
	assert.Equal(t, []string{"2024-01", "2024-02", "2024-03"}, []string{r.Trend[0].Label, r.Trend[1].Label, r.Trend[2].Label})
	for i := 1; i < len(r.Trend); i++ {
		assert.True(t, r.Trend[i-1].Month.Before(r.Trend[i].Month))
	}
}

func TestRange(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	r, err := NewRange(time.Date(2024, 1, 1, 23, 0, 0, 0, ist), time.Date(2024, 1, 31, 1, 0, 0, 0, ist))
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 1), r.Start)
	assert.Equal(t, day(2024, 1, 31), r.End)
	assert.Equal(t, "2024-01-01..2024-01-31", r.String())

	assert.True(t, r.Contains(day(2024, 1, 31)))
	assert.False(t, r.Contains(day(2024, 2, 1)))
	assert.Len(t, r.Months(), 1)

	single, err := NewRange(day(2024, 5, 5), day(2024, 5, 5))
	require.NoError(t, err)
	assert.True(t, single.Contains(day(2024, 5, 5)))

	_, err = NewRange(day(2024, 5, 6), day(2024, 5, 5))
	assert.ErrorIs(t, err, ErrInvalidRange)
}
