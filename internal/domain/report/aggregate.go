// Package report aggregates a user's expenses over a date range into category
// totals and, optionally, a month-by-month trend.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/catalog"
	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/expense"
	"github.com/FACorreiaa/smart-expense-tracker/pkg/money"
)

// CategorySet is the catalog snapshot a report is computed against.
type CategorySet struct {
	byID     map[uuid.UUID]catalog.Category
	fallback catalog.Category
}

// NewCategorySet indexes cats. Expenses whose category is not in cats are reported under fallback.
func NewCategorySet(cats []catalog.Category, fallback catalog.Category) CategorySet {
	byID := make(map[uuid.UUID]catalog.Category, len(cats)+1)
	for _, c := range cats {
		byID[c.ID] = c
	}
	byID[fallback.ID] = fallback
	return CategorySet{byID: byID, fallback: fallback}
}

// Lookup returns the category for id, or the fallback.
func (s CategorySet) Lookup(id uuid.UUID) catalog.Category {
	if c, ok := s.byID[id]; ok {
		return c
	}
	return s.fallback
}

// Options tune Aggregate.
type Options struct {
	Trend    bool
	Currency string
}

// CategoryTotal is one row of a breakdown.
type CategoryTotal struct {
	CategoryID  uuid.UUID       `json:"category_id"`
	Name        string          `json:"name"`
	Emoji       *string         `json:"emoji,omitempty"`
	AmountMinor int64           `json:"amount_minor"`
	Amount      string          `json:"amount"`
	Count       int             `json:"count"`
	Percent     decimal.Decimal `json:"percent"`
}

// MonthBucket is the breakdown for one calendar month of the range.
type MonthBucket struct {
	Month      time.Time       `json:"month"`
	Label      string          `json:"label"`
	TotalMinor int64           `json:"total_minor"`
	Total      string          `json:"total"`
	Count      int             `json:"count"`
	ByCategory []CategoryTotal `json:"by_category"`
}

// Report is the result of Aggregate. ByCategory is ranked by amount, largest first.
type Report struct {
	Range      Range           `json:"range"`
	Currency   string          `json:"currency"`
	TotalMinor int64           `json:"total_minor"`
	Total      string          `json:"total"`
	Count      int             `json:"count"`
	ByCategory []CategoryTotal `json:"by_category"`
	Trend      []MonthBucket   `json:"trend,omitempty"`
}

// Top returns the largest category, if any.
func (r *Report) Top() (CategoryTotal, bool) {
	if len(r.ByCategory) == 0 {
		return CategoryTotal{}, false
	}
	return r.ByCategory[0], true
}

type accumulator struct {
	total  int64
	count  int
	byCat  map[uuid.UUID]*CategoryTotal
	layout []uuid.UUID
}

func newAccumulator() *accumulator {
	return &accumulator{byCat: make(map[uuid.UUID]*CategoryTotal)}
}

func (a *accumulator) add(cat catalog.Category, amount int64) {
	a.total += amount
	a.count++
	ct, ok := a.byCat[cat.ID]
	if !ok {
		ct = &CategoryTotal{CategoryID: cat.ID, Name: cat.Name, Emoji: cat.Emoji}
		a.byCat[cat.ID] = ct
		a.layout = append(a.layout, cat.ID)
	}
	ct.AmountMinor += amount
	ct.Count++
}

func (a *accumulator) ranked(currency string) []CategoryTotal {
	total := money.New(a.total, currency)
	out := make([]CategoryTotal, 0, len(a.layout))
	for _, id := range a.layout {
		ct := *a.byCat[id]
		amount := money.New(ct.AmountMinor, currency)
		ct.Amount = amount.String()
		ct.Percent = amount.PercentageOf(total)
		out = append(out, ct)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AmountMinor != out[j].AmountMinor {
			return out[i].AmountMinor > out[j].AmountMinor
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Aggregate sums expenses within rng by category. Both ends of rng are truncated to calendar
// days first. It performs no I/O and never validates the expenses themselves; only the range
// can make it fail.
func Aggregate(expenses []expense.Expense, rng Range, cats CategorySet, opts Options) (*Report, error) {
	rng, err := NewRange(rng.Start, rng.End)
	if err != nil {
		return nil, err
	}
	currency := opts.Currency
	if currency == "" {
		currency = money.INR
	}

	all := newAccumulator()
	var months []time.Time
	buckets := make(map[time.Time]*accumulator)
	if opts.Trend {
		months = rng.Months()
		for _, m := range months {
			buckets[m] = newAccumulator()
		}
	}

	for _, e := range expenses {
		if !rng.Contains(e.Date) {
			continue
		}
		cat := cats.Lookup(e.CategoryID)
		all.add(cat, e.AmountMinor)
		if opts.Trend {
			buckets[monthStart(expense.Day(e.Date))].add(cat, e.AmountMinor)
		}
	}

	r := &Report{
		Range:      rng,
		Currency:   currency,
		TotalMinor: all.total,
		Total:      money.New(all.total, currency).String(),
		Count:      all.count,
		ByCategory: all.ranked(currency),
	}

	if opts.Trend {
		r.Trend = make([]MonthBucket, len(months))
		for i, m := range months {
			b := buckets[m]
			r.Trend[i] = MonthBucket{
				Month:      m,
				Label:      m.Format("2006-01"),
				TotalMinor: b.total,
				Total:      money.New(b.total, currency).String(),
				Count:      b.count,
				ByCategory: b.ranked(currency),
			}
		}
	}

	return r, nil
}
