package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/catalog"
	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/expense"
	"github.com/FACorreiaa/smart-expense-tracker/pkg/money"
)

// ExpenseLister is the storage the report service reads from.
type ExpenseLister interface {
	ListExpenses(ctx context.Context, userID uuid.UUID, rng *expense.DateRange) ([]expense.Expense, error)
}

// Request selects a report. Named wins over Start/End when set.
type Request struct {
	Start time.Time
	End   time.Time
	Named string
	N     int
	Trend bool
}

// Summary is the dashboard overview.
type Summary struct {
	Currency          string          `json:"currency"`
	TotalMinor        int64           `json:"total_minor"`
	Total             string          `json:"total"`
	Count             int             `json:"count"`
	ThisMonthMinor    int64           `json:"this_month_minor"`
	ThisMonth         string          `json:"this_month"`
	LastMonthMinor    int64           `json:"last_month_minor"`
	LastMonth         string          `json:"last_month"`
	ChangePercent     decimal.Decimal `json:"change_percent"`
	AveragePerExpense decimal.Decimal `json:"average_per_expense"`
	TopCategory       *CategoryTotal  `json:"top_category,omitempty"`
}

// Service loads a user's data and runs Aggregate over it.
type Service struct {
	catalog  catalog.Reader
	expenses ExpenseLister
	location *time.Location
	currency string
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(reader catalog.Reader, expenses ExpenseLister, loc *time.Location, currency string, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if currency == "" {
		currency = money.INR
	}
	return &Service{
		catalog:  reader,
		expenses: expenses,
		location: loc,
		currency: currency,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Today is the current calendar day in the report time zone.
func (s *Service) Today() time.Time {
	return expense.Day(s.now().In(s.location))
}

// Resolve turns a Request into a concrete range.
func (s *Service) Resolve(req Request) (Range, error) {
	if req.Named != "" {
		return ResolveNamedRange(req.Named, req.N, s.Today())
	}
	return NewRange(req.Start, req.End)
}

// Generate builds the report described by req.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, req Request) (*Report, error) {
	rng, err := s.Resolve(req)
	if err != nil {
		return nil, err
	}

	cats, err := s.categorySet(ctx, userID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.expenses.ListExpenses(ctx, userID, rng.DateRange())
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	r, err := Aggregate(expenses, rng, cats, Options{Trend: req.Trend, Currency: s.currency})
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "report generated",
		slog.String("user_id", userID.String()),
		slog.String("range", rng.String()),
		slog.Int("count", r.Count),
	)
	return r, nil
}

// MonthlyTrend is the last n months with one bucket per month.
func (s *Service) MonthlyTrend(ctx context.Context, userID uuid.UUID, n int) (*Report, error) {
	return s.Generate(ctx, userID, Request{Named: LastNMonths, N: n, Trend: true})
}

// Summary covers all time, this month and the full previous month.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	cats, err := s.categorySet(ctx, userID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.expenses.ListExpenses(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	today := s.Today()
	thisRange, _ := ResolveNamedRange(ThisMonth, 0, today)
	lastRange, _ := ResolveNamedRange(LastMonth, 0, today)

	allRange := Range{Start: today, End: today}
	for _, e := range expenses {
		d := expense.Day(e.Date)
		if d.Before(allRange.Start) {
			allRange.Start = d
		}
		if d.After(allRange.End) {
			allRange.End = d
		}
	}

	opts := Options{Currency: s.currency}
	all, err := Aggregate(expenses, allRange, cats, opts)
	if err != nil {
		return nil, err
	}
	thisMonth, err := Aggregate(expenses, thisRange, cats, opts)
	if err != nil {
		return nil, err
	}
	lastMonth, err := Aggregate(expenses, lastRange, cats, opts)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		Currency:          s.currency,
		TotalMinor:        all.TotalMinor,
		Total:             all.Total,
		Count:             all.Count,
		ThisMonthMinor:    thisMonth.TotalMinor,
		ThisMonth:         thisMonth.Total,
		LastMonthMinor:    lastMonth.TotalMinor,
		LastMonth:         lastMonth.Total,
		ChangePercent:     money.ChangePercent(thisMonth.TotalMinor, lastMonth.TotalMinor),
		AveragePerExpense: money.Average(all.TotalMinor, all.Count, s.currency),
	}
	if top, ok := all.Top(); ok {
		sum.TopCategory = &top
	}
	return sum, nil
}

func (s *Service) categorySet(ctx context.Context, userID uuid.UUID) (CategorySet, error) {
	cats, err := s.catalog.ListCategories(ctx, userID)
	if err != nil {
		return CategorySet{}, fmt.Errorf("failed to list categories: %w", err)
	}

	// System categories are listed first, so this agrees with DefaultFallbackCategory.
	fallback, ok := catalog.FindByName(cats, catalog.FallbackName)
	if !ok {
		fallback, err = s.catalog.DefaultFallbackCategory(ctx, userID)
		if err != nil {
			return CategorySet{}, fmt.Errorf("failed to resolve fallback category: %w", err)
		}
	}
	return NewCategorySet(cats, *fallback), nil
}
