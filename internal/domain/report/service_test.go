package report_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/catalog"
	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/expense"
	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/report"
)

type mockCatalog struct {
	categories    []catalog.Category
	fallback      *catalog.Category
	fallbackCalls int
	err           error
}

func (m *mockCatalog) ResolveCategory(context.Context, uuid.UUID, uuid.UUID) (*catalog.Category, error) {
	return nil, catalog.ErrCategoryNotFound
}

func (m *mockCatalog) ListCategories(context.Context, uuid.UUID) ([]catalog.Category, error) {
	return m.categories, m.err
}

func (m *mockCatalog) DefaultFallbackCategory(context.Context, uuid.UUID) (*catalog.Category, error) {
	m.fallbackCalls++
	return m.fallback, nil
}

type mockExpenses struct {
	expenses []expense.Expense
	ranges   []*expense.DateRange
	err      error
}

func (m *mockExpenses) ListExpenses(_ context.Context, _ uuid.UUID, rng *expense.DateRange) ([]expense.Expense, error) {
	m.ranges = append(m.ranges, rng)
	return m.expenses, m.err
}

var (
	foodID  = uuid.New()
	cabID   = uuid.New()
	otherID = uuid.New()
)

func categories() []catalog.Category {
	return []catalog.Category{
		{ID: foodID, Name: "Food", IsSystem: true},
		{ID: otherID, Name: "Other", IsSystem: true},
		{ID: cabID, Name: "Transport", IsSystem: true},
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newService(cat *mockCatalog, exp *mockExpenses, now time.Time) *report.Service {
	loc, _ := time.LoadLocation("Asia/Kolkata")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return report.NewService(cat, exp, loc, "INR", logger).WithClock(func() time.Time { return now })
}

func TestService_Generate_Custom(t *testing.T) {
	exp := &mockExpenses{expenses: []expense.Expense{
		{AmountMinor: 100, Date: date(2024, 1, 15), CategoryID: foodID},
		{AmountMinor: 50, Date: date(2024, 2, 10), CategoryID: cabID},
	}}
	svc := newService(&mockCatalog{categories: categories()}, exp, date(2024, 3, 1))

	r, err := svc.Generate(context.Background(), uuid.New(), report.Request{
		Start: date(2024, 1, 1),
		End:   date(2024, 2, 28),
		Trend: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(150), r.TotalMinor)
	assert.Equal(t, "1.50", r.Total)
	assert.Len(t, r.Trend, 2)

	require.Len(t, exp.ranges, 1)
	assert.Equal(t, date(2024, 1, 1), exp.ranges[0].Start)
	assert.Equal(t, date(2024, 2, 28), exp.ranges[0].End)
}

func TestService_Generate_NamedUsesReportTimeZone(t *testing.T) {
	// 20:00 UTC on Jan 31 is already Feb 1 in Kolkata.
	now := time.Date(2024, 1, 31, 20, 0, 0, 0, time.UTC)
	exp := &mockExpenses{}
	svc := newService(&mockCatalog{categories: categories()}, exp, now)

	r, err := svc.Generate(context.Background(), uuid.New(), report.Request{Named: report.ThisMonth})
	require.NoError(t, err)
	assert.Equal(t, date(2024, 2, 1), r.Range.Start)
	assert.Equal(t, date(2024, 2, 1), r.Range.End)
}

func TestService_Generate_InvalidRange(t *testing.T) {
	svc := newService(&mockCatalog{categories: categories()}, &mockExpenses{}, date(2024, 3, 1))

	_, err := svc.Generate(context.Background(), uuid.New(), report.Request{Start: date(2024, 3, 1), End: date(2024, 1, 1)})
	assert.ErrorIs(t, err, report.ErrInvalidRange)

	_, err = svc.MonthlyTrend(context.Background(), uuid.New(), 13)
	assert.ErrorIs(t, err, report.ErrInvalidRange)
}

func TestService_Generate_StorageErrors(t *testing.T) {
	boom := errors.New("db down")

	svc := newService(&mockCatalog{err: boom}, &mockExpenses{}, date(2024, 3, 1))
	_, err := svc.Generate(context.Background(), uuid.New(), report.Request{Named: report.ThisMonth})
	assert.ErrorIs(t, err, boom)

	svc = newService(&mockCatalog{categories: categories()}, &mockExpenses{err: boom}, date(2024, 3, 1))
	_, err = svc.Generate(context.Background(), uuid.New(), report.Request{Named: report.ThisMonth})
	assert.ErrorIs(t, err, boom)
}

func TestService_Generate_LazyFallback(t *testing.T) {
	userOther := catalog.Category{ID: uuid.New(), Name: "Other"}
	cat := &mockCatalog{categories: []catalog.Category{{ID: foodID, Name: "Food", IsSystem: true}}, fallback: &userOther}
	exp := &mockExpenses{expenses: []expense.Expense{{AmountMinor: 900, Date: date(2024, 3, 2), CategoryID: uuid.New()}}}
	svc := newService(cat, exp, date(2024, 3, 5))

	r, err := svc.Generate(context.Background(), uuid.New(), report.Request{Named: report.ThisMonth})
	require.NoError(t, err)
	require.Len(t, r.ByCategory, 1)
	assert.Equal(t, userOther.ID, r.ByCategory[0].CategoryID)
	assert.Equal(t, 1, cat.fallbackCalls)
}

func TestService_MonthlyTrend(t *testing.T) {
	exp := &mockExpenses{expenses: []expense.Expense{
		{AmountMinor: 1000, Date: date(2024, 1, 20), CategoryID: foodID},
		{AmountMinor: 2000, Date: date(2024, 3, 2), CategoryID: cabID},
	}}
	svc := newService(&mockCatalog{categories: categories()}, exp, date(2024, 3, 10))

	r, err := svc.MonthlyTrend(context.Background(), uuid.New(), 3)
	require.NoError(t, err)
	require.Len(t, r.Trend, 3)
	assert.Equal(t, int64(1000), r.Trend[0].TotalMinor)
	assert.Zero(t, r.Trend[1].TotalMinor)
	assert.Equal(t, int64(2000), r.Trend[2].TotalMinor)
}

func TestService_Summary(t *testing.T) {
	exp := &mockExpenses{expenses: []expense.Expense{
		{AmountMinor: 10000, Date: date(2023, 12, 5), CategoryID: foodID},
		{AmountMinor: 20000, Date: date(2024, 2, 3), CategoryID: foodID},
		{AmountMinor: 10000, Date: date(2024, 2, 29), CategoryID: cabID},
		{AmountMinor: 45000, Date: date(2024, 3, 9), CategoryID: cabID},
	}}
	svc := newService(&mockCatalog{categories: categories()}, exp, date(2024, 3, 10))

	s, err := svc.Summary(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, int64(85000), s.TotalMinor)
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, int64(45000), s.ThisMonthMinor)
	assert.Equal(t, int64(30000), s.LastMonthMinor)
	assert.Equal(t, "50.00", s.ChangePercent.StringFixed(2))
	assert.Equal(t, "212.50", s.AveragePerExpense.StringFixed(2))
	require.NotNil(t, s.TopCategory)
	assert.Equal(t, "Transport", s.TopCategory.Name)

	require.Len(t, exp.ranges, 1)
	assert.Nil(t, exp.ranges[0], "summary loads all expenses once")
}

func TestService_Summary_Empty(t *testing.T) {
	svc := newService(&mockCatalog{categories: categories()}, &mockExpenses{}, date(2024, 3, 10))

	s, err := svc.Summary(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, s.TotalMinor)
	assert.True(t, s.ChangePercent.IsZero())
	assert.True(t, s.AveragePerExpense.IsZero())
	assert.Nil(t, s.TopCategory)
}
