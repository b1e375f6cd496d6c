// Package expense stores individual spending records and validates new ones.
package expense

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-expense-tracker/pkg/money"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidNote     = errors.New("invalid note")
	ErrInvalidDate     = errors.New("invalid date")
	ErrExpenseNotFound = errors.New("expense not found")
	ErrNothingToUpdate = errors.New("nothing to update")
)

const (
	// MaxAmountMinor is ₹1,00,00,000 in paise.
	MaxAmountMinor int64 = 1_000_000_000
	MaxNoteLength        = 500
	// FutureTolerance allows dates up to one day ahead to absorb time zone skew.
	FutureTolerance = 24 * time.Hour

	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Expense is one recorded spend. Date is a calendar day at UTC midnight.
type Expense struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	Note        string    `json:"note"`
	Date        time.Time `json:"date"`
	CategoryID  uuid.UUID `json:"category_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Money returns the amount as a Money value.
func (e Expense) Money() *money.Money {
	return money.New(e.AmountMinor, e.Currency)
}

// DateRange limits a listing to Start..End inclusive. Either bound may be zero.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Filter narrows a paginated listing. Zero values mean "no constraint".
type Filter struct {
	Range      *DateRange
	CategoryID *uuid.UUID
	// Search is a case-insensitive substring of the note.
	Search string
	Limit  int
	Offset int
}

// normalize clamps the page to 1..MaxPageSize with DefaultPageSize when unset.
func (f Filter) normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Repository is the storage contract for expenses.
type Repository interface {
	Create(ctx context.Context, e *Expense) (*Expense, error)
	// Get returns ErrExpenseNotFound unless the expense exists and belongs to userID.
	Get(ctx context.Context, userID, expenseID uuid.UUID) (*Expense, error)
	// Update overwrites amount, note, date and category of e, matched on e.ID and e.UserID.
	Update(ctx context.Context, e *Expense) (*Expense, error)
	// ListExpenses returns the user's expenses ordered by date, then creation time. A nil rng lists everything.
	ListExpenses(ctx context.Context, userID uuid.UUID, rng *DateRange) ([]Expense, error)
	// Search returns one page of the user's expenses, newest first.
	Search(ctx context.Context, userID uuid.UUID, f Filter) ([]Expense, error)
	Delete(ctx context.Context, userID, expenseID uuid.UUID) error
}

// Day truncates t to its calendar day in t's location and returns it at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
