package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/catalog"
	"github.com/FACorreiaa/smart-expense-tracker/pkg/money"
)

// Assignment is how the category of a new expense was decided.
type Assignment struct {
	CategoryID   uuid.UUID `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Source       string    `json:"source"`
}

// SourceUser marks a category the user chose explicitly.
const SourceUser = "user"

// Categorizer picks a category for a note when the user did not choose one.
type Categorizer interface {
	Categorize(ctx context.Context, userID uuid.UUID, note string) (*Assignment, error)
}

// CategoryResolver checks an explicitly chosen category is visible to the user.
type CategoryResolver interface {
	ResolveCategory(ctx context.Context, userID, categoryID uuid.UUID) (*catalog.Category, error)
}

// Input is a create request as received from a client.
type Input struct {
	Amount     string     `json:"amount"`
	Note       string     `json:"note"`
	Date       time.Time  `json:"date"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
}

// Created is the stored expense plus the category decision.
type Created struct {
	Expense    *Expense    `json:"expense"`
	Assignment *Assignment `json:"assignment"`
}

// Service validates and stores expenses.
type Service struct {
	repo        Repository
	categories  CategoryResolver
	categorizer Categorizer
	currency    string
	location    *time.Location
	now         func() time.Time
	logger      *slog.Logger
}

// NewService creates the expense service. loc decides what "today" is for date validation.
func NewService(repo Repository, categories CategoryResolver, categorizer Categorizer, currency string, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if currency == "" {
		currency = money.INR
	}
	return &Service{
		repo:        repo,
		categories:  categories,
		categorizer: categorizer,
		currency:    currency,
		location:    loc,
		now:         time.Now,
		logger:      logger,
	}
}

// WithClock replaces the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Validate parses and checks an Input without touching storage.
func (s *Service) Validate(in Input) (*Expense, error) {
	amount, err := money.NewFromString(in.Amount, s.currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	if limit := money.New(MaxAmountMinor, amount.Currency()); amount.GreaterThan(limit) {
		return nil, fmt.Errorf("%w: exceeds %s", ErrInvalidAmount, limit.Display())
	}

	note := strings.TrimSpace(in.Note)
	if note == "" {
		return nil, fmt.Errorf("%w: note is required", ErrInvalidNote)
	}
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return nil, fmt.Errorf("%w: note exceeds %d characters", ErrInvalidNote, MaxNoteLength)
	}

	today := Day(s.now().In(s.location))
	date := today
	if !in.Date.IsZero() {
		date = Day(in.Date)
	}
	if date.After(today.Add(FutureTolerance)) {
		return nil, fmt.Errorf("%w: %s is in the future", ErrInvalidDate, date.Format(time.DateOnly))
	}

	return &Expense{
		AmountMinor: amount.Amount(),
		Currency:    amount.Currency(),
		Note:        note,
		Date:        date,
	}, nil
}

// Create validates the input, assigns a category and stores the expense.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in Input) (*Created, error) {
	e, err := s.Validate(in)
	if err != nil {
		return nil, err
	}
	e.UserID = userID

	var assignment *Assignment
	if in.CategoryID != nil {
		if assignment, err = s.resolve(ctx, userID, *in.CategoryID); err != nil {
			return nil, err
		}
	} else {
		assignment, err = s.categorizer.Categorize(ctx, userID, e.Note)
		if err != nil {
			return nil, fmt.Errorf("failed to categorize expense: %w", err)
		}
	}
	e.CategoryID = assignment.CategoryID

	created, err := s.repo.Create(ctx, e)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "expense created",
		slog.String("user_id", userID.String()),
		slog.String("expense_id", created.ID.String()),
		slog.String("category", assignment.CategoryName),
		slog.String("source", assignment.Source),
	)
	return &Created{Expense: created, Assignment: assignment}, nil
}

// Patch is a partial update. Nil fields keep their stored value.
type Patch struct {
	Amount     *string
	Note       *string
	Date       *time.Time
	CategoryID *uuid.UUID
}

func (p Patch) empty() bool {
	return p.Amount == nil && p.Note == nil && p.Date == nil && p.CategoryID == nil
}

// Updated is the stored expense after a patch. Assignment is nil when the category did not change.
type Updated struct {
	Expense    *Expense    `json:"expense"`
	Assignment *Assignment `json:"assignment,omitempty"`
}

// Get returns one of the user's expenses.
func (s *Service) Get(ctx context.Context, userID, expenseID uuid.UUID) (*Expense, error) {
	return s.repo.Get(ctx, userID, expenseID)
}

// Update applies p to a stored expense with the same validation as Create. A new note without an
// explicit category is categorized again.
func (s *Service) Update(ctx context.Context, userID, expenseID uuid.UUID, p Patch) (*Updated, error) {
	if p.empty() {
		return nil, ErrNothingToUpdate
	}

	current, err := s.repo.Get(ctx, userID, expenseID)
	if err != nil {
		return nil, err
	}

	in := Input{
		Amount: current.Money().String(),
		Note:   current.Note,
		Date:   current.Date,
	}
	if p.Amount != nil {
		in.Amount = *p.Amount
	}
	if p.Note != nil {
		in.Note = *p.Note
	}
	if p.Date != nil {
		in.Date = *p.Date
	}

	next, err := s.Validate(in)
	if err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.UserID = userID
	next.CategoryID = current.CategoryID

	var assignment *Assignment
	switch {
	case p.CategoryID != nil:
		assignment, err = s.resolve(ctx, userID, *p.CategoryID)
	case p.Note != nil:
		assignment, err = s.categorizer.Categorize(ctx, userID, next.Note)
		if err != nil {
			err = fmt.Errorf("failed to categorize expense: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}
	if assignment != nil {
		next.CategoryID = assignment.CategoryID
	}

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "expense updated",
		slog.String("user_id", userID.String()),
		slog.String("expense_id", expenseID.String()),
		slog.Bool("recategorized", assignment != nil),
	)
	return &Updated{Expense: updated, Assignment: assignment}, nil
}

// List returns one page of the user's expenses, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, f Filter) ([]Expense, error) {
	return s.repo.Search(ctx, userID, f)
}

// resolve checks a user-chosen category.
func (s *Service) resolve(ctx context.Context, userID, categoryID uuid.UUID) (*Assignment, error) {
	cat, err := s.categories.ResolveCategory(ctx, userID, categoryID)
	if err != nil {
		if errors.Is(err, catalog.ErrCategoryNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve category: %w", err)
	}
	return &Assignment{CategoryID: cat.ID, CategoryName: cat.Name, Source: SourceUser}, nil
}

// Delete removes one of the user's expenses.
func (s *Service) Delete(ctx context.Context, userID, expenseID uuid.UUID) error {
	return s.repo.Delete(ctx, userID, expenseID)
}
