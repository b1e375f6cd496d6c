package expense

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/smart-expense-tracker/pkg/db"
)

const expenseColumns = `id, user_id, amount_minor, currency, note, expense_date, category_id, created_at, updated_at`

// PostgresRepository implements Repository on PostgreSQL.
type PostgresRepository struct {
	db db.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new expense repository
func NewPostgresRepository(pool db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: pool}
}

func scanExpense(row pgx.Row) (*Expense, error) {
	var e Expense
	if err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.AmountMinor,
		&e.Currency,
		&e.Note,
		&e.Date,
		&e.CategoryID,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Currency = strings.TrimSpace(e.Currency)
	return &e, nil
}

func (r *PostgresRepository) Create(ctx context.Context, e *Expense) (*Expense, error) {
	query := `
		INSERT INTO expenses (user_id, amount_minor, currency, note, expense_date, category_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + expenseColumns

	created, err := scanExpense(r.db.QueryRow(ctx, query,
		e.UserID, e.AmountMinor, e.Currency, e.Note, e.Date, e.CategoryID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}
	return created, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, expenseID uuid.UUID) (*Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1 AND user_id = $2`

	e, err := scanExpense(r.db.QueryRow(ctx, query, expenseID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExpenseNotFound
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) Update(ctx context.Context, e *Expense) (*Expense, error) {
	query := `
		UPDATE expenses
		SET amount_minor = $3, note = $4, expense_date = $5, category_id = $6, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + expenseColumns

	updated, err := scanExpense(r.db.QueryRow(ctx, query,
		e.ID, e.UserID, e.AmountMinor, e.Note, e.Date, e.CategoryID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExpenseNotFound
		}
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}
	return updated, nil
}

func (r *PostgresRepository) ListExpenses(ctx context.Context, userID uuid.UUID, rng *DateRange) ([]Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE user_id = $1`
	args := []any{userID}

	if rng != nil && !rng.Start.IsZero() {
		args = append(args, rng.Start)
		query += fmt.Sprintf(" AND expense_date >= $%d", len(args))
	}
	if rng != nil && !rng.End.IsZero() {
		args = append(args, rng.End)
		query += fmt.Sprintf(" AND expense_date <= $%d", len(args))
	}
	query += ` ORDER BY expense_date ASC, created_at ASC, id ASC`

	return r.query(ctx, query, args...)
}

func (r *PostgresRepository) Search(ctx context.Context, userID uuid.UUID, f Filter) ([]Expense, error) {
	f = f.normalize()
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE user_id = $1`
	args := []any{userID}

	if f.Range != nil && !f.Range.Start.IsZero() {
		args = append(args, f.Range.Start)
		query += fmt.Sprintf(" AND expense_date >= $%d", len(args))
	}
	if f.Range != nil && !f.Range.End.IsZero() {
		args = append(args, f.Range.End)
		query += fmt.Sprintf(" AND expense_date <= $%d", len(args))
	}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		query += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		query += fmt.Sprintf(" AND note ILIKE $%d", len(args))
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY expense_date DESC, created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return r.query(ctx, query, args...)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]Expense, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, expenseID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, expenseID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}
