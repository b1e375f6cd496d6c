package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/smart-expense-tracker/pkg/db"
)

const uniqueViolation = "23505"

const categoryColumns = `id, user_id, name, emoji, is_system, created_at, updated_at`

// querier is satisfied by both the pool and a pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements Repository on PostgreSQL.
type PostgresRepository struct {
	db db.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new catalog repository
func NewPostgresRepository(pool db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: pool}
}

func scanCategory(row pgx.Row) (*Category, error) {
	var c Category
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Emoji,
		&c.IsSystem,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresRepository) ResolveCategory(ctx context.Context, userID, categoryID uuid.UUID) (*Category, error) {
	return resolveCategory(ctx, r.db, userID, categoryID, false)
}

func resolveCategory(ctx context.Context, q querier, userID, categoryID uuid.UUID, forUpdate bool) (*Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE id = $1 AND (user_id IS NULL OR user_id = $2)`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	c, err := scanCategory(q.QueryRow(ctx, query, categoryID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to resolve category: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ListCategories(ctx context.Context, userID uuid.UUID) ([]Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE user_id IS NULL OR user_id = $1
		ORDER BY is_system DESC, LOWER(name) ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

func (r *PostgresRepository) DefaultFallbackCategory(ctx context.Context, userID uuid.UUID) (*Category, error) {
	return fallbackCategory(ctx, r.db, userID)
}

// fallbackCategory prefers the system "Other", then the user's own, and creates
// the user's own when neither exists.
func fallbackCategory(ctx context.Context, q querier, userID uuid.UUID) (*Category, error) {
	selectQuery := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE LOWER(name) = LOWER($2) AND (user_id IS NULL OR user_id = $1)
		ORDER BY is_system DESC
		LIMIT 1
	`

	c, err := scanCategory(q.QueryRow(ctx, selectQuery, userID, FallbackName))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to load fallback category: %w", err)
	}

	insertQuery := `
		INSERT INTO categories (user_id, name, emoji, is_system)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (user_id, LOWER(name)) WHERE user_id IS NOT NULL
		DO UPDATE SET updated_at = categories.updated_at
		RETURNING ` + categoryColumns

	emoji := FallbackEmoji
	c, err = scanCategory(q.QueryRow(ctx, insertQuery, userID, FallbackName, &emoji))
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback category: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) nameTaken(ctx context.Context, userID uuid.UUID, name string, exclude *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM categories
			WHERE LOWER(name) = LOWER($2)
			  AND (user_id IS NULL OR user_id = $1)
			  AND ($3::uuid IS NULL OR id <> $3)
		)
	`

	var taken bool
	if err := r.db.QueryRow(ctx, query, userID, name, exclude).Scan(&taken); err != nil {
		return false, fmt.Errorf("failed to check category name: %w", err)
	}
	return taken, nil
}

func (r *PostgresRepository) CreateCategory(ctx context.Context, userID uuid.UUID, name string, emoji *string) (*Category, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	taken, err := r.nameTaken(ctx, userID, name, nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateName
	}

	query := `
		INSERT INTO categories (user_id, name, emoji, is_system)
		VALUES ($1, $2, $3, FALSE)
		RETURNING ` + categoryColumns

	c, err := scanCategory(r.db.QueryRow(ctx, query, userID, name, emoji))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) UpdateCategory(ctx context.Context, userID, categoryID uuid.UUID, name, emoji *string) (*Category, error) {
	if name == nil && emoji == nil {
		return nil, ErrNothingToUpdate
	}

	existing, err := r.ResolveCategory(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	if existing.IsSystem {
		return nil, ErrSystemCategory
	}

	if name != nil {
		normalized, err := NormalizeName(*name)
		if err != nil {
			return nil, err
		}
		if existing.IsFallback() && !strings.EqualFold(normalized, existing.Name) {
			return nil, ErrFallbackCategory
		}
		taken, err := r.nameTaken(ctx, userID, normalized, &categoryID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateName
		}
		name = &normalized
	}

	query := `
		UPDATE categories
		SET name = COALESCE($3, name),
		    emoji = COALESCE($4, emoji),
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + categoryColumns

	c, err := scanCategory(r.db.QueryRow(ctx, query, categoryID, userID, name, emoji))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) DeleteCategory(ctx context.Context, userID, categoryID uuid.UUID) (reassigned int64, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	target, err := resolveCategory(ctx, tx, userID, categoryID, true)
	if err != nil {
		return 0, err
	}
	if target.IsSystem {
		return 0, ErrSystemCategory
	}
	if target.IsFallback() {
		return 0, ErrFallbackCategory
	}

	fallback, err := fallbackCategory(ctx, tx, userID)
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE expenses
		SET category_id = $1, updated_at = NOW()
		WHERE category_id = $2 AND user_id = $3
	`, fallback.ID, categoryID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign expenses: %w", err)
	}
	reassigned = tag.RowsAffected()

	if _, err = tx.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, categoryID, userID); err != nil {
		return 0, fmt.Errorf("failed to delete category: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit category deletion: %w", err)
	}
	return reassigned, nil
}

func (r *PostgresRepository) CountExpenses(ctx context.Context, userID, categoryID uuid.UUID) (int64, error) {
	if _, err := r.ResolveCategory(ctx, userID, categoryID); err != nil {
		return 0, err
	}

	var count int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM expenses WHERE category_id = $1 AND user_id = $2
	`, categoryID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}
	return count, nil
}

// SeedSystemCategories inserts any missing built-in category and reports how many were added.
func (r *PostgresRepository) SeedSystemCategories(ctx context.Context) (int64, error) {
	var inserted int64
	for _, sc := range DefaultSystemCategories() {
		tag, err := r.db.Exec(ctx, `
			INSERT INTO categories (name, emoji, is_system)
			VALUES ($1, $2, TRUE)
			ON CONFLICT DO NOTHING
		`, sc.Name, sc.Emoji)
		if err != nil {
			return inserted, fmt.Errorf("failed to seed category %q: %w", sc.Name, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
