// Package catalog owns expense categories: the shared system set and the
// categories each user creates on top of it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrDuplicateName    = errors.New("category name already exists")
	ErrSystemCategory   = errors.New("system categories cannot be modified")
	ErrFallbackCategory = errors.New("the fallback category cannot be deleted or renamed")
	ErrInvalidName      = errors.New("invalid category name")
	ErrNothingToUpdate  = errors.New("nothing to update")
)

// FallbackName is the category every unresolvable expense ends up in.
const FallbackName = "Other"

// FallbackEmoji is used when a per-user fallback has to be created.
const FallbackEmoji = "📝"

const maxNameLength = 50

// Category is either a system category (UserID nil, IsSystem true) or owned by one user.
type Category struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Name      string     `json:"name"`
	Emoji     *string    `json:"emoji,omitempty"`
	IsSystem  bool       `json:"is_system"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsFallback reports whether c is an "Other" category.
func (c Category) IsFallback() bool {
	return strings.EqualFold(c.Name, FallbackName)
}

// Reader is the read contract both engines depend on.
type Reader interface {
	// ResolveCategory returns ErrCategoryNotFound when the id is not visible to the user.
	ResolveCategory(ctx context.Context, userID, categoryID uuid.UUID) (*Category, error)
	// ListCategories returns system categories first, then the user's, each ordered by name.
	ListCategories(ctx context.Context, userID uuid.UUID) ([]Category, error)
	// DefaultFallbackCategory returns the "Other" category visible to the user, creating it if needed.
	DefaultFallbackCategory(ctx context.Context, userID uuid.UUID) (*Category, error)
}

// Repository adds the mutations used by the category endpoints and the catalog job.
type Repository interface {
	Reader
	CreateCategory(ctx context.Context, userID uuid.UUID, name string, emoji *string) (*Category, error)
	UpdateCategory(ctx context.Context, userID, categoryID uuid.UUID, name, emoji *string) (*Category, error)
	// DeleteCategory moves the category's expenses to the fallback and deletes it in one transaction.
	DeleteCategory(ctx context.Context, userID, categoryID uuid.UUID) (reassigned int64, err error)
	CountExpenses(ctx context.Context, userID, categoryID uuid.UUID) (int64, error)
	SeedSystemCategories(ctx context.Context) (int64, error)
}

// SystemCategory is an entry of the built-in category set.
type SystemCategory struct {
	Name  string
	Emoji string
}

// DefaultSystemCategories is the built-in set, seeded by migration and re-seeded by the catalog job.
func DefaultSystemCategories() []SystemCategory {
	return []SystemCategory{
		{Name: "Food", Emoji: "🍽️"},
		{Name: "Grocery", Emoji: "🥦"},
		{Name: "Transport", Emoji: "🚗"},
		{Name: "Entertainment", Emoji: "🎬"},
		{Name: "Shopping", Emoji: "🛒"},
		{Name: "Healthcare", Emoji: "🏥"},
		{Name: "Utilities", Emoji: "💡"},
		{Name: "Education", Emoji: "📚"},
		{Name: FallbackName, Emoji: FallbackEmoji},
	}
}

// NormalizeName trims, collapses inner whitespace and title-cases a category name.
func NormalizeName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	// Casers are stateful, so one per call.
	return cases.Title(language.Und).String(name), nil
}

// FindByName returns the first category in cats whose name matches case-insensitively.
func FindByName(cats []Category, name string) (*Category, bool) {
	name = strings.TrimSpace(name)
	for i := range cats {
		if strings.EqualFold(cats[i].Name, name) {
			c := cats[i]
			return &c, true
		}
	}
	return nil, false
}
