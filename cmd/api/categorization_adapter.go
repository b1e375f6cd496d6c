package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/categorization"
	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/expense"
)

// categorizationAdapter adapts categorization.Service to expense's Categorizer interface
type categorizationAdapter struct {
	svc *categorization.Service
}

func newCategorizationAdapter(svc *categorization.Service) expense.Categorizer {
	return &categorizationAdapter{svc: svc}
}

// Categorize implements expense.Categorizer
func (a *categorizationAdapter) Categorize(ctx context.Context, userID uuid.UUID, note string) (*expense.Assignment, error) {
	res, err := a.svc.Categorize(ctx, userID, note)
	if err != nil {
		return nil, err
	}
	return &expense.Assignment{
		CategoryID:   res.Category.ID,
		CategoryName: res.Category.Name,
		Source:       string(res.Source),
	}, nil
}
