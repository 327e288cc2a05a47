package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"saverr/internal/domain/budget"
)

// BudgetRepository stores monthly budgets under (USER#<uid>, BUDGET#<YYYY-MM>).
type BudgetRepository struct {
	store *Store
}

// Ensure the docstore implementation satisfies the domain interface
var _ budget.Repository = (*BudgetRepository)(nil)

// NewBudgetRepository creates a new budget repository
func NewBudgetRepository(store *Store) *BudgetRepository {
	return &BudgetRepository{store: store}
}

// Get returns the budget for a month, or nil when none is set.
func (r *BudgetRepository) Get(ctx context.Context, userID, month string) (*budget.Budget, error) {
	doc, err := r.store.Get(ctx, userPartition+userID, budgetSort+month)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	var b budget.Budget
	if err := json.Unmarshal(doc, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal budget: %w", err)
	}
	return &b, nil
}

func (r *BudgetRepository) Put(ctx context.Context, b budget.Budget) error {
	return r.store.Put(ctx, userPartition+b.UserID, budgetSort+b.Month, b)
}
