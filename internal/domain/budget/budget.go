// Package budget holds the stored per-month spending budgets the analytics
// engine compares actuals against.
package budget

import "context"

// Budget is a user's budget for one calendar month: a total plus optional
// per-category amounts.
type Budget struct {
	UserID      string             `json:"user_id"`
	Month       string             `json:"month"`
	TotalBudget float64            `json:"total_budget"`
	Categories  map[string]float64 `json:"categories"`
}

// Repository looks up budgets by user and YYYY-MM month.
type Repository interface {
	// Get returns nil when no budget is set for the month. Absence is not
	// an error.
	Get(ctx context.Context, userID, month string) (*Budget, error)
	Put(ctx context.Context, b Budget) error
}
