package plan

import "context"

// Plan is an AI-generated financial plan. At most one plan per user is
// active under sequential requests; the deactivate-then-create sequence is
// not transactional, so concurrent creates can race (last writer wins).
type Plan struct {
	ID                   string   `json:"id"`
	UserID               string   `json:"user_id"`
	Summary              string   `json:"summary"`
	Recommendations      []string `json:"recommendations"`
	MonthlyTargetSavings float64  `json:"monthly_target_savings"`
	GoalIDs              []string `json:"goal_ids"`
	GeneratedAt          string   `json:"generated_at"`
	IsActive             bool     `json:"is_active"`
}

// Repository is the user-partitioned plan store.
type Repository interface {
	Create(ctx context.Context, p Plan) error
	ListByUser(ctx context.Context, userID string) ([]Plan, error)
	// Deactivate clears the active flag on one plan.
	Deactivate(ctx context.Context, userID, planID string) error
}
