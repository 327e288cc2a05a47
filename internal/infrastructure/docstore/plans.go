package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"saverr/internal/domain/plan"
)

// PlanRepository stores plans under (USER#<uid>, PLAN#<pid>).
type PlanRepository struct {
	store *Store
}

// Ensure the docstore implementation satisfies the domain interface
var _ plan.Repository = (*PlanRepository)(nil)

// NewPlanRepository creates a new plan repository
func NewPlanRepository(store *Store) *PlanRepository {
	return &PlanRepository{store: store}
}

func (r *PlanRepository) Create(ctx context.Context, p plan.Plan) error {
	return r.store.Put(ctx, userPartition+p.UserID, planSort+p.ID, p)
}

func (r *PlanRepository) ListByUser(ctx context.Context, userID string) ([]plan.Plan, error) {
	docs, err := r.store.QueryPrefix(ctx, userPartition+userID, planSort, 0, false)
	if err != nil {
		return nil, err
	}

	plans := make([]plan.Plan, 0, len(docs))
	for _, doc := range docs {
		var p plan.Plan
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (r *PlanRepository) Deactivate(ctx context.Context, userID, planID string) error {
	return r.store.Update(ctx, userPartition+userID, planSort+planID, map[string]any{
		"is_active": false,
	})
}
