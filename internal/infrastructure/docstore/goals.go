package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"saverr/internal/domain/goal"
)

// GoalRepository stores goals under (USER#<uid>, GOAL#<gid>).
type GoalRepository struct {
	store *Store
}

// Ensure the docstore implementation satisfies the domain interface
var _ goal.Repository = (*GoalRepository)(nil)

// NewGoalRepository creates a new goal repository
func NewGoalRepository(store *Store) *GoalRepository {
	return &GoalRepository{store: store}
}

func (r *GoalRepository) Create(ctx context.Context, g goal.Goal) error {
	return r.store.Put(ctx, userPartition+g.UserID, goalSort+g.ID, g)
}

func (r *GoalRepository) Get(ctx context.Context, userID, goalID string) (*goal.Goal, error) {
	doc, err := r.store.Get(ctx, userPartition+userID, goalSort+goalID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	var g goal.Goal
	if err := json.Unmarshal(doc, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal goal: %w", err)
	}
	return &g, nil
}

func (r *GoalRepository) ListByUser(ctx context.Context, userID string) ([]goal.Goal, error) {
	docs, err := r.store.QueryPrefix(ctx, userPartition+userID, goalSort, 0, false)
	if err != nil {
		return nil, err
	}

	goals := make([]goal.Goal, 0, len(docs))
	for _, doc := range docs {
		var g goal.Goal
		if err := json.Unmarshal(doc, &g); err != nil {
			return nil, fmt.Errorf("failed to unmarshal goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, nil
}

func (r *GoalRepository) Put(ctx context.Context, g goal.Goal) error {
	return r.store.Put(ctx, userPartition+g.UserID, goalSort+g.ID, g)
}

func (r *GoalRepository) Delete(ctx context.Context, userID, goalID string) error {
	return r.store.Delete(ctx, userPartition+userID, goalSort+goalID)
}
