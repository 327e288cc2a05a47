package goal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"saverr/internal/domain/money"
	"saverr/internal/shared/apperr"
	"saverr/internal/shared/timeutil"
	"saverr/internal/shared/validation"
)

// Service handles goal lifecycle and the savings-progress rollup
type Service struct {
	repo Repository
}

// NewService creates a new goal service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateParams are the caller-supplied fields for a new goal
type CreateParams struct {
	Title         string
	Description   string
	TargetAmount  float64
	CurrentAmount float64
	TargetDate    *string
	Category      string
	IsAIGenerated bool
	Priority      int
}

// Create validates and stores a new goal
func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (*Goal, error) {
	title := validation.SanitizeString(params.Title, 200)
	if title == "" {
		return nil, apperr.Validation("Title cannot be empty")
	}
	description := validation.SanitizeString(params.Description, 1000)

	if ok, reason := validation.ValidAmount(params.TargetAmount); !ok {
		return nil, apperr.Validationf("Invalid target_amount: %s", reason)
	}
	if ok, reason := validation.ValidAmount(params.CurrentAmount); !ok {
		return nil, apperr.Validationf("Invalid current_amount: %s", reason)
	}
	if params.TargetAmount <= 0 {
		return nil, apperr.Validation("Target amount must be greater than 0")
	}
	if params.TargetDate != nil && !validation.ValidDate(*params.TargetDate) {
		return nil, apperr.Validation("Invalid target_date format. Use YYYY-MM-DD")
	}

	category := params.Category
	if category == "" {
		category = "custom"
	}
	if !ValidCategory(category) {
		return nil, apperr.Validation("Invalid goal category")
	}

	g := Goal{
		ID:            uuid.NewString(),
		UserID:        userID,
		Title:         title,
		Description:   description,
		TargetAmount:  params.TargetAmount,
		CurrentAmount: params.CurrentAmount,
		TargetDate:    params.TargetDate,
		Category:      category,
		CreatedAt:     timeutil.Now(),
		Status:        "active",
		IsAIGenerated: params.IsAIGenerated,
		Priority:      params.Priority,
	}
	g.Recompute()

	if err := s.repo.Create(ctx, g); err != nil {
		return nil, apperr.Internal("failed to create goal", err)
	}
	return &g, nil
}

// Get loads one goal, enforcing ownership
func (s *Service) Get(ctx context.Context, userID, goalID string) (*Goal, error) {
	if !validation.ValidUUID(goalID) {
		return nil, apperr.Validation("Invalid goal ID format")
	}
	g, err := s.repo.Get(ctx, userID, goalID)
	if err != nil {
		return nil, apperr.Internal("failed to load goal", err)
	}
	if g == nil {
		return nil, apperr.NotFound("Goal not found")
	}
	return g, nil
}

// List returns the user's goals, optionally filtered by status
func (s *Service) List(ctx context.Context, userID, status string) ([]Goal, error) {
	goals, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list goals", err)
	}
	if status == "" {
		return goals, nil
	}
	filtered := make([]Goal, 0, len(goals))
	for _, g := range goals {
		if g.Status == status {
			filtered = append(filtered, g)
		}
	}
	return filtered, nil
}

// UpdateParams carries optional goal updates; nil fields are untouched
type UpdateParams struct {
	Title         *string
	Description   *string
	TargetAmount  *float64
	CurrentAmount *float64
	TargetDate    *string
	Category      *string
	Status        *string
	Priority      *int
}

// Update applies the non-nil fields and recomputes progress
func (s *Service) Update(ctx context.Context, userID, goalID string, params UpdateParams) (*Goal, error) {
	g, err := s.Get(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		title := validation.SanitizeString(*params.Title, 200)
		if title == "" {
			return nil, apperr.Validation("Title cannot be empty")
		}
		g.Title = title
	}
	if params.Description != nil {
		g.Description = validation.SanitizeString(*params.Description, 1000)
	}
	if params.TargetAmount != nil {
		if ok, reason := validation.ValidAmount(*params.TargetAmount); !ok {
			return nil, apperr.Validationf("Invalid target_amount: %s", reason)
		}
		if *params.TargetAmount <= 0 {
			return nil, apperr.Validation("Target amount must be greater than 0")
		}
		g.TargetAmount = *params.TargetAmount
	}
	if params.CurrentAmount != nil {
		if ok, reason := validation.ValidAmount(*params.CurrentAmount); !ok {
			return nil, apperr.Validationf("Invalid current_amount: %s", reason)
		}
		g.CurrentAmount = *params.CurrentAmount
	}
	if params.TargetDate != nil {
		if *params.TargetDate != "" && !validation.ValidDate(*params.TargetDate) {
			return nil, apperr.Validation("Invalid target_date format. Use YYYY-MM-DD")
		}
		g.TargetDate = params.TargetDate
	}
	if params.Category != nil {
		if !ValidCategory(*params.Category) {
			return nil, apperr.Validation("Invalid goal category")
		}
		g.Category = *params.Category
	}
	if params.Status != nil {
		if *params.Status != "active" && *params.Status != "completed" {
			return nil, apperr.Validation("Status must be active or completed")
		}
		g.Status = *params.Status
	}
	if params.Priority != nil {
		g.Priority = *params.Priority
	}

	g.Recompute()

	if err := s.repo.Put(ctx, *g); err != nil {
		return nil, apperr.Internal("failed to update goal", err)
	}
	return g, nil
}

// Delete removes a goal, enforcing ownership first
func (s *Service) Delete(ctx context.Context, userID, goalID string) error {
	if _, err := s.Get(ctx, userID, goalID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, goalID); err != nil {
		return apperr.Internal("failed to delete goal", err)
	}
	return nil
}

// Contribution records one addition to a goal's current amount
type Contribution struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	Note   string  `json:"note"`
}

// Contribute adds amount to a goal and returns the updated goal plus a
// contribution receipt.
func (s *Service) Contribute(ctx context.Context, userID, goalID string, amount float64, note string) (*Goal, *Contribution, error) {
	if ok, reason := validation.ValidAmount(amount); !ok {
		return nil, nil, apperr.Validationf("Invalid amount: %s", reason)
	}
	if amount <= 0 {
		return nil, nil, apperr.Validation("Contribution amount must be greater than 0")
	}

	g, err := s.Get(ctx, userID, goalID)
	if err != nil {
		return nil, nil, err
	}

	g.CurrentAmount = money.Sum(g.CurrentAmount, amount)
	g.Recompute()

	if err := s.repo.Put(ctx, *g); err != nil {
		return nil, nil, apperr.Internal("failed to update goal", err)
	}

	contribution := &Contribution{
		ID:     uuid.NewString(),
		Amount: amount,
		Date:   timeutil.Now(),
		Note:   validation.SanitizeString(note, 500),
	}
	return g, contribution, nil
}

// GoalProgress pairs a goal with its linear projection
type GoalProgress struct {
	Goal                Goal    `json:"goal"`
	MonthlyContribution float64 `json:"monthly_contribution"`
	ProjectedDate       *string `json:"projected_completion_date"`
	OnTrack             bool    `json:"on_track"`
}

// SavingsProgress is the rollup over all active goals
type SavingsProgress struct {
	Goals           []GoalProgress `json:"goals"`
	TotalSaved      float64        `json:"total_saved"`
	TotalTarget     float64        `json:"total_target"`
	OverallProgress float64        `json:"overall_progress"`
}

// Progress projects every active goal and totals saved vs target amounts.
func (s *Service) Progress(ctx context.Context, userID string, now time.Time) (*SavingsProgress, error) {
	goals, err := s.List(ctx, userID, "active")
	if err != nil {
		return nil, err
	}

	result := &SavingsProgress{Goals: make([]GoalProgress, 0, len(goals))}
	var saved, target float64

	for _, g := range goals {
		saved = money.Sum(saved, g.CurrentAmount)
		target = money.Sum(target, g.TargetAmount)

		p := Project(g, now)
		result.Goals = append(result.Goals, GoalProgress{
			Goal:                g,
			MonthlyContribution: p.MonthlyContribution,
			ProjectedDate:       p.ProjectedDate,
			OnTrack:             p.OnTrack,
		})
	}

	result.TotalSaved = money.Round2(saved)
	result.TotalTarget = money.Round2(target)
	result.OverallProgress = money.Ratio(saved, target)
	return result, nil
}
