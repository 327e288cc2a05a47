package plan

import (
	"context"

	"github.com/google/uuid"

	"saverr/internal/shared/apperr"
	"saverr/internal/shared/timeutil"
	"saverr/internal/shared/validation"
)

// Service handles plan lifecycle
type Service struct {
	repo Repository
}

// NewService creates a new plan service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateParams are the caller-supplied fields for a new plan
type CreateParams struct {
	Summary              string
	Recommendations      []string
	MonthlyTargetSavings float64
	GoalIDs              []string
}

// Create deactivates any prior active plans, then stores the new plan as
// the active one.
func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (*Plan, error) {
	summary := validation.SanitizeString(params.Summary, 2000)
	if summary == "" {
		return nil, apperr.Validation("Summary cannot be empty")
	}

	recommendations := make([]string, 0, len(params.Recommendations))
	for _, r := range params.Recommendations {
		if r = validation.SanitizeString(r, 500); r != "" {
			recommendations = append(recommendations, r)
		}
	}

	if params.MonthlyTargetSavings != 0 {
		if ok, reason := validation.ValidAmount(params.MonthlyTargetSavings); !ok {
			return nil, apperr.Validationf("Invalid monthly_target_savings: %s", reason)
		}
	}

	goalIDs := params.GoalIDs
	if goalIDs == nil {
		goalIDs = []string{}
	}

	active, err := s.List(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	for _, existing := range active {
		if err := s.repo.Deactivate(ctx, userID, existing.ID); err != nil {
			return nil, apperr.Internal("failed to deactivate prior plan", err)
		}
	}

	p := Plan{
		ID:                   uuid.NewString(),
		UserID:               userID,
		Summary:              summary,
		Recommendations:      recommendations,
		MonthlyTargetSavings: params.MonthlyTargetSavings,
		GoalIDs:              goalIDs,
		GeneratedAt:          timeutil.Now(),
		IsActive:             true,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperr.Internal("failed to create plan", err)
	}
	return &p, nil
}

// List returns the user's plans, optionally restricted to active ones
func (s *Service) List(ctx context.Context, userID string, activeOnly bool) ([]Plan, error) {
	plans, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list plans", err)
	}
	if !activeOnly {
		return plans, nil
	}
	filtered := make([]Plan, 0, len(plans))
	for _, p := range plans {
		if p.IsActive {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// Deactivate clears a plan's active flag, verifying ownership first
func (s *Service) Deactivate(ctx context.Context, userID, planID string) error {
	if !validation.ValidUUID(planID) {
		return apperr.Validation("Invalid plan ID format")
	}

	plans, err := s.List(ctx, userID, false)
	if err != nil {
		return err
	}

	found := false
	for _, p := range plans {
		if p.ID == planID {
			found = true
			break
		}
	}
	if !found {
		return apperr.NotFound("Plan not found")
	}

	if err := s.repo.Deactivate(ctx, userID, planID); err != nil {
		return apperr.Internal("failed to deactivate plan", err)
	}
	return nil
}
