package goal

import "context"

// Categories is the closed set of goal categories.
var Categories = []string{
	"savings", "debt_payoff", "emergency", "investment",
	"purchase", "retirement", "vacation", "custom",
}

// ValidCategory reports whether c is one of the allowed goal categories.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Goal is a savings goal. Progress is derived (current/target, 0 when the
// target is not positive) and recomputed on every write that touches either
// amount. It is deliberately not clamped and can exceed 1.0.
type Goal struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	TargetAmount  float64 `json:"target_amount"`
	CurrentAmount float64 `json:"current_amount"`
	TargetDate    *string `json:"target_date,omitempty"`
	Category      string  `json:"category"`
	CreatedAt     string  `json:"created_at"`
	Status        string  `json:"status"`
	IsAIGenerated bool    `json:"is_ai_generated"`
	Priority      int     `json:"priority"`
	Progress      float64 `json:"progress"`
}

// Recompute refreshes the derived progress field.
func (g *Goal) Recompute() {
	if g.TargetAmount > 0 {
		g.Progress = g.CurrentAmount / g.TargetAmount
	} else {
		g.Progress = 0
	}
}

// Repository is the user-partitioned goal store.
type Repository interface {
	Create(ctx context.Context, g Goal) error
	// Get returns nil when the goal is absent or owned by another user.
	Get(ctx context.Context, userID, goalID string) (*Goal, error)
	ListByUser(ctx context.Context, userID string) ([]Goal, error)
	Put(ctx context.Context, g Goal) error
	Delete(ctx context.Context, userID, goalID string) error
}
