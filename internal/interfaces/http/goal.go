package http

import (
	"net/http"

	"saverr/internal/domain/goal"
)

// GoalHandler exposes goal CRUD plus contributions.
type GoalHandler struct {
	goals *goal.Service
}

func NewGoalHandler(goals *goal.Service) *GoalHandler {
	return &GoalHandler{goals: goals}
}

type createGoalRequest struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	TargetAmount  float64 `json:"target_amount"`
	CurrentAmount float64 `json:"current_amount"`
	TargetDate    *string `json:"target_date"`
	Category      string  `json:"category"`
	Priority      int     `json:"priority"`
}

// HandleGoals serves the collection: POST creates a goal, GET lists the
// user's goals with an optional status filter.
func (h *GoalHandler) HandleGoals(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req createGoalRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		g, err := h.goals.Create(r.Context(), uid, goal.CreateParams{
			Title:         req.Title,
			Description:   req.Description,
			TargetAmount:  req.TargetAmount,
			CurrentAmount: req.CurrentAmount,
			TargetDate:    req.TargetDate,
			Category:      req.Category,
			Priority:      req.Priority,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"goal": g})
	case http.MethodGet:
		goals, err := h.goals.List(r.Context(), uid, r.URL.Query().Get("status"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
	default:
		methodNotAllowed(w)
	}
}

type updateGoalRequest struct {
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	TargetAmount  *float64 `json:"target_amount"`
	CurrentAmount *float64 `json:"current_amount"`
	TargetDate    *string  `json:"target_date"`
	Category      *string  `json:"category"`
	Status        *string  `json:"status"`
	Priority      *int     `json:"priority"`
}

// HandleGoalByID serves a single goal: GET, PATCH, DELETE.
func (h *GoalHandler) HandleGoalByID(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	goalID := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		g, err := h.goals.Get(r.Context(), uid, goalID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"goal": g})
	case http.MethodPatch, http.MethodPut:
		var req updateGoalRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		g, err := h.goals.Update(r.Context(), uid, goalID, goal.UpdateParams{
			Title:         req.Title,
			Description:   req.Description,
			TargetAmount:  req.TargetAmount,
			CurrentAmount: req.CurrentAmount,
			TargetDate:    req.TargetDate,
			Category:      req.Category,
			Status:        req.Status,
			Priority:      req.Priority,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"goal": g})
	case http.MethodDelete:
		if err := h.goals.Delete(r.Context(), uid, goalID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Goal deleted successfully",
		})
	default:
		methodNotAllowed(w)
	}
}

type contributeRequest struct {
	Amount float64 `json:"amount"`
	Note   string  `json:"note"`
}

// HandleContribute adds a contribution to a goal.
func (h *GoalHandler) HandleContribute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req contributeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	g, contribution, err := h.goals.Contribute(r.Context(), uid, r.PathValue("id"), req.Amount, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"goal":         g,
		"contribution": contribution,
	})
}
