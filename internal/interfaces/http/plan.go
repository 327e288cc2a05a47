package http

import (
	"net/http"

	"saverr/internal/domain/plan"
)

// PlanHandler lists stored financial plans and deactivates old ones. New
// plans are created through the chat generate-plan endpoint.
type PlanHandler struct {
	plans *plan.Service
}

func NewPlanHandler(plans *plan.Service) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// HandlePlans lists the user's plans, newest first. ?active_only=true
// restricts to the active plan.
func (h *PlanHandler) HandlePlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	activeOnly := r.URL.Query().Get("active_only") == "true"
	plans, err := h.plans.List(r.Context(), uid, activeOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

// HandleDeactivate clears the active flag on one plan.
func (h *PlanHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	if err := h.plans.Deactivate(r.Context(), uid, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Plan deactivated"})
}
