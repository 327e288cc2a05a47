package http

import (
	"net/http"
	"time"

	"saverr/internal/domain/chat"
)

// ChatHandler exposes the AI advisor endpoints: conversational messages,
// plan generation, and goal suggestions.
type ChatHandler struct {
	chat *chat.Service
}

func NewChatHandler(service *chat.Service) *ChatHandler {
	return &ChatHandler{chat: service}
}

type messageRequest struct {
	Message                 string                `json:"message"`
	Context                 []chat.HistoryMessage `json:"context"`
	IncludeFinancialContext *bool                 `json:"include_financial_context"`
}

// HandleMessage sends one chat message and returns the advisor's reply.
func (h *ChatHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	includeContext := req.IncludeFinancialContext == nil || *req.IncludeFinancialContext
	reply, err := h.chat.SendMessage(r.Context(), uid, req.Message, req.Context, includeContext)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"response": reply})
}

type generatePlanRequest struct {
	Context           []chat.HistoryMessage `json:"context"`
	TimeHorizonMonths int                   `json:"time_horizon_months"`
}

// HandleGeneratePlan asks the advisor for a financial plan and stores it
// as the user's active plan.
func (h *ChatHandler) HandleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req generatePlanRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	generated, err := h.chat.GeneratePlan(r.Context(), uid, req.Context, req.TimeHorizonMonths)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan": generated})
}

type suggestGoalsRequest struct {
	DateRange struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	} `json:"date_range"`
}

// HandleSuggestGoals derives goal suggestions from recent spending.
func (h *ChatHandler) HandleSuggestGoals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req suggestGoalsRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	goals, err := h.chat.SuggestGoals(r.Context(), uid, req.DateRange.StartDate, req.DateRange.EndDate, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggested_goals": goals})
}
