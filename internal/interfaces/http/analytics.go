package http

import (
	"net/http"
	"time"

	"saverr/internal/domain/analytics"
	"saverr/internal/domain/budget"
	"saverr/internal/domain/goal"
	"saverr/internal/shared/apperr"
	"saverr/internal/shared/timeutil"
	"saverr/internal/shared/validation"
)

// AnalyticsHandler exposes the rollup endpoints: cash flow, spending by
// category, budget comparison, and savings progress. Budget documents are
// managed here too since the comparison reads them.
type AnalyticsHandler struct {
	engine  *analytics.Engine
	goals   *goal.Service
	budgets budget.Repository
}

func NewAnalyticsHandler(engine *analytics.Engine, goals *goal.Service, budgets budget.Repository) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine, goals: goals, budgets: budgets}
}

// HandleCashFlow buckets inflows and outflows over a date range.
func (h *AnalyticsHandler) HandleCashFlow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	granularity := analytics.Granularity(q.Get("granularity"))
	if granularity == "" {
		granularity = analytics.Monthly
	}

	result, err := h.engine.CashFlow(r.Context(), uid, q.Get("start_date"), q.Get("end_date"), granularity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleSpendingByCategory totals outflows per category over a date range.
func (h *AnalyticsHandler) HandleSpendingByCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	result, err := h.engine.SpendingByCategory(r.Context(), uid, q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleBudgetComparison compares a month's budget against actual spend.
// The month defaults to the current one.
func (h *AnalyticsHandler) HandleBudgetComparison(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		month = timeutil.Today()[:7]
	}

	result, err := h.engine.BudgetComparison(r.Context(), uid, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleSavingsProgress projects every active goal and totals progress.
func (h *AnalyticsHandler) HandleSavingsProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	result, err := h.goals.Progress(r.Context(), uid, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type budgetRequest struct {
	TotalBudget float64            `json:"total_budget"`
	Categories  map[string]float64 `json:"categories"`
}

// HandleBudgetByMonth reads or replaces the stored budget for one month.
func (h *AnalyticsHandler) HandleBudgetByMonth(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	month := r.PathValue("month")
	if !validation.ValidMonth(month) {
		writeError(w, apperr.Validation("Invalid month format. Use YYYY-MM"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		b, err := h.budgets.Get(r.Context(), uid, month)
		if err != nil {
			writeError(w, err)
			return
		}
		if b == nil {
			writeError(w, apperr.NotFound("No budget set for this month"))
			return
		}
		writeJSON(w, http.StatusOK, b)
	case http.MethodPut:
		var req budgetRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.TotalBudget < 0 {
			writeError(w, apperr.Validation("total_budget cannot be negative"))
			return
		}
		for name, amount := range req.Categories {
			if amount < 0 {
				writeError(w, apperr.Validationf("budget for %q cannot be negative", name))
				return
			}
		}
		b := budget.Budget{
			UserID:      uid,
			Month:       month,
			TotalBudget: req.TotalBudget,
			Categories:  req.Categories,
		}
		if err := h.budgets.Put(r.Context(), b); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	default:
		methodNotAllowed(w)
	}
}
