// Package analytics computes read-only rollups over a user's transaction
// history: time-bucketed cash flow, spending by category, and budget vs
// actual comparison. All rollups share the same signed-amount view of the
// stored transactions: income positive, spending negative.
package analytics

import (
	"context"
	"sort"
	"time"

	"saverr/internal/domain/account"
	"saverr/internal/domain/budget"
	"saverr/internal/domain/money"
	"saverr/internal/domain/transaction"
	"saverr/internal/shared/apperr"
	"saverr/internal/shared/validation"
)

// Transactions beyond this many per account are silently excluded from
// every rollup. Accepted imprecision to cap query cost.
const perAccountCap = 1000

// Granularity selects the cash-flow bucketing period.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// Engine computes the analytics rollups
type Engine struct {
	accounts account.Repository
	txns     transaction.Repository
	budgets  budget.Repository
}

// NewEngine creates a new analytics engine
func NewEngine(accounts account.Repository, txns transaction.Repository, budgets budget.Repository) *Engine {
	return &Engine{accounts: accounts, txns: txns, budgets: budgets}
}

// collectTransactions fetches up to perAccountCap transactions from each of
// the user's accounts, keeping those with a date inside [startDate, endDate]
// (endDate exclusive when endExclusive). Dates compare on their first 10
// characters so full timestamps bucket correctly.
func (e *Engine) collectTransactions(ctx context.Context, userID, startDate, endDate string, endExclusive bool) ([]transaction.Transaction, error) {
	accounts, err := e.accounts.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list accounts", err)
	}

	var collected []transaction.Transaction
	for _, acct := range accounts {
		txns, err := e.txns.ListByAccount(ctx, acct.ID, perAccountCap)
		if err != nil {
			return nil, apperr.Internal("failed to list transactions", err)
		}
		for _, txn := range txns {
			date := txn.DateOnly()
			if date < startDate {
				continue
			}
			if endExclusive {
				if date >= endDate {
					continue
				}
			} else if date > endDate {
				continue
			}
			collected = append(collected, txn)
		}
	}
	return collected, nil
}

// FlowBucket is one period's inflow or outflow total
type FlowBucket struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// CashFlow is the inflow/outflow rollup for a date range
type CashFlow struct {
	Inflows      []FlowBucket `json:"inflows"`
	Outflows     []FlowBucket `json:"outflows"`
	NetFlow      float64      `json:"net_flow"`
	TotalInflow  float64      `json:"total_inflow"`
	TotalOutflow float64      `json:"total_outflow"`
}

// CashFlow buckets every transaction in the inclusive range by period,
// summing income into inflows and spending magnitudes into outflows.
func (e *Engine) CashFlow(ctx context.Context, userID, startDate, endDate string, granularity Granularity) (*CashFlow, error) {
	if !validation.ValidDate(startDate) {
		return nil, apperr.Validation("Invalid start_date format. Use YYYY-MM-DD")
	}
	if !validation.ValidDate(endDate) {
		return nil, apperr.Validation("Invalid end_date format. Use YYYY-MM-DD")
	}
	switch granularity {
	case Daily, Weekly, Monthly:
	default:
		return nil, apperr.Validation("granularity must be daily, weekly, or monthly")
	}

	txns, err := e.collectTransactions(ctx, userID, startDate, endDate, false)
	if err != nil {
		return nil, err
	}

	inflows := make(map[string]float64)
	outflows := make(map[string]float64)

	for _, txn := range txns {
		key, ok := periodKey(txn.DateOnly(), granularity)
		if !ok {
			continue
		}
		amount := txn.SignedAmount()
		if amount >= 0 {
			inflows[key] = money.Sum(inflows[key], amount)
		} else {
			outflows[key] = money.Sum(outflows[key], -amount)
		}
	}

	result := &CashFlow{
		Inflows:  sortedBuckets(inflows),
		Outflows: sortedBuckets(outflows),
	}

	var totalIn, totalOut float64
	for _, v := range inflows {
		totalIn = money.Sum(totalIn, v)
	}
	for _, v := range outflows {
		totalOut = money.Sum(totalOut, v)
	}

	result.TotalInflow = money.Round2(totalIn)
	result.TotalOutflow = money.Round2(totalOut)
	result.NetFlow = money.Round2(totalIn - totalOut)
	return result, nil
}

// periodKey maps a calendar date onto its bucket: the date itself for
// daily, the Monday on or before it for weekly, the year-month for monthly.
func periodKey(date string, granularity Granularity) (string, bool) {
	if date == "" {
		return "", false
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", false
	}

	switch granularity {
	case Weekly:
		// time.Weekday counts Sunday as 0; shift so Monday anchors the week.
		offset := (int(parsed.Weekday()) + 6) % 7
		return parsed.AddDate(0, 0, -offset).Format("2006-01-02"), true
	case Monthly:
		return parsed.Format("2006-01"), true
	default:
		return date, true
	}
}

func sortedBuckets(totals map[string]float64) []FlowBucket {
	buckets := make([]FlowBucket, 0, len(totals))
	for date, amount := range totals {
		buckets = append(buckets, FlowBucket{Date: date, Amount: money.Round2(amount)})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Date < buckets[j].Date
	})
	return buckets
}

// CategorySpend is one category's share of spending in a range
type CategorySpend struct {
	CategoryName     string  `json:"category_name"`
	IconName         string  `json:"icon_name"`
	ColorHex         string  `json:"color_hex"`
	Amount           float64 `json:"amount"`
	Percentage       float64 `json:"percentage"`
	TransactionCount int     `json:"transaction_count"`
}

// SpendingByCategory is the category breakdown of spending in a range
type SpendingByCategory struct {
	Categories    []CategorySpend `json:"categories"`
	TotalSpending float64         `json:"total_spending"`
}

// SpendingByCategory sums spending magnitudes per category across the
// inclusive range, ordered by amount descending.
func (e *Engine) SpendingByCategory(ctx context.Context, userID, startDate, endDate string) (*SpendingByCategory, error) {
	if !validation.ValidDate(startDate) {
		return nil, apperr.Validation("Invalid start_date format. Use YYYY-MM-DD")
	}
	if !validation.ValidDate(endDate) {
		return nil, apperr.Validation("Invalid end_date format. Use YYYY-MM-DD")
	}

	txns, err := e.collectTransactions(ctx, userID, startDate, endDate, false)
	if err != nil {
		return nil, err
	}

	amounts := make(map[string]float64)
	counts := make(map[string]int)
	var total float64

	for _, txn := range txns {
		amount := txn.SignedAmount()
		if amount >= 0 {
			continue
		}
		category := txn.CategoryName
		if category == "" {
			category = "Other"
		}
		amounts[category] = money.Sum(amounts[category], -amount)
		counts[category]++
		total = money.Sum(total, -amount)
	}

	categories := make([]CategorySpend, 0, len(amounts))
	for name, amount := range amounts {
		display := displayFor(name)
		categories = append(categories, CategorySpend{
			CategoryName:     name,
			IconName:         display.icon,
			ColorHex:         display.color,
			Amount:           money.Round2(amount),
			Percentage:       money.Ratio(amount, total),
			TransactionCount: counts[name],
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Amount != categories[j].Amount {
			return categories[i].Amount > categories[j].Amount
		}
		return categories[i].CategoryName < categories[j].CategoryName
	})

	return &SpendingByCategory{
		Categories:    categories,
		TotalSpending: money.Round2(total),
	}, nil
}

// CategoryComparison is budgeted vs actual for one category
type CategoryComparison struct {
	CategoryName string  `json:"category_name"`
	Budgeted     float64 `json:"budgeted"`
	Actual       float64 `json:"actual"`
	IsOverBudget bool    `json:"is_over_budget"`
}

// BudgetComparison is the month-level budget vs actual rollup
type BudgetComparison struct {
	Budgeted     float64              `json:"budgeted"`
	Actual       float64              `json:"actual"`
	IsOverBudget bool                 `json:"is_over_budget"`
	PercentUsed  float64              `json:"percent_used"`
	ByCategory   []CategoryComparison `json:"by_category"`
}

// BudgetComparison compares one month's stored budget against actual
// spending in [first of month, first of next month). A missing budget means
// "no budget set": zero budgeted amounts, nothing flagged over budget.
func (e *Engine) BudgetComparison(ctx context.Context, userID, month string) (*BudgetComparison, error) {
	if !validation.ValidMonth(month) {
		return nil, apperr.Validation("Invalid month format. Use YYYY-MM")
	}

	stored, err := e.budgets.Get(ctx, userID, month)
	if err != nil {
		return nil, apperr.Internal("failed to load budget", err)
	}

	var budgetedTotal float64
	categoryBudgets := map[string]float64{}
	if stored != nil {
		budgetedTotal = stored.TotalBudget
		if stored.Categories != nil {
			categoryBudgets = stored.Categories
		}
	}

	startDate, endDate, err := monthWindow(month)
	if err != nil {
		return nil, apperr.Validation("Invalid month format. Use YYYY-MM")
	}

	txns, err := e.collectTransactions(ctx, userID, startDate, endDate, true)
	if err != nil {
		return nil, err
	}

	actuals := make(map[string]float64)
	var actualTotal float64
	for _, txn := range txns {
		amount := txn.SignedAmount()
		if amount >= 0 {
			continue
		}
		category := txn.CategoryName
		if category == "" {
			category = "Other"
		}
		actuals[category] = money.Sum(actuals[category], -amount)
		actualTotal = money.Sum(actualTotal, -amount)
	}

	names := make(map[string]struct{})
	for name := range categoryBudgets {
		names[name] = struct{}{}
	}
	for name := range actuals {
		names[name] = struct{}{}
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	byCategory := make([]CategoryComparison, 0, len(sorted))
	for _, name := range sorted {
		budgeted := categoryBudgets[name]
		actual := actuals[name]
		byCategory = append(byCategory, CategoryComparison{
			CategoryName: name,
			Budgeted:     money.Round2(budgeted),
			Actual:       money.Round2(actual),
			IsOverBudget: budgeted > 0 && actual > budgeted,
		})
	}

	result := &BudgetComparison{
		Budgeted:   money.Round2(budgetedTotal),
		Actual:     money.Round2(actualTotal),
		ByCategory: byCategory,
	}
	if budgetedTotal > 0 {
		result.IsOverBudget = actualTotal > budgetedTotal
		result.PercentUsed = money.Ratio(actualTotal, budgetedTotal)
	}
	return result, nil
}

// monthWindow returns [first day of month, first day of next month).
func monthWindow(month string) (string, string, error) {
	first, err := time.Parse("2006-01", month)
	if err != nil {
		return "", "", err
	}
	return first.Format("2006-01-02"), first.AddDate(0, 1, 0).Format("2006-01-02"), nil
}
