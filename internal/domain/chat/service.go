// Package chat fronts the generative advisor model: free-form financial
// Q&A grounded in the user's data, plan generation, and goal suggestions
// derived from transaction history.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"saverr/internal/domain/account"
	"saverr/internal/domain/goal"
	"saverr/internal/domain/money"
	"saverr/internal/domain/plan"
	"saverr/internal/domain/transaction"
	"saverr/internal/infrastructure/advisor"
	"saverr/internal/shared/apperr"
	"saverr/internal/shared/timeutil"
	"saverr/internal/shared/validation"
)

const (
	maxHistoryMessages = 10
	maxContextAccounts = 5
	maxContextGoals    = 5
)

const advisorSystemPrompt = `You are a helpful AI financial advisor for the Saverr app. Your role is to:
- Help users understand their finances and spending patterns
- Provide personalized budgeting advice
- Suggest ways to save money and reach financial goals
- Answer questions about personal finance in a friendly, accessible way

Guidelines:
- Be encouraging and supportive
- Give specific, actionable advice when possible
- Use the user's financial data when relevant
- Keep responses concise but informative
- Never give specific investment recommendations
- Remind users to consult professionals for complex financial decisions
`

// HistoryMessage is one prior turn of the client-held conversation.
type HistoryMessage struct {
	Content    string `json:"content"`
	IsFromUser bool   `json:"is_from_user"`
}

// Reply is the advisor's answer to one chat message.
type Reply struct {
	ID          string   `json:"id"`
	Content     string   `json:"content"`
	Timestamp   string   `json:"timestamp"`
	MessageType string   `json:"message_type"`
	Suggestions []string `json:"suggestions"`
}

// Service orchestrates advisor calls with the user's financial context.
type Service struct {
	advisor  advisor.ClientInterface
	accounts account.Repository
	txns     transaction.Repository
	goals    *goal.Service
	plans    *plan.Service
}

// NewService creates a new chat service
func NewService(client advisor.ClientInterface, accounts account.Repository, txns transaction.Repository, goals *goal.Service, plans *plan.Service) *Service {
	return &Service{
		advisor:  client,
		accounts: accounts,
		txns:     txns,
		goals:    goals,
		plans:    plans,
	}
}

// SendMessage forwards one user message to the advisor along with recent
// conversation history and, optionally, a summary of the user's finances.
func (s *Service) SendMessage(ctx context.Context, userID, message string, history []HistoryMessage, includeFinancialContext bool) (*Reply, error) {
	message = validation.SanitizeString(message, 2000)
	if message == "" {
		return nil, apperr.Validation("Message cannot be empty")
	}

	system := advisorSystemPrompt
	if includeFinancialContext {
		if financial := s.financialContext(ctx, userID); financial != "" {
			system += "\n\nUser's financial context: " + financial
		}
	}

	messages := historyToMessages(history)
	messages = append(messages, advisor.Message{Role: "user", Content: message})

	content, err := s.advisor.Complete(ctx, system, messages, 1024)
	if err != nil {
		return nil, err
	}

	return &Reply{
		ID:          uuid.NewString(),
		Content:     content,
		Timestamp:   timeutil.Now(),
		MessageType: "text",
		Suggestions: suggestFollowUps(content),
	}, nil
}

// financialContext summarizes the user's accounts and active goals for
// the system prompt. Failures degrade to an empty context.
func (s *Service) financialContext(ctx context.Context, userID string) string {
	accounts, err := s.accounts.ListByUser(ctx, userID)
	if err != nil {
		log.Printf("WARN: failed to build financial context for user %s: %v", userID, err)
		return ""
	}

	var total float64
	for _, acct := range accounts {
		total = money.Sum(total, acct.Balance)
	}

	parts := []string{
		fmt.Sprintf("User has %d linked accounts with total balance of $%.2f.", len(accounts), total),
	}

	if len(accounts) > 0 {
		summaries := make([]string, 0, maxContextAccounts)
		for i, acct := range accounts {
			if i == maxContextAccounts {
				break
			}
			summaries = append(summaries, fmt.Sprintf("%s ($%.2f)", acct.AccountName, acct.Balance))
		}
		parts = append(parts, "Accounts: "+strings.Join(summaries, ", "))
	}

	if goals, err := s.goals.List(ctx, userID, "active"); err == nil && len(goals) > 0 {
		summaries := make([]string, 0, maxContextGoals)
		for i, g := range goals {
			if i == maxContextGoals {
				break
			}
			summaries = append(summaries, fmt.Sprintf("%s ($%.2f/$%.2f)", g.Title, g.CurrentAmount, g.TargetAmount))
		}
		parts = append(parts, "Active goals: "+strings.Join(summaries, ", "))
	}

	return strings.Join(parts, " ")
}

func historyToMessages(history []HistoryMessage) []advisor.Message {
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	messages := make([]advisor.Message, 0, len(history)+1)
	for _, msg := range history {
		if msg.Content == "" {
			continue
		}
		role := "assistant"
		if msg.IsFromUser {
			role = "user"
		}
		messages = append(messages, advisor.Message{Role: role, Content: msg.Content})
	}
	return messages
}

// suggestFollowUps derives up to three quick-reply chips from the reply
// text, falling back to a generic set.
func suggestFollowUps(content string) []string {
	lower := strings.ToLower(content)
	var suggestions []string
	if strings.Contains(lower, "budget") || strings.Contains(lower, "spending") {
		suggestions = append(suggestions, "Create a budget")
	}
	if strings.Contains(lower, "save") || strings.Contains(lower, "saving") {
		suggestions = append(suggestions, "Set a savings goal")
	}
	if strings.Contains(lower, "transaction") || strings.Contains(lower, "expense") {
		suggestions = append(suggestions, "Review my spending")
	}
	if len(suggestions) == 0 {
		return []string{"Tell me more", "Set a goal", "Check my accounts"}
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}

// SuggestedGoal is one advisor-proposed goal, not yet persisted.
type SuggestedGoal struct {
	Title               string  `json:"title"`
	Description         string  `json:"description"`
	TargetAmount        float64 `json:"target_amount"`
	SuggestedTargetDate string  `json:"suggested_target_date"`
	Category            string  `json:"category"`
	Priority            int     `json:"priority,omitempty"`
	Reasoning           string  `json:"reasoning,omitempty"`
}

// GeneratedPlan is the persisted plan plus goal suggestions that were not
// stored.
type GeneratedPlan struct {
	Plan           plan.Plan       `json:"plan"`
	SuggestedGoals []SuggestedGoal `json:"suggested_goals"`
}

// planPayload is the JSON shape the advisor is asked to produce.
type planPayload struct {
	Summary              string          `json:"summary"`
	Recommendations      []string        `json:"recommendations"`
	MonthlyTargetSavings float64         `json:"monthly_target_savings"`
	SuggestedGoals       []SuggestedGoal `json:"suggested_goals"`
}

const planPromptTemplate = `You are a financial planning AI assistant. Generate a personalized financial plan based on the user's conversation and financial data.

The plan should include:
1. A clear summary of the plan (2-3 sentences)
2. 3-5 specific, actionable recommendations
3. A suggested monthly savings target based on their situation
4. 1-3 suggested goals if appropriate

Financial Context:
%s

Time horizon: %d months

Respond in this exact JSON format:
{
    "summary": "Plan summary here...",
    "recommendations": ["Recommendation 1", "Recommendation 2", "Recommendation 3"],
    "monthly_target_savings": 500,
    "suggested_goals": [
        {
            "title": "Goal Title",
            "target_amount": 5000,
            "target_date": "YYYY-MM-DD",
            "category": "emergency|savings|vacation|debt_payoff|investment|purchase",
            "priority": 1
        }
    ]
}
`

// GeneratePlan asks the advisor for a financial plan over the given horizon
// and persists it as the user's active plan. A malformed advisor response
// falls back to a conservative default plan rather than failing.
func (s *Service) GeneratePlan(ctx context.Context, userID string, history []HistoryMessage, horizonMonths int) (*GeneratedPlan, error) {
	if horizonMonths < 1 || horizonMonths > 120 {
		horizonMonths = 12
	}

	system := fmt.Sprintf(planPromptTemplate, s.planContext(ctx, userID), horizonMonths)

	messages := historyToMessages(history)
	messages = append(messages, advisor.Message{
		Role:    "user",
		Content: "Based on our conversation and my financial situation, please generate a personalized financial plan in the JSON format specified.",
	})

	content, err := s.advisor.Complete(ctx, system, messages, 2048)
	if err != nil {
		return nil, err
	}

	payload := parsePlanPayload(content)

	created, err := s.plans.Create(ctx, userID, plan.CreateParams{
		Summary:              payload.Summary,
		Recommendations:      payload.Recommendations,
		MonthlyTargetSavings: payload.MonthlyTargetSavings,
	})
	if err != nil {
		return nil, err
	}

	suggested := payload.SuggestedGoals
	if suggested == nil {
		suggested = []SuggestedGoal{}
	}
	for i := range suggested {
		if suggested[i].Category == "" {
			suggested[i].Category = "savings"
		}
	}

	return &GeneratedPlan{Plan: *created, SuggestedGoals: suggested}, nil
}

// planContext is the richer multi-line context used for plan generation,
// including a rough recent-spending figure.
func (s *Service) planContext(ctx context.Context, userID string) string {
	accounts, err := s.accounts.ListByUser(ctx, userID)
	if err != nil {
		log.Printf("WARN: failed to build plan context for user %s: %v", userID, err)
		return ""
	}

	var total float64
	for _, acct := range accounts {
		total = money.Sum(total, acct.Balance)
	}

	lines := []string{fmt.Sprintf("Total balance across %d accounts: $%.2f", len(accounts), total)}
	for i, acct := range accounts {
		if i == maxContextAccounts {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s: $%.2f (%s)", acct.AccountName, acct.Balance, acct.AccountType))
	}

	if goals, err := s.goals.List(ctx, userID, "active"); err == nil && len(goals) > 0 {
		lines = append(lines, fmt.Sprintf("\nActive goals (%d):", len(goals)))
		for i, g := range goals {
			if i == maxContextGoals {
				break
			}
			lines = append(lines, fmt.Sprintf("- %s: $%.2f/$%.2f (%.0f%%)", g.Title, g.CurrentAmount, g.TargetAmount, g.Progress*100))
		}
	}

	var spending float64
	for i, acct := range accounts {
		if i == 3 {
			break
		}
		txns, err := s.txns.ListByAccount(ctx, acct.ID, 50)
		if err != nil {
			continue
		}
		for _, txn := range txns {
			if signed := txn.SignedAmount(); signed < 0 {
				spending = money.Sum(spending, -signed)
			}
		}
	}
	lines = append(lines, fmt.Sprintf("\nRecent spending (approx): $%.2f", spending))

	return strings.Join(lines, "\n")
}

// parsePlanPayload extracts the JSON plan from the advisor's reply,
// tolerating markdown code fences. Unparseable replies produce a static
// fallback plan.
func parsePlanPayload(content string) planPayload {
	raw := stripCodeFence(content)

	var payload planPayload
	if err := json.Unmarshal([]byte(raw), &payload); err == nil && payload.Summary != "" {
		return payload
	}

	log.Printf("WARN: advisor returned an unparseable plan, using fallback")
	return planPayload{
		Summary: "Based on your financial situation, here's a personalized plan.",
		Recommendations: []string{
			"Build an emergency fund covering 3-6 months of expenses",
			"Review and reduce unnecessary subscriptions",
			"Set up automatic savings transfers",
		},
		MonthlyTargetSavings: 300,
	}
}

// stripCodeFence removes a surrounding ``` or ```json fence if present.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if idx := strings.Index(content, "```json"); idx >= 0 {
		content = content[idx+len("```json"):]
	} else if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[idx+len("```"):]
	} else {
		return content
	}
	if end := strings.Index(content, "```"); end >= 0 {
		content = content[:end]
	}
	return strings.TrimSpace(content)
}

// spendingAnalysis summarizes a user's transactions over a date window.
type spendingAnalysis struct {
	TotalIncome        float64
	TotalExpenses      float64
	AvgMonthlyIncome   float64
	AvgMonthlyExpenses float64
	CategorySpending   map[string]float64
	MonthsAnalyzed     float64
}

const goalsPromptTemplate = `You are a financial advisor AI. Based on the user's spending analysis, suggest 2-3 personalized financial goals.

Transaction Analysis:
- Average monthly income: $%.2f
- Average monthly expenses: $%.2f
- Months analyzed: %.0f
- Top spending categories: %s

Existing goals (avoid duplicates): %s

Suggest goals that are:
1. Specific and measurable
2. Achievable based on their income/expense ratio
3. Varied (emergency fund, debt payoff, savings, etc.)

Respond in this exact JSON format:
{
    "suggested_goals": [
        {
            "title": "Goal Title",
            "description": "Brief description of why this goal matters",
            "target_amount": 5000,
            "suggested_target_date": "YYYY-MM-DD",
            "category": "emergency|savings|debt_payoff|vacation|investment|purchase",
            "reasoning": "Explanation based on their finances"
        }
    ]
}
`

// SuggestGoals analyzes the user's transactions over the window (defaulting
// to the trailing six months) and asks the advisor for goal suggestions. A
// malformed advisor response falls back to a single emergency-fund goal
// sized from the analysis.
func (s *Service) SuggestGoals(ctx context.Context, userID, startDate, endDate string, now time.Time) ([]SuggestedGoal, error) {
	if startDate == "" && endDate == "" {
		endDate = now.Format(timeutil.DateLayout)
		startDate = now.AddDate(0, 0, -180).Format(timeutil.DateLayout)
	}
	if !validation.ValidDate(startDate) {
		return nil, apperr.Validation("Invalid start date format. Use YYYY-MM-DD")
	}
	if !validation.ValidDate(endDate) {
		return nil, apperr.Validation("Invalid end date format. Use YYYY-MM-DD")
	}

	analysis, err := s.analyzeSpending(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	var existingTitles []string
	if goals, err := s.goals.List(ctx, userID, ""); err == nil {
		for _, g := range goals {
			existingTitles = append(existingTitles, strings.ToLower(g.Title))
		}
	}

	system := fmt.Sprintf(goalsPromptTemplate,
		analysis.AvgMonthlyIncome,
		analysis.AvgMonthlyExpenses,
		analysis.MonthsAnalyzed,
		topCategoriesJSON(analysis.CategorySpending),
		fmt.Sprintf("%v", existingTitles),
	)

	content, err := s.advisor.Complete(ctx, system, []advisor.Message{
		{Role: "user", Content: "Based on my spending patterns, what financial goals should I set?"},
	}, 1500)
	if err != nil {
		return nil, err
	}

	if suggested, ok := parseSuggestedGoals(content); ok {
		return suggested, nil
	}

	log.Printf("WARN: advisor returned unparseable goal suggestions, using fallback")
	emergencyFund := money.Round2(analysis.AvgMonthlyExpenses * 3)
	return []SuggestedGoal{{
		Title:               "Emergency Fund",
		Description:         "Build a 3-month safety net for unexpected expenses",
		TargetAmount:        emergencyFund,
		SuggestedTargetDate: now.AddDate(0, 0, 180).Format(timeutil.DateLayout),
		Category:            "emergency",
		Reasoning: fmt.Sprintf("Based on your monthly expenses of $%.2f, a 3-month emergency fund would be $%.2f",
			analysis.AvgMonthlyExpenses, emergencyFund),
	}}, nil
}

func (s *Service) analyzeSpending(ctx context.Context, userID, startDate, endDate string) (*spendingAnalysis, error) {
	accounts, err := s.accounts.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list accounts", err)
	}

	analysis := &spendingAnalysis{CategorySpending: make(map[string]float64)}

	for _, acct := range accounts {
		txns, err := s.txns.ListByAccount(ctx, acct.ID, 500)
		if err != nil {
			return nil, apperr.Internal("failed to list transactions", err)
		}
		for _, txn := range txns {
			date := txn.DateOnly()
			if date < startDate || date > endDate {
				continue
			}
			signed := txn.SignedAmount()
			if signed >= 0 {
				analysis.TotalIncome = money.Sum(analysis.TotalIncome, signed)
			} else {
				category := txn.CategoryName
				if category == "" {
					category = "Other"
				}
				analysis.TotalExpenses = money.Sum(analysis.TotalExpenses, -signed)
				analysis.CategorySpending[category] = money.Sum(analysis.CategorySpending[category], -signed)
			}
		}
	}

	months := 6.0
	if start, err := time.Parse(timeutil.DateLayout, startDate); err == nil {
		if end, err := time.Parse(timeutil.DateLayout, endDate); err == nil {
			months = end.Sub(start).Hours() / 24 / 30
			if months < 1 {
				months = 1
			}
		}
	}

	analysis.MonthsAnalyzed = months
	analysis.AvgMonthlyIncome = analysis.TotalIncome / months
	analysis.AvgMonthlyExpenses = analysis.TotalExpenses / months
	return analysis, nil
}

// topCategoriesJSON renders the five largest spending categories as JSON
// for the prompt.
func topCategoriesJSON(spending map[string]float64) string {
	type entry struct {
		name   string
		amount float64
	}
	entries := make([]entry, 0, len(spending))
	for name, amount := range spending {
		entries = append(entries, entry{name, amount})
	}
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].amount > entries[i].amount {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	if len(entries) > 5 {
		entries = entries[:5]
	}
	top := make(map[string]float64, len(entries))
	for _, e := range entries {
		top[e.name] = e.amount
	}
	raw, err := json.Marshal(top)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func parseSuggestedGoals(content string) ([]SuggestedGoal, bool) {
	var payload struct {
		SuggestedGoals []SuggestedGoal `json:"suggested_goals"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &payload); err != nil {
		return nil, false
	}
	return payload.SuggestedGoals, true
}
