package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"saverr/internal/domain/account"
	"saverr/internal/domain/goal"
	"saverr/internal/domain/plan"
	"saverr/internal/domain/transaction"
	"saverr/internal/infrastructure/advisor"
	"saverr/internal/shared/apperr"
)

// MockAdvisor is a mock advisor client for testing
type MockAdvisor struct {
	CompleteFunc func(ctx context.Context, system string, messages []advisor.Message, maxTokens int) (string, error)

	lastSystem   string
	lastMessages []advisor.Message
}

func (m *MockAdvisor) Complete(ctx context.Context, system string, messages []advisor.Message, maxTokens int) (string, error) {
	m.lastSystem = system
	m.lastMessages = messages
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, system, messages, maxTokens)
	}
	return "Here is some advice.", nil
}

// MockAccountRepo serves fixed accounts for testing
type MockAccountRepo struct {
	accounts []account.Account
}

func (m *MockAccountRepo) Create(ctx context.Context, acct account.Account) error { return nil }
func (m *MockAccountRepo) Get(ctx context.Context, userID, accountID string) (*account.Account, error) {
	return nil, nil
}
func (m *MockAccountRepo) ListByUser(ctx context.Context, userID string) ([]account.Account, error) {
	return m.accounts, nil
}
func (m *MockAccountRepo) UpdateFields(ctx context.Context, userID, accountID string, fields map[string]any) error {
	return nil
}
func (m *MockAccountRepo) Delete(ctx context.Context, userID, accountID string) error { return nil }

// MockTxnRepo serves fixed transactions for testing
type MockTxnRepo struct {
	txns []transaction.Transaction
}

func (m *MockTxnRepo) Upsert(ctx context.Context, txn transaction.Transaction) error { return nil }
func (m *MockTxnRepo) Delete(ctx context.Context, accountID, transactionID string) error {
	return nil
}
func (m *MockTxnRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]transaction.Transaction, error) {
	return m.txns, nil
}

// MockGoalRepo is an in-memory goal repository for testing
type MockGoalRepo struct {
	goals []goal.Goal
}

func (m *MockGoalRepo) Create(ctx context.Context, g goal.Goal) error {
	m.goals = append(m.goals, g)
	return nil
}
func (m *MockGoalRepo) Get(ctx context.Context, userID, goalID string) (*goal.Goal, error) {
	return nil, nil
}
func (m *MockGoalRepo) ListByUser(ctx context.Context, userID string) ([]goal.Goal, error) {
	return m.goals, nil
}
func (m *MockGoalRepo) Put(ctx context.Context, g goal.Goal) error { return nil }
func (m *MockGoalRepo) Delete(ctx context.Context, userID, goalID string) error { return nil }

// MockPlanRepo is an in-memory plan repository for testing
type MockPlanRepo struct {
	plans []plan.Plan
}

func (m *MockPlanRepo) Create(ctx context.Context, p plan.Plan) error {
	m.plans = append(m.plans, p)
	return nil
}
func (m *MockPlanRepo) ListByUser(ctx context.Context, userID string) ([]plan.Plan, error) {
	return m.plans, nil
}
func (m *MockPlanRepo) Deactivate(ctx context.Context, userID, planID string) error {
	for i := range m.plans {
		if m.plans[i].ID == planID {
			m.plans[i].IsActive = false
		}
	}
	return nil
}

type fixture struct {
	service  *Service
	advisor  *MockAdvisor
	planRepo *MockPlanRepo
}

func newFixture(accounts []account.Account, txns []transaction.Transaction, goals []goal.Goal) *fixture {
	mockAdvisor := &MockAdvisor{}
	planRepo := &MockPlanRepo{}
	service := NewService(
		mockAdvisor,
		&MockAccountRepo{accounts: accounts},
		&MockTxnRepo{txns: txns},
		goal.NewService(&MockGoalRepo{goals: goals}),
		plan.NewService(planRepo),
	)
	return &fixture{service: service, advisor: mockAdvisor, planRepo: planRepo}
}

func TestSendMessage_IncludesFinancialContext(t *testing.T) {
	f := newFixture(
		[]account.Account{
			{AccountName: "Everyday Checking", Balance: 1200.50},
			{AccountName: "Rainy Day", Balance: 800.00},
		},
		nil,
		[]goal.Goal{{Title: "New Car", CurrentAmount: 500, TargetAmount: 5000, Status: "active"}},
	)

	reply, err := f.service.SendMessage(context.Background(), "user-1", "How am I doing?", nil, true)
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	if !strings.Contains(f.advisor.lastSystem, "2 linked accounts") {
		t.Errorf("expected account count in system prompt, got: %s", f.advisor.lastSystem)
	}
	if !strings.Contains(f.advisor.lastSystem, "Everyday Checking ($1200.50)") {
		t.Errorf("expected account summary in system prompt, got: %s", f.advisor.lastSystem)
	}
	if !strings.Contains(f.advisor.lastSystem, "New Car ($500.00/$5000.00)") {
		t.Errorf("expected goal summary in system prompt, got: %s", f.advisor.lastSystem)
	}
	if reply.ID == "" || reply.Timestamp == "" || reply.MessageType != "text" {
		t.Errorf("expected populated reply envelope, got %+v", reply)
	}
}

func TestSendMessage_OmitsContextWhenDisabled(t *testing.T) {
	f := newFixture([]account.Account{{AccountName: "Checking", Balance: 100}}, nil, nil)

	_, err := f.service.SendMessage(context.Background(), "user-1", "Hello", nil, false)
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if strings.Contains(f.advisor.lastSystem, "financial context") {
		t.Error("expected no financial context when disabled")
	}
}

func TestSendMessage_TruncatesHistoryToLastTen(t *testing.T) {
	f := newFixture(nil, nil, nil)

	history := make([]HistoryMessage, 15)
	for i := range history {
		history[i] = HistoryMessage{Content: "turn", IsFromUser: i%2 == 0}
	}

	_, err := f.service.SendMessage(context.Background(), "user-1", "final question", history, false)
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	// 10 history turns plus the new user message.
	if len(f.advisor.lastMessages) != 11 {
		t.Errorf("expected 11 messages, got %d", len(f.advisor.lastMessages))
	}
	last := f.advisor.lastMessages[len(f.advisor.lastMessages)-1]
	if last.Role != "user" || last.Content != "final question" {
		t.Errorf("expected the new message last, got %+v", last)
	}
}

func TestSendMessage_EmptyMessageRejected(t *testing.T) {
	f := newFixture(nil, nil, nil)
	_, err := f.service.SendMessage(context.Background(), "user-1", "   ", nil, false)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSendMessage_Suggestions(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{
			name:     "budget keywords",
			response: "You should review your budget and cut spending on dining.",
			want:     []string{"Create a budget"},
		},
		{
			name:     "savings and expenses",
			response: "Try to save more each month and track every expense.",
			want:     []string{"Set a savings goal", "Review my spending"},
		},
		{
			name:     "no keywords falls back",
			response: "Interest rates vary by institution.",
			want:     []string{"Tell me more", "Set a goal", "Check my accounts"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil, nil, nil)
			f.advisor.CompleteFunc = func(ctx context.Context, system string, messages []advisor.Message, maxTokens int) (string, error) {
				return tt.response, nil
			}
			reply, err := f.service.SendMessage(context.Background(), "user-1", "advice please", nil, false)
			if err != nil {
				t.Fatalf("SendMessage returned error: %v", err)
			}
			if len(reply.Suggestions) != len(tt.want) {
				t.Fatalf("expected %d suggestions, got %v", len(tt.want), reply.Suggestions)
			}
			for i, w := range tt.want {
				if reply.Suggestions[i] != w {
					t.Errorf("suggestion %d: expected %q, got %q", i, w, reply.Suggestions[i])
				}
			}
		})
	}
}

func TestSendMessage_AdvisorFailurePropagates(t *testing.T) {
	f := newFixture(nil, nil, nil)
	f.advisor.CompleteFunc = func(ctx context.Context, system string, messages []advisor.Message, maxTokens int) (string, error) {
		return "", apperr.Unavailable("AI service temporarily unavailable", errors.New("timeout"))
	}
	_, err := f.service.SendMessage(context.Background(), "user-1", "hello", nil, false)
	if apperr.KindOf(err) != apperr.KindUnavailable {
		t.Errorf("expected unavailable error, got %v", err)
	}
}

func TestGeneratePlan_ParsesFencedJSON(t *testing.T) {
	f := newFixture(nil, nil, nil)
	f.advisor.CompleteFunc = func(ctx context.Context, system string, messages []advisor.Message, maxTokens int) (string, error) {
		return "```json\n" + `{
			"summary": "Save aggressively for six months.",
			"recommendations": ["Cut dining out", "Automate transfers"],
			"monthly_target_savings": 450,
			"suggested_goals": [{"title": "Emergency Fund", "target_amount": 6000}]
		}` + "\n```", nil
	}

	result, err := f.service.GeneratePlan(context.Background(), "user-1", nil, 6)
	if err != nil {
		t.Fatalf("GeneratePlan returned error: %v", err)
	}

	if result.Plan.Summary != "Save aggressively for six months." {
		t.Errorf("unexpected summary: %q", result.Plan.Summary)
	}
	if result.Plan.MonthlyTargetSavings != 450 {
		t.Errorf("expected monthly target 450, got %v", result.Plan.MonthlyTargetSavings)
	}
	if !result.Plan.IsActive {
		t.Error("generated plan must be active")
	}
	if len(result.SuggestedGoals) != 1 || result.SuggestedGoals[0].Category != "savings" {
		t.Errorf("expected one suggested goal with default category, got %+v", result.SuggestedGoals)
	}
	if len(f.planRepo.plans) != 1 {
		t.Errorf("expected the plan persisted, got %d", len(f.planRepo.plans))
	}
	if !strings.Contains(f.advisor.lastSystem, "Time horizon: 6 months") {
		t.Errorf("expected horizon in prompt, got: %s", f.advisor.lastSystem)
	}
}

func TestGeneratePlan_FallbackOnUnparseableReply(t *testing.T) {
	f := newFixture(nil, nil, nil)
	f.advisor.CompleteFunc = func(ctx context.Context, system string, messages []advisor.Message, maxTokens int) (string, error) {
		return "Sure! Here is a plan in prose instead of JSON.", nil
	}

	result, err := f.service.GeneratePlan(context.Background(), "user-1", nil, 12)
	if err != nil {
		t.Fatalf("GeneratePlan returned error: %v", err)
	}

	if result.Plan.MonthlyTargetSavings != 300 {
		t.Errorf("expected fallback monthly target 300, got %v", result.Plan.MonthlyTargetSavings)
	}
	if len(result.Plan.Recommendations) != 3 {
		t.Errorf("expected 3 fallback recommendations, got %d", len(result.Plan.Recommendations))
	}
	if len(result.SuggestedGoals) != 0 {
		t.Errorf("expected no suggested goals in fallback, got %d", len(result.SuggestedGoals))
	}
}

func TestGeneratePlan_ClampsHorizon(t *testing.T) {
	for _, horizon := range []int{0, -3, 500} {
		f := newFixture(nil, nil, nil)
		if _, err := f.service.GeneratePlan(context.Background(), "user-1", nil, horizon); err != nil {
			t.Fatalf("GeneratePlan(%d) returned error: %v", horizon, err)
		}
		if !strings.Contains(f.advisor.lastSystem, "Time horizon: 12 months") {
			t.Errorf("horizon %d: expected default of 12 months in prompt", horizon)
		}
	}
}

func TestGeneratePlan_DeactivatesPriorActivePlan(t *testing.T) {
	f := newFixture(nil, nil, nil)
	f.planRepo.plans = []plan.Plan{{ID: "old-plan", UserID: "user-1", IsActive: true}}

	if _, err := f.service.GeneratePlan(context.Background(), "user-1", nil, 12); err != nil {
		t.Fatalf("GeneratePlan returned error: %v", err)
	}

	var active int
	for _, p := range f.planRepo.plans {
		if p.IsActive {
			active++
		}
	}
	if active != 1 {
		t.Errorf("expected exactly one active plan after generation, got %d", active)
	}
	if f.planRepo.plans[0].IsActive {
		t.Error("expected the prior plan deactivated")
	}
}

func TestSuggestGoals_ParsedFromAdvisor(t *testing.T) {
	f := newFixture(nil, nil, nil)
	f.advisor.CompleteFunc = func(ctx context.Context, system string, messages []advisor.Message, maxTokens int) (string, error) {
		return `{"suggested_goals": [
			{"title": "Pay Off Card", "target_amount": 2500, "category": "debt_payoff"},
			{"title": "Trip Fund", "target_amount": 1800, "category": "vacation"}
		]}`, nil
	}

	goals, err := f.service.SuggestGoals(context.Background(), "user-1", "", "", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("SuggestGoals returned error: %v", err)
	}
	if len(goals) != 2 || goals[0].Title != "Pay Off Card" {
		t.Errorf("expected parsed suggestions, got %+v", goals)
	}
}

func TestSuggestGoals_FallbackEmergencyFund(t *testing.T) {
	// Six months of 600/month spending and no parseable advisor reply
	// should yield a 3x monthly-expense emergency fund of 1800.
	txns := []transaction.Transaction{
		{Amount: 1200.00, IsDebit: true, Date: "2026-01-15", CategoryName: "Food & Dining"},
		{Amount: 2400.00, IsDebit: true, Date: "2026-02-10", CategoryName: "Shopping"},
	}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture([]account.Account{{ID: "acct-1"}}, txns, nil)
	f.advisor.CompleteFunc = func(ctx context.Context, system string, messages []advisor.Message, maxTokens int) (string, error) {
		return "no json here", nil
	}

	goals, err := f.service.SuggestGoals(context.Background(), "user-1", "", "", now)
	if err != nil {
		t.Fatalf("SuggestGoals returned error: %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("expected one fallback goal, got %d", len(goals))
	}
	g := goals[0]
	if g.Category != "emergency" || g.Title != "Emergency Fund" {
		t.Errorf("expected emergency fund fallback, got %+v", g)
	}
	if g.TargetAmount != 1800.00 {
		t.Errorf("expected target 1800.00, got %v", g.TargetAmount)
	}
	if g.SuggestedTargetDate != "2026-08-28" {
		t.Errorf("expected target date 180 days out, got %s", g.SuggestedTargetDate)
	}
}

func TestSuggestGoals_InvalidDates(t *testing.T) {
	f := newFixture(nil, nil, nil)
	_, err := f.service.SuggestGoals(context.Background(), "user-1", "last month", "2026-03-01", time.Now())
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}
