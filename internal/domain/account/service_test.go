package account

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"saverr/internal/domain/transaction"
	"saverr/internal/infrastructure/ledger"
	"saverr/internal/shared/apperr"
)

const testAccountID = "1a2b3c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d"

// MockLedgerClient is a mock aggregator client for testing
type MockLedgerClient struct {
	CreateLinkTokenFunc     func(ctx context.Context, userID string) (*ledger.LinkTokenResponse, error)
	ExchangePublicTokenFunc func(ctx context.Context, publicToken string) (*ledger.ExchangeResponse, error)
	GetAccountsFunc         func(ctx context.Context, accessToken string) (*ledger.AccountsResponse, error)
	GetBalancesFunc         func(ctx context.Context, accessToken string) (*ledger.AccountsResponse, error)
	RemoveItemFunc          func(ctx context.Context, accessToken string) error
}

func (m *MockLedgerClient) CreateLinkToken(ctx context.Context, userID string) (*ledger.LinkTokenResponse, error) {
	if m.CreateLinkTokenFunc != nil {
		return m.CreateLinkTokenFunc(ctx, userID)
	}
	return &ledger.LinkTokenResponse{LinkToken: "link-token"}, nil
}

func (m *MockLedgerClient) ExchangePublicToken(ctx context.Context, publicToken string) (*ledger.ExchangeResponse, error) {
	if m.ExchangePublicTokenFunc != nil {
		return m.ExchangePublicTokenFunc(ctx, publicToken)
	}
	return &ledger.ExchangeResponse{AccessToken: "access-token", ItemID: "item-1"}, nil
}

func (m *MockLedgerClient) GetAccounts(ctx context.Context, accessToken string) (*ledger.AccountsResponse, error) {
	if m.GetAccountsFunc != nil {
		return m.GetAccountsFunc(ctx, accessToken)
	}
	return &ledger.AccountsResponse{}, nil
}

func (m *MockLedgerClient) GetBalances(ctx context.Context, accessToken string) (*ledger.AccountsResponse, error) {
	if m.GetBalancesFunc != nil {
		return m.GetBalancesFunc(ctx, accessToken)
	}
	return &ledger.AccountsResponse{}, nil
}

func (m *MockLedgerClient) SyncTransactions(ctx context.Context, accessToken, cursor string, count int) (*ledger.SyncResponse, error) {
	return &ledger.SyncResponse{}, nil
}

func (m *MockLedgerClient) GetTransactions(ctx context.Context, accessToken, startDate, endDate string, accountIDs []string) (*ledger.TransactionsResponse, error) {
	return &ledger.TransactionsResponse{}, nil
}

func (m *MockLedgerClient) RemoveItem(ctx context.Context, accessToken string) error {
	if m.RemoveItemFunc != nil {
		return m.RemoveItemFunc(ctx, accessToken)
	}
	return nil
}

// MockRepo is an in-memory account repository for testing
type MockRepo struct {
	accounts     map[string]Account
	updateCalls  []map[string]any
	deleteCalled bool
}

func NewMockRepo() *MockRepo {
	return &MockRepo{accounts: make(map[string]Account)}
}

func (m *MockRepo) Create(ctx context.Context, acct Account) error {
	m.accounts[acct.ID] = acct
	return nil
}

func (m *MockRepo) Get(ctx context.Context, userID, accountID string) (*Account, error) {
	acct, ok := m.accounts[accountID]
	if !ok || acct.UserID != userID {
		return nil, nil
	}
	copied := acct
	return &copied, nil
}

func (m *MockRepo) ListByUser(ctx context.Context, userID string) ([]Account, error) {
	var out []Account
	for _, acct := range m.accounts {
		if acct.UserID == userID {
			out = append(out, acct)
		}
	}
	return out, nil
}

func (m *MockRepo) UpdateFields(ctx context.Context, userID, accountID string, fields map[string]any) error {
	m.updateCalls = append(m.updateCalls, fields)
	acct, ok := m.accounts[accountID]
	if !ok {
		return nil
	}
	if balance, ok := fields["balance"].(float64); ok {
		acct.Balance = balance
	}
	if updated, ok := fields["last_updated"].(string); ok {
		acct.LastUpdated = updated
	}
	m.accounts[accountID] = acct
	return nil
}

func (m *MockRepo) Delete(ctx context.Context, userID, accountID string) error {
	m.deleteCalled = true
	delete(m.accounts, accountID)
	return nil
}

// MockTxnRepo serves a fixed transaction list for testing
type MockTxnRepo struct {
	txns []transaction.Transaction
}

func (m *MockTxnRepo) Upsert(ctx context.Context, txn transaction.Transaction) error { return nil }
func (m *MockTxnRepo) Delete(ctx context.Context, accountID, transactionID string) error {
	return nil
}
func (m *MockTxnRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]transaction.Transaction, error) {
	if limit > 0 && limit < len(m.txns) {
		return m.txns[:limit], nil
	}
	return m.txns, nil
}

func seedAccount(repo *MockRepo, accessToken string) {
	repo.accounts[testAccountID] = Account{
		ID:                testAccountID,
		UserID:            "user-1",
		AccountName:       "Everyday Checking",
		Balance:           1200.00,
		ExternalAccountID: "ext-acct-1",
		AccessToken:       accessToken,
		IsLinked:          accessToken != "",
	}
}

func TestLink_CreatesOneRecordPerRemoteAccount(t *testing.T) {
	repo := NewMockRepo()
	client := &MockLedgerClient{
		GetAccountsFunc: func(ctx context.Context, accessToken string) (*ledger.AccountsResponse, error) {
			return &ledger.AccountsResponse{
				Accounts: []ledger.RemoteAccount{
					{AccountID: "ext-1", Name: "Checking", Mask: "1234", Type: "depository", Balances: ledger.Balances{Current: 500.00}},
					{AccountID: "ext-2", Name: "Savings", Mask: "5678", Type: "depository", Balances: ledger.Balances{Current: 9000.00}},
				},
				Item: ledger.Item{ItemID: "item-1", InstitutionID: "ins_1", InstitutionName: "First National"},
			}, nil
		},
	}
	service := NewService(repo, &MockTxnRepo{}, client)

	result, err := service.Link(context.Background(), "user-1", "public-token", "")
	if err != nil {
		t.Fatalf("Link returned error: %v", err)
	}

	if result.AccountsLinked != 2 {
		t.Errorf("expected 2 accounts linked, got %d", result.AccountsLinked)
	}
	if len(repo.accounts) != 2 {
		t.Errorf("expected 2 stored accounts, got %d", len(repo.accounts))
	}
	if result.Account.AccountName != "Checking" || result.Account.Balance != 500.00 {
		t.Errorf("expected primary account Checking/500.00, got %s/%v", result.Account.AccountName, result.Account.Balance)
	}
	if result.Account.InstitutionName != "First National" {
		t.Errorf("expected institution First National, got %s", result.Account.InstitutionName)
	}
	if result.Account.AccessToken != "" {
		t.Error("access token must not appear in the link response")
	}
	for _, acct := range repo.accounts {
		if acct.AccessToken != "access-token" {
			t.Errorf("stored account missing access token: %+v", acct.ID)
		}
		if !acct.IsLinked {
			t.Errorf("stored account not marked linked: %s", acct.ID)
		}
	}
}

func TestLink_DefaultsForSparseRemoteAccounts(t *testing.T) {
	repo := NewMockRepo()
	client := &MockLedgerClient{
		GetAccountsFunc: func(ctx context.Context, accessToken string) (*ledger.AccountsResponse, error) {
			return &ledger.AccountsResponse{
				Accounts: []ledger.RemoteAccount{{AccountID: "ext-1"}},
			}, nil
		},
	}
	service := NewService(repo, &MockTxnRepo{}, client)

	result, err := service.Link(context.Background(), "user-1", "public-token", "")
	if err != nil {
		t.Fatalf("Link returned error: %v", err)
	}

	acct := result.Account
	if acct.AccountName != "Account" {
		t.Errorf("expected default account name, got %q", acct.AccountName)
	}
	if acct.AccountType != "checking" {
		t.Errorf("expected default account type, got %q", acct.AccountType)
	}
	if acct.NumberLast4 != "****" {
		t.Errorf("expected masked default last4, got %q", acct.NumberLast4)
	}
	if acct.InstitutionName != "Unknown" {
		t.Errorf("expected Unknown institution, got %q", acct.InstitutionName)
	}
	if acct.InstitutionLogo != "building.columns" {
		t.Errorf("expected default institution logo, got %q", acct.InstitutionLogo)
	}
}

func TestLink_Failures(t *testing.T) {
	tests := []struct {
		name        string
		publicToken string
		client      *MockLedgerClient
		wantKind    apperr.Kind
	}{
		{
			name:        "missing public token",
			publicToken: "   ",
			client:      &MockLedgerClient{},
			wantKind:    apperr.KindValidation,
		},
		{
			name:        "exchange fails",
			publicToken: "public-token",
			client: &MockLedgerClient{
				ExchangePublicTokenFunc: func(ctx context.Context, publicToken string) (*ledger.ExchangeResponse, error) {
					return nil, errors.New("invalid token")
				},
			},
			wantKind: apperr.KindValidation,
		},
		{
			name:        "no remote accounts",
			publicToken: "public-token",
			client:      &MockLedgerClient{},
			wantKind:    apperr.KindValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewService(NewMockRepo(), &MockTxnRepo{}, tt.client)
			_, err := service.Link(context.Background(), "user-1", tt.publicToken, "")
			if apperr.KindOf(err) != tt.wantKind {
				t.Errorf("expected kind %v, got %v (%v)", tt.wantKind, apperr.KindOf(err), err)
			}
		})
	}
}

func TestCreateLinkToken_UnavailableOnClientFailure(t *testing.T) {
	client := &MockLedgerClient{
		CreateLinkTokenFunc: func(ctx context.Context, userID string) (*ledger.LinkTokenResponse, error) {
			return nil, errors.New("connection refused")
		},
	}
	service := NewService(NewMockRepo(), &MockTxnRepo{}, client)

	_, err := service.CreateLinkToken(context.Background(), "user-1")
	if apperr.KindOf(err) != apperr.KindUnavailable {
		t.Errorf("expected unavailable error, got %v", err)
	}
}

func TestListAndGet_StripAccessToken(t *testing.T) {
	repo := NewMockRepo()
	seedAccount(repo, "secret-token")
	service := NewService(repo, &MockTxnRepo{}, &MockLedgerClient{})

	accounts, err := service.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(accounts) != 1 || accounts[0].AccessToken != "" {
		t.Errorf("expected one account with stripped token, got %+v", accounts)
	}

	acct, err := service.Get(context.Background(), "user-1", testAccountID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if acct.AccessToken != "" {
		t.Error("Get must strip the access token")
	}
}

func TestGet_Errors(t *testing.T) {
	repo := NewMockRepo()
	seedAccount(repo, "")
	service := NewService(repo, &MockTxnRepo{}, &MockLedgerClient{})

	if _, err := service.Get(context.Background(), "user-1", "not-a-uuid"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for malformed id, got %v", err)
	}
	if _, err := service.Get(context.Background(), "user-2", testAccountID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not found for another user's account, got %v", err)
	}
}

func TestRefresh_LinkedAccountPullsBalance(t *testing.T) {
	repo := NewMockRepo()
	seedAccount(repo, "access-token")
	client := &MockLedgerClient{
		GetBalancesFunc: func(ctx context.Context, accessToken string) (*ledger.AccountsResponse, error) {
			return &ledger.AccountsResponse{
				Accounts: []ledger.RemoteAccount{
					{AccountID: "ext-other", Balances: ledger.Balances{Current: 1.00}},
					{AccountID: "ext-acct-1", Balances: ledger.Balances{Current: 1525.75}},
				},
			}, nil
		},
	}
	service := NewService(repo, &MockTxnRepo{}, client)

	result, err := service.Refresh(context.Background(), "user-1", testAccountID)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if result.Balance != 1525.75 {
		t.Errorf("expected refreshed balance 1525.75, got %v", result.Balance)
	}
	if repo.accounts[testAccountID].Balance != 1525.75 {
		t.Errorf("expected stored balance updated, got %v", repo.accounts[testAccountID].Balance)
	}
	if result.LastUpdated == "" {
		t.Error("expected last_updated to be set")
	}
}

func TestRefresh_UnlinkedAccountOnlyBumpsTimestamp(t *testing.T) {
	repo := NewMockRepo()
	seedAccount(repo, "")
	service := NewService(repo, &MockTxnRepo{}, &MockLedgerClient{})

	result, err := service.Refresh(context.Background(), "user-1", testAccountID)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if result.Balance != 1200.00 {
		t.Errorf("expected unchanged balance 1200.00, got %v", result.Balance)
	}
	if len(repo.updateCalls) != 1 {
		t.Fatalf("expected one update, got %d", len(repo.updateCalls))
	}
	if _, hasBalance := repo.updateCalls[0]["balance"]; hasBalance {
		t.Error("unlinked refresh must not write a balance")
	}
}

func TestRefresh_UnavailableWhenAggregatorFails(t *testing.T) {
	repo := NewMockRepo()
	seedAccount(repo, "access-token")
	client := &MockLedgerClient{
		GetBalancesFunc: func(ctx context.Context, accessToken string) (*ledger.AccountsResponse, error) {
			return nil, errors.New("timeout")
		},
	}
	service := NewService(repo, &MockTxnRepo{}, client)

	_, err := service.Refresh(context.Background(), "user-1", testAccountID)
	if apperr.KindOf(err) != apperr.KindUnavailable {
		t.Errorf("expected unavailable error, got %v", err)
	}
	if len(repo.updateCalls) != 0 {
		t.Error("failed refresh must not write to the account")
	}
}

func TestUnlink_RevokesAndDeletes(t *testing.T) {
	repo := NewMockRepo()
	seedAccount(repo, "access-token")
	var revoked string
	client := &MockLedgerClient{
		RemoveItemFunc: func(ctx context.Context, accessToken string) error {
			revoked = accessToken
			return nil
		},
	}
	service := NewService(repo, &MockTxnRepo{}, client)

	if err := service.Unlink(context.Background(), "user-1", testAccountID); err != nil {
		t.Fatalf("Unlink returned error: %v", err)
	}
	if revoked != "access-token" {
		t.Errorf("expected revocation with the stored token, got %q", revoked)
	}
	if !repo.deleteCalled {
		t.Error("expected the account record to be deleted")
	}
}

func TestUnlink_DeletesEvenWhenRevokeFails(t *testing.T) {
	repo := NewMockRepo()
	seedAccount(repo, "access-token")
	client := &MockLedgerClient{
		RemoveItemFunc: func(ctx context.Context, accessToken string) error {
			return errors.New("item not found")
		},
	}
	service := NewService(repo, &MockTxnRepo{}, client)

	if err := service.Unlink(context.Background(), "user-1", testAccountID); err != nil {
		t.Fatalf("Unlink returned error: %v", err)
	}
	if !repo.deleteCalled {
		t.Error("revocation failure must not block deletion")
	}
}

func seedTransactions(n int) []transaction.Transaction {
	txns := make([]transaction.Transaction, 0, n)
	for i := 0; i < n; i++ {
		txns = append(txns, transaction.Transaction{
			ID:           fmt.Sprintf("txn-%03d", i),
			AccountID:    testAccountID,
			Amount:       10.00,
			IsDebit:      true,
			Date:         fmt.Sprintf("2026-03-%02d", (i%28)+1),
			CategoryName: "Food & Dining",
		})
	}
	return txns
}

func TestListTransactions_PaginationAndOrdering(t *testing.T) {
	repo := NewMockRepo()
	seedAccount(repo, "")
	service := NewService(repo, &MockTxnRepo{txns: seedTransactions(5)}, &MockLedgerClient{})

	page, err := service.ListTransactions(context.Background(), "user-1", testAccountID, TxnFilter{Limit: 3})
	if err != nil {
		t.Fatalf("ListTransactions returned error: %v", err)
	}

	if len(page.Transactions) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(page.Transactions))
	}
	if !page.HasMore {
		t.Error("expected has_more with 5 stored and limit 3")
	}
	for i := 1; i < len(page.Transactions); i++ {
		if page.Transactions[i-1].Date < page.Transactions[i].Date {
			t.Errorf("expected reverse-chronological order, got %s before %s",
				page.Transactions[i-1].Date, page.Transactions[i].Date)
		}
	}

	rest, err := service.ListTransactions(context.Background(), "user-1", testAccountID, TxnFilter{Limit: 3, Offset: 3})
	if err != nil {
		t.Fatalf("ListTransactions returned error: %v", err)
	}
	if len(rest.Transactions) != 2 || rest.HasMore {
		t.Errorf("expected final page of 2 with no more, got %d/%v", len(rest.Transactions), rest.HasMore)
	}
}

func TestListTransactions_Filters(t *testing.T) {
	repo := NewMockRepo()
	seedAccount(repo, "")
	txns := []transaction.Transaction{
		{ID: "t1", Date: "2026-03-01", CategoryName: "Food & Dining"},
		{ID: "t2", Date: "2026-03-10", CategoryName: "Shopping"},
		{ID: "t3", Date: "2026-03-20", CategoryName: "food & dining"},
	}
	service := NewService(repo, &MockTxnRepo{txns: txns}, &MockLedgerClient{})

	page, err := service.ListTransactions(context.Background(), "user-1", testAccountID, TxnFilter{
		StartDate: "2026-03-05",
		Category:  "FOOD & DINING",
	})
	if err != nil {
		t.Fatalf("ListTransactions returned error: %v", err)
	}
	if len(page.Transactions) != 1 || page.Transactions[0].ID != "t3" {
		t.Errorf("expected only t3 after date and category filters, got %+v", page.Transactions)
	}
}

func TestListTransactions_LimitClampAndValidation(t *testing.T) {
	repo := NewMockRepo()
	seedAccount(repo, "")
	service := NewService(repo, &MockTxnRepo{}, &MockLedgerClient{})

	page, err := service.ListTransactions(context.Background(), "user-1", testAccountID, TxnFilter{Limit: 9999})
	if err != nil {
		t.Fatalf("ListTransactions returned error: %v", err)
	}
	if page.Limit != maxTxnLimit {
		t.Errorf("expected limit clamped to %d, got %d", maxTxnLimit, page.Limit)
	}

	_, err = service.ListTransactions(context.Background(), "user-1", testAccountID, TxnFilter{StartDate: "yesterday"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for bad start_date, got %v", err)
	}
}
