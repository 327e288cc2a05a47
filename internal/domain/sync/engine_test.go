package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"saverr/internal/domain/account"
	"saverr/internal/domain/transaction"
	"saverr/internal/infrastructure/ledger"
	"saverr/internal/shared/apperr"
	"saverr/internal/shared/timeutil"
)

const (
	testUserID    = "user-1"
	testAccountID = "0d9e8f7a-6b5c-4d3e-2f1a-0b9c8d7e6f5a"
)

type MockLedgerClient struct {
	SyncTransactionsFunc func(ctx context.Context, accessToken, cursor string, count int) (*ledger.SyncResponse, error)
	GetTransactionsFunc  func(ctx context.Context, accessToken, startDate, endDate string, accountIDs []string) (*ledger.TransactionsResponse, error)
}

func (m *MockLedgerClient) CreateLinkToken(ctx context.Context, userID string) (*ledger.LinkTokenResponse, error) {
	return nil, nil
}
func (m *MockLedgerClient) ExchangePublicToken(ctx context.Context, publicToken string) (*ledger.ExchangeResponse, error) {
	return nil, nil
}
func (m *MockLedgerClient) GetAccounts(ctx context.Context, accessToken string) (*ledger.AccountsResponse, error) {
	return nil, nil
}
func (m *MockLedgerClient) GetBalances(ctx context.Context, accessToken string) (*ledger.AccountsResponse, error) {
	return nil, nil
}
func (m *MockLedgerClient) SyncTransactions(ctx context.Context, accessToken, cursor string, count int) (*ledger.SyncResponse, error) {
	if m.SyncTransactionsFunc != nil {
		return m.SyncTransactionsFunc(ctx, accessToken, cursor, count)
	}
	return &ledger.SyncResponse{}, nil
}
func (m *MockLedgerClient) GetTransactions(ctx context.Context, accessToken, startDate, endDate string, accountIDs []string) (*ledger.TransactionsResponse, error) {
	if m.GetTransactionsFunc != nil {
		return m.GetTransactionsFunc(ctx, accessToken, startDate, endDate, accountIDs)
	}
	return &ledger.TransactionsResponse{}, nil
}
func (m *MockLedgerClient) RemoveItem(ctx context.Context, accessToken string) error {
	return nil
}

type MockAccountRepo struct {
	GetFunc          func(ctx context.Context, userID, accountID string) (*account.Account, error)
	UpdateFieldsFunc func(ctx context.Context, userID, accountID string, fields map[string]any) error
}

func (m *MockAccountRepo) Create(ctx context.Context, acct account.Account) error { return nil }
func (m *MockAccountRepo) Get(ctx context.Context, userID, accountID string) (*account.Account, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID, accountID)
	}
	return nil, nil
}
func (m *MockAccountRepo) ListByUser(ctx context.Context, userID string) ([]account.Account, error) {
	return nil, nil
}
func (m *MockAccountRepo) UpdateFields(ctx context.Context, userID, accountID string, fields map[string]any) error {
	if m.UpdateFieldsFunc != nil {
		return m.UpdateFieldsFunc(ctx, userID, accountID, fields)
	}
	return nil
}
func (m *MockAccountRepo) Delete(ctx context.Context, userID, accountID string) error { return nil }

// memTxnStore is an in-memory transaction log keyed the same way the
// document store keys transactions.
type memTxnStore struct {
	docs    map[string]transaction.Transaction
	failOn  string
	upserts int
}

func newMemTxnStore() *memTxnStore {
	return &memTxnStore{docs: make(map[string]transaction.Transaction)}
}

func (s *memTxnStore) key(accountID, txnID string) string {
	return accountID + "/" + txnID
}

func (s *memTxnStore) Upsert(ctx context.Context, txn transaction.Transaction) error {
	if s.failOn != "" && txn.ID == s.failOn {
		return errors.New("store write failed")
	}
	s.upserts++
	s.docs[s.key(txn.AccountID, txn.ID)] = txn
	return nil
}

func (s *memTxnStore) Delete(ctx context.Context, accountID, transactionID string) error {
	delete(s.docs, s.key(accountID, transactionID))
	return nil
}

func (s *memTxnStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]transaction.Transaction, error) {
	var txns []transaction.Transaction
	for _, txn := range s.docs {
		if txn.AccountID == accountID {
			txns = append(txns, txn)
		}
	}
	return txns, nil
}

func linkedAccount(cursor string) *account.Account {
	acct := &account.Account{
		ID:                testAccountID,
		UserID:            testUserID,
		ExternalAccountID: "a1",
		AccessToken:       "access-token",
		IsLinked:          true,
	}
	if cursor != "" {
		acct.SyncCursor = &cursor
	}
	return acct
}

func TestSync_FirstIncrementalPage(t *testing.T) {
	// One added record matching the linked external account, no prior
	// cursor: one stored transaction with the magnitude and debit flag
	// derived from the signed source amount, cursor persisted.
	store := newMemTxnStore()
	var savedFields map[string]any

	accounts := &MockAccountRepo{
		GetFunc: func(ctx context.Context, userID, accountID string) (*account.Account, error) {
			return linkedAccount(""), nil
		},
		UpdateFieldsFunc: func(ctx context.Context, userID, accountID string, fields map[string]any) error {
			savedFields = fields
			return nil
		},
	}
	client := &MockLedgerClient{
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, count int) (*ledger.SyncResponse, error) {
			if cursor != "" {
				t.Errorf("cursor = %q, want empty on first sync", cursor)
			}
			return &ledger.SyncResponse{
				Added: []ledger.Transaction{
					{TransactionID: "t1", AccountID: "a1", Amount: 12.50, Name: "Coffee"},
				},
				NextCursor: "cursor-1",
			}, nil
		},
	}

	engine := NewEngine(client, accounts, store, nil)
	result, err := engine.Sync(context.Background(), testUserID, testAccountID, Params{Mode: ModeIncremental})
	if err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	if result.Added != 1 || result.Synced != 1 {
		t.Errorf("result = %+v, want added=1 synced=1", result)
	}

	stored, ok := store.docs[store.key(testAccountID, "t1")]
	if !ok {
		t.Fatal("transaction t1 not stored")
	}
	if stored.Amount != 12.50 {
		t.Errorf("Amount = %v, want 12.50", stored.Amount)
	}
	if !stored.IsDebit {
		t.Error("IsDebit = false, want true")
	}

	if savedFields["sync_cursor"] != "cursor-1" {
		t.Errorf("persisted cursor = %v, want cursor-1", savedFields["sync_cursor"])
	}
	if savedFields["last_synced"] == nil {
		t.Error("last_synced not persisted")
	}
}

func TestSync_Idempotent(t *testing.T) {
	// Replaying the same aggregator response must leave the stored set
	// unchanged: upsert by composite key is stable.
	store := newMemTxnStore()
	accounts := &MockAccountRepo{
		GetFunc: func(ctx context.Context, userID, accountID string) (*account.Account, error) {
			return linkedAccount(""), nil
		},
	}
	client := &MockLedgerClient{
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, count int) (*ledger.SyncResponse, error) {
			return &ledger.SyncResponse{
				Added: []ledger.Transaction{
					{TransactionID: "t1", AccountID: "a1", Amount: 12.50},
					{TransactionID: "t2", AccountID: "a1", Amount: -3.25},
				},
				NextCursor: "c",
			}, nil
		},
	}

	engine := NewEngine(client, accounts, store, nil)

	for i := 0; i < 2; i++ {
		if _, err := engine.Sync(context.Background(), testUserID, testAccountID, Params{}); err != nil {
			t.Fatalf("Sync() run %d failed: %v", i+1, err)
		}
	}

	if len(store.docs) != 2 {
		t.Errorf("stored %d transactions after replay, want 2", len(store.docs))
	}
}

func TestSync_FiltersOtherAccounts(t *testing.T) {
	store := newMemTxnStore()
	accounts := &MockAccountRepo{
		GetFunc: func(ctx context.Context, userID, accountID string) (*account.Account, error) {
			return linkedAccount(""), nil
		},
	}
	client := &MockLedgerClient{
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, count int) (*ledger.SyncResponse, error) {
			return &ledger.SyncResponse{
				Added: []ledger.Transaction{
					{TransactionID: "t1", AccountID: "a1", Amount: 5},
					{TransactionID: "t2", AccountID: "other-account", Amount: 7},
				},
				Modified: []ledger.Transaction{
					{TransactionID: "t3", AccountID: "other-account", Amount: 9},
				},
			}, nil
		},
	}

	engine := NewEngine(client, accounts, store, nil)
	result, err := engine.Sync(context.Background(), testUserID, testAccountID, Params{})
	if err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	if result.Added != 1 || result.Modified != 0 {
		t.Errorf("result = %+v, want only the matching record counted", result)
	}
	if len(store.docs) != 1 {
		t.Errorf("stored %d transactions, want 1", len(store.docs))
	}
}

func TestSync_ModifiedAndRemoved(t *testing.T) {
	store := newMemTxnStore()
	store.docs[store.key(testAccountID, "t1")] = transaction.Transaction{ID: "t1", AccountID: testAccountID, Amount: 10}
	store.docs[store.key(testAccountID, "t2")] = transaction.Transaction{ID: "t2", AccountID: testAccountID, Amount: 20}

	accounts := &MockAccountRepo{
		GetFunc: func(ctx context.Context, userID, accountID string) (*account.Account, error) {
			return linkedAccount("cursor-0"), nil
		},
	}
	client := &MockLedgerClient{
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, count int) (*ledger.SyncResponse, error) {
			if cursor != "cursor-0" {
				t.Errorf("cursor = %q, want cursor-0", cursor)
			}
			return &ledger.SyncResponse{
				Modified: []ledger.Transaction{
					{TransactionID: "t1", AccountID: "a1", Amount: 15},
				},
				Removed: []ledger.RemovedTransaction{
					{TransactionID: "t2"},
					{TransactionID: "never-existed"},
				},
				NextCursor: "cursor-1",
			}, nil
		},
	}

	engine := NewEngine(client, accounts, store, nil)
	result, err := engine.Sync(context.Background(), testUserID, testAccountID, Params{})
	if err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	if result.Modified != 1 || result.Removed != 2 {
		t.Errorf("result = %+v, want modified=1 removed=2", result)
	}
	if got := store.docs[store.key(testAccountID, "t1")].Amount; got != 15 {
		t.Errorf("t1 amount = %v, want overwritten to 15", got)
	}
	if _, exists := store.docs[store.key(testAccountID, "t2")]; exists {
		t.Error("t2 still stored after removal")
	}
}

func TestSync_CursorNotAdvancedOnFailure(t *testing.T) {
	// A failure mid-page must abort without touching the stored cursor.
	store := newMemTxnStore()
	store.failOn = "t2"

	cursorUpdated := false
	accounts := &MockAccountRepo{
		GetFunc: func(ctx context.Context, userID, accountID string) (*account.Account, error) {
			return linkedAccount("cursor-0"), nil
		},
		UpdateFieldsFunc: func(ctx context.Context, userID, accountID string, fields map[string]any) error {
			cursorUpdated = true
			return nil
		},
	}
	client := &MockLedgerClient{
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, count int) (*ledger.SyncResponse, error) {
			return &ledger.SyncResponse{
				Added: []ledger.Transaction{
					{TransactionID: "t1", AccountID: "a1", Amount: 1},
					{TransactionID: "t2", AccountID: "a1", Amount: 2},
				},
				NextCursor: "cursor-1",
			}, nil
		},
	}

	engine := NewEngine(client, accounts, store, nil)
	_, err := engine.Sync(context.Background(), testUserID, testAccountID, Params{})
	if err == nil {
		t.Fatal("Sync() succeeded, want failure from store write")
	}
	if cursorUpdated {
		t.Error("cursor advanced despite mid-page failure")
	}
}

func TestSync_AggregatorFailureIsUnavailable(t *testing.T) {
	accounts := &MockAccountRepo{
		GetFunc: func(ctx context.Context, userID, accountID string) (*account.Account, error) {
			return linkedAccount(""), nil
		},
	}
	client := &MockLedgerClient{
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, count int) (*ledger.SyncResponse, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}

	engine := NewEngine(client, accounts, newMemTxnStore(), nil)
	_, err := engine.Sync(context.Background(), testUserID, testAccountID, Params{})
	if err == nil {
		t.Fatal("Sync() succeeded, want error")
	}
	if apperr.KindOf(err) != apperr.KindUnavailable {
		t.Errorf("error kind = %v, want Unavailable", apperr.KindOf(err))
	}
}

func TestSync_MissingAccount(t *testing.T) {
	engine := NewEngine(&MockLedgerClient{}, &MockAccountRepo{}, newMemTxnStore(), nil)

	_, err := engine.Sync(context.Background(), testUserID, testAccountID, Params{})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("error kind = %v, want NotFound", apperr.KindOf(err))
	}
}

func TestSync_NotLinked(t *testing.T) {
	accounts := &MockAccountRepo{
		GetFunc: func(ctx context.Context, userID, accountID string) (*account.Account, error) {
			acct := linkedAccount("")
			acct.AccessToken = ""
			return acct, nil
		},
	}
	engine := NewEngine(&MockLedgerClient{}, accounts, newMemTxnStore(), nil)

	_, err := engine.Sync(context.Background(), testUserID, testAccountID, Params{})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("error kind = %v, want Validation", apperr.KindOf(err))
	}
}

func TestSync_MalformedAccountID(t *testing.T) {
	engine := NewEngine(&MockLedgerClient{}, &MockAccountRepo{}, newMemTxnStore(), nil)

	_, err := engine.Sync(context.Background(), testUserID, "not-a-uuid", Params{})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("error kind = %v, want Validation", apperr.KindOf(err))
	}
}

func TestSync_LegacyRange(t *testing.T) {
	store := newMemTxnStore()
	var savedFields map[string]any
	var gotStart, gotEnd string
	var gotAccountIDs []string

	accounts := &MockAccountRepo{
		GetFunc: func(ctx context.Context, userID, accountID string) (*account.Account, error) {
			return linkedAccount("keep-this-cursor"), nil
		},
		UpdateFieldsFunc: func(ctx context.Context, userID, accountID string, fields map[string]any) error {
			savedFields = fields
			return nil
		},
	}
	client := &MockLedgerClient{
		GetTransactionsFunc: func(ctx context.Context, accessToken, startDate, endDate string, accountIDs []string) (*ledger.TransactionsResponse, error) {
			gotStart, gotEnd = startDate, endDate
			gotAccountIDs = accountIDs
			return &ledger.TransactionsResponse{
				Transactions: []ledger.Transaction{
					{TransactionID: "t1", AccountID: "a1", Amount: 10},
					{TransactionID: "t2", AccountID: "a1", Amount: 20},
				},
			}, nil
		},
	}

	engine := NewEngine(client, accounts, store, nil)
	result, err := engine.Sync(context.Background(), testUserID, testAccountID, Params{Mode: ModeLegacyRange, Days: 90})
	if err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	if result.Added != 2 || result.Modified != 0 || result.Removed != 0 {
		t.Errorf("result = %+v, want 2 adds only", result)
	}
	if result.Cursor != nil {
		t.Errorf("Cursor = %v, want nil in legacy mode", *result.Cursor)
	}
	if gotStart >= gotEnd {
		t.Errorf("date range [%s, %s] not ascending", gotStart, gotEnd)
	}
	if len(gotAccountIDs) != 1 || gotAccountIDs[0] != "a1" {
		t.Errorf("accountIDs = %v, want [a1]", gotAccountIDs)
	}

	// Legacy mode must never touch the cursor.
	if _, touched := savedFields["sync_cursor"]; touched {
		t.Error("legacy sync wrote sync_cursor")
	}
	if savedFields["last_synced"] == nil {
		t.Error("last_synced not persisted")
	}
}

func TestSync_LegacyDaysClamped(t *testing.T) {
	tests := []struct {
		name     string
		days     int
		wantDays int
	}{
		{"above max", 10000, 730},
		{"below min", -5, 1},
		{"zero uses default", 0, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotStart, gotEnd string
			accounts := &MockAccountRepo{
				GetFunc: func(ctx context.Context, userID, accountID string) (*account.Account, error) {
					return linkedAccount(""), nil
				},
			}
			client := &MockLedgerClient{
				GetTransactionsFunc: func(ctx context.Context, accessToken, startDate, endDate string, accountIDs []string) (*ledger.TransactionsResponse, error) {
					gotStart, gotEnd = startDate, endDate
					return &ledger.TransactionsResponse{}, nil
				},
			}

			engine := NewEngine(client, accounts, newMemTxnStore(), nil)
			if _, err := engine.Sync(context.Background(), testUserID, testAccountID, Params{Mode: ModeLegacyRange, Days: tt.days}); err != nil {
				t.Fatalf("Sync() failed: %v", err)
			}

			start := parseDate(t, gotStart)
			end := parseDate(t, gotEnd)
			gotWindow := int(end.Sub(start).Hours() / 24)
			if gotWindow != tt.wantDays {
				t.Errorf("window = %d days, want %d", gotWindow, tt.wantDays)
			}
		})
	}
}

func parseDate(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(timeutil.DateLayout, s)
	if err != nil {
		t.Fatalf("failed to parse date %q: %v", s, err)
	}
	return parsed
}

type recordingNotifier struct {
	userID   string
	added    int
	modified int
	calls    int
}

func (n *recordingNotifier) NotifySyncComplete(ctx context.Context, userID string, added, modified int) {
	n.userID = userID
	n.added = added
	n.modified = modified
	n.calls++
}

func TestSync_NotifiesAfterSuccess(t *testing.T) {
	notifier := &recordingNotifier{}
	accounts := &MockAccountRepo{
		GetFunc: func(ctx context.Context, userID, accountID string) (*account.Account, error) {
			return linkedAccount(""), nil
		},
	}
	client := &MockLedgerClient{
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, count int) (*ledger.SyncResponse, error) {
			return &ledger.SyncResponse{
				Added: []ledger.Transaction{
					{TransactionID: "t1", AccountID: "a1", Amount: 1},
				},
			}, nil
		},
	}

	engine := NewEngine(client, accounts, newMemTxnStore(), notifier)
	if _, err := engine.Sync(context.Background(), testUserID, testAccountID, Params{}); err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	if notifier.calls != 1 || notifier.added != 1 || notifier.userID != testUserID {
		t.Errorf("notifier = %+v, want one call with added=1", notifier)
	}
}

func TestSync_NoNotificationOnFailure(t *testing.T) {
	notifier := &recordingNotifier{}
	accounts := &MockAccountRepo{
		GetFunc: func(ctx context.Context, userID, accountID string) (*account.Account, error) {
			return linkedAccount(""), nil
		},
	}
	client := &MockLedgerClient{
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, count int) (*ledger.SyncResponse, error) {
			return nil, errors.New("boom")
		},
	}

	engine := NewEngine(client, accounts, newMemTxnStore(), notifier)
	if _, err := engine.Sync(context.Background(), testUserID, testAccountID, Params{}); err == nil {
		t.Fatal("Sync() succeeded, want error")
	}

	if notifier.calls != 0 {
		t.Errorf("notifier called %d times after failure, want 0", notifier.calls)
	}
}
