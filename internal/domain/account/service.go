package account

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"

	"saverr/internal/domain/transaction"
	"saverr/internal/infrastructure/ledger"
	"saverr/internal/shared/apperr"
	"saverr/internal/shared/timeutil"
	"saverr/internal/shared/validation"
)

const (
	defaultTxnLimit = 50
	maxTxnLimit     = 500
)

// Service implements account linking, refresh, and transaction listing on
// top of the ledger aggregator and the account/transaction repositories.
type Service struct {
	repo   Repository
	txns   transaction.Repository
	client ledger.ClientInterface
}

// NewService creates a new account service
func NewService(repo Repository, txns transaction.Repository, client ledger.ClientInterface) *Service {
	return &Service{repo: repo, txns: txns, client: client}
}

// LinkToken is a short-lived token the client uses to start the
// institution-selection flow.
type LinkToken struct {
	LinkToken  string `json:"link_token"`
	Expiration string `json:"expiration"`
}

// CreateLinkToken requests a link token for the user from the aggregator.
func (s *Service) CreateLinkToken(ctx context.Context, userID string) (*LinkToken, error) {
	resp, err := s.client.CreateLinkToken(ctx, userID)
	if err != nil {
		log.Printf("WARN: link token creation failed for user %s: %v", userID, err)
		return nil, apperr.Unavailable("Account linking service temporarily unavailable", err)
	}
	return &LinkToken{LinkToken: resp.LinkToken, Expiration: resp.Expiration}, nil
}

// LinkResult reports a completed link: the primary (first) account plus the
// total number of accounts created for the institution.
type LinkResult struct {
	Account        Account `json:"account"`
	AccountsLinked int     `json:"accounts_linked"`
}

// Link exchanges a public token for institution access and creates one
// local account record per account found at the institution.
func (s *Service) Link(ctx context.Context, userID, publicToken, institutionID string) (*LinkResult, error) {
	publicToken = validation.SanitizeString(publicToken, 500)
	if publicToken == "" {
		return nil, apperr.Validation("public_token is required")
	}

	exchange, err := s.client.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		log.Printf("WARN: public token exchange failed for user %s: %v", userID, err)
		return nil, apperr.Validation("Failed to link account. Please try again.")
	}

	remote, err := s.client.GetAccounts(ctx, exchange.AccessToken)
	if err != nil {
		log.Printf("WARN: account listing failed after exchange for user %s: %v", userID, err)
		return nil, apperr.Validation("Failed to retrieve account information")
	}
	if len(remote.Accounts) == 0 {
		return nil, apperr.Validation("No accounts found for this institution")
	}

	institutionName := remote.Item.InstitutionName
	if institutionName == "" {
		institutionName = "Unknown"
	}
	if institutionID == "" {
		institutionID = remote.Item.InstitutionID
	}
	now := timeutil.Now()

	created := make([]Account, 0, len(remote.Accounts))
	for _, r := range remote.Accounts {
		acct := Account{
			ID:                uuid.NewString(),
			UserID:            userID,
			InstitutionName:   institutionName,
			InstitutionID:     institutionID,
			InstitutionLogo:   "building.columns",
			AccountName:       r.Name,
			AccountType:       r.Type,
			Balance:           r.Balances.Current,
			NumberLast4:       r.Mask,
			ExternalAccountID: r.AccountID,
			ExternalItemID:    exchange.ItemID,
			AccessToken:       exchange.AccessToken,
			IsLinked:          true,
			CreatedAt:         now,
			LastUpdated:       now,
		}
		if acct.AccountName == "" {
			acct.AccountName = "Account"
		}
		if acct.AccountType == "" {
			acct.AccountType = "checking"
		}
		if acct.NumberLast4 == "" {
			acct.NumberLast4 = "****"
		}
		if err := s.repo.Create(ctx, acct); err != nil {
			return nil, apperr.Internal("failed to create account record", err)
		}
		created = append(created, acct)
	}

	log.Printf("INFO: linked %d accounts at %s for user %s", len(created), institutionName, userID)
	primary := created[0]
	primary.AccessToken = ""
	return &LinkResult{Account: primary, AccountsLinked: len(created)}, nil
}

// List returns the user's accounts with access tokens stripped.
func (s *Service) List(ctx context.Context, userID string) ([]Account, error) {
	accounts, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list accounts", err)
	}
	for i := range accounts {
		accounts[i].AccessToken = ""
	}
	return accounts, nil
}

// Get returns one of the user's accounts with the access token stripped.
func (s *Service) Get(ctx context.Context, userID, accountID string) (*Account, error) {
	acct, err := s.load(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	acct.AccessToken = ""
	return acct, nil
}

// RefreshResult is the balance state after a refresh.
type RefreshResult struct {
	Balance     float64 `json:"balance"`
	LastUpdated string  `json:"last_updated"`
}

// Refresh pulls the latest balance from the aggregator for a linked
// account. Unlinked accounts only get their last_updated timestamp bumped.
func (s *Service) Refresh(ctx context.Context, userID, accountID string) (*RefreshResult, error) {
	acct, err := s.load(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	now := timeutil.Now()
	balance := acct.Balance

	if acct.AccessToken != "" {
		remote, err := s.client.GetBalances(ctx, acct.AccessToken)
		if err != nil {
			log.Printf("WARN: balance refresh failed for account %s: %v", accountID, err)
			return nil, apperr.Unavailable("Unable to refresh account data. Please try again later.", err)
		}
		for _, r := range remote.Accounts {
			if r.AccountID == acct.ExternalAccountID {
				balance = r.Balances.Current
				break
			}
		}
		err = s.repo.UpdateFields(ctx, userID, accountID, map[string]any{
			"balance":      balance,
			"last_updated": now,
		})
		if err != nil {
			return nil, apperr.Internal("failed to update account", err)
		}
	} else {
		err = s.repo.UpdateFields(ctx, userID, accountID, map[string]any{
			"last_updated": now,
		})
		if err != nil {
			return nil, apperr.Internal("failed to update account", err)
		}
	}

	return &RefreshResult{Balance: balance, LastUpdated: now}, nil
}

// Unlink revokes the aggregator connection and deletes the account record.
// Revocation is best effort: a failed revoke is logged and deletion
// proceeds.
func (s *Service) Unlink(ctx context.Context, userID, accountID string) error {
	acct, err := s.load(ctx, userID, accountID)
	if err != nil {
		return err
	}

	if acct.AccessToken != "" {
		if err := s.client.RemoveItem(ctx, acct.AccessToken); err != nil {
			log.Printf("WARN: failed to revoke aggregator access for account %s: %v", accountID, err)
		}
	}

	if err := s.repo.Delete(ctx, userID, accountID); err != nil {
		return apperr.Internal("failed to delete account", err)
	}
	return nil
}

// TxnFilter narrows a transaction listing. Zero values mean unfiltered.
type TxnFilter struct {
	StartDate string
	EndDate   string
	Category  string
	Limit     int
	Offset    int
}

// TxnPage is one page of an account's transactions.
type TxnPage struct {
	Transactions []transaction.Transaction `json:"transactions"`
	Limit        int                       `json:"limit"`
	Offset       int                       `json:"offset"`
	HasMore      bool                      `json:"has_more"`
}

// ListTransactions returns a reverse-chronological page of a single
// account's transactions, optionally filtered by date range and category.
func (s *Service) ListTransactions(ctx context.Context, userID, accountID string, filter TxnFilter) (*TxnPage, error) {
	if _, err := s.load(ctx, userID, accountID); err != nil {
		return nil, err
	}

	if filter.StartDate != "" && !validation.ValidDate(filter.StartDate) {
		return nil, apperr.Validation("Invalid start_date format. Use YYYY-MM-DD")
	}
	if filter.EndDate != "" && !validation.ValidDate(filter.EndDate) {
		return nil, apperr.Validation("Invalid end_date format. Use YYYY-MM-DD")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTxnLimit
	}
	limit = validation.Clamp(limit, 1, maxTxnLimit)
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	// Fetch one past the page boundary to learn whether more rows exist.
	txns, err := s.txns.ListByAccount(ctx, accountID, offset+limit+1)
	if err != nil {
		return nil, apperr.Internal("failed to list transactions", err)
	}

	filtered := txns[:0]
	for _, txn := range txns {
		if filter.StartDate != "" && txn.DateOnly() < filter.StartDate {
			continue
		}
		if filter.EndDate != "" && txn.DateOnly() > filter.EndDate {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(txn.CategoryName, filter.Category) {
			continue
		}
		filtered = append(filtered, txn)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Date > filtered[j].Date
	})

	if offset >= len(filtered) {
		return &TxnPage{Transactions: []transaction.Transaction{}, Limit: limit, Offset: offset}, nil
	}
	filtered = filtered[offset:]

	hasMore := len(filtered) > limit
	if hasMore {
		filtered = filtered[:limit]
	}

	return &TxnPage{
		Transactions: filtered,
		Limit:        limit,
		Offset:       offset,
		HasMore:      hasMore,
	}, nil
}

// load fetches an account after validating the id, mapping absence to a
// not-found error.
func (s *Service) load(ctx context.Context, userID, accountID string) (*Account, error) {
	if !validation.ValidUUID(accountID) {
		return nil, apperr.Validation("Invalid account ID format")
	}
	acct, err := s.repo.Get(ctx, userID, accountID)
	if err != nil {
		return nil, apperr.Internal("failed to load account", err)
	}
	if acct == nil {
		return nil, apperr.NotFound("Account not found")
	}
	return acct, nil
}
