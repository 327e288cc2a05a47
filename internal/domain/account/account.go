package account

import "context"

// Account is one linked (or manually created) bank account. The external
// access token is encrypted by the repository before it reaches storage;
// the value on this struct is always plaintext.
type Account struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	InstitutionName   string  `json:"institution_name"`
	InstitutionID     string  `json:"institution_id"`
	InstitutionLogo   string  `json:"institution_logo"`
	AccountName       string  `json:"account_name"`
	AccountType       string  `json:"account_type"`
	Balance           float64 `json:"balance"`
	NumberLast4       string  `json:"account_number_last4"`
	ExternalAccountID string  `json:"external_account_id"`
	ExternalItemID    string  `json:"external_item_id"`
	AccessToken       string  `json:"access_token,omitempty"`
	SyncCursor        *string `json:"sync_cursor,omitempty"`
	IsLinked          bool    `json:"is_linked"`
	CreatedAt         string  `json:"created_at"`
	LastUpdated       string  `json:"last_updated"`
	LastSynced        *string `json:"last_synced,omitempty"`
}

// Repository is the user-partitioned account store.
type Repository interface {
	Create(ctx context.Context, acct Account) error
	// Get returns nil when the account is absent or owned by another user.
	Get(ctx context.Context, userID, accountID string) (*Account, error)
	ListByUser(ctx context.Context, userID string) ([]Account, error)
	// UpdateFields merges the given fields into the stored record.
	UpdateFields(ctx context.Context, userID, accountID string, fields map[string]any) error
	Delete(ctx context.Context, userID, accountID string) error
}
