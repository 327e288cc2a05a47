package transaction

import "context"

// Location carries the optional place-of-sale fields reported by the
// aggregator. Absent fields stay nil so they are omitted from storage.
type Location struct {
	City    *string `json:"city,omitempty"`
	Region  *string `json:"region,omitempty"`
	Country *string `json:"country,omitempty"`
}

// Transaction is one entry in an account's local ledger log. Amounts are
// stored as an unsigned magnitude plus an explicit debit flag; SignedAmount
// recovers the signed view the analytics rollups operate on.
type Transaction struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	AccountID        string    `json:"account_id"`
	ExternalID       string    `json:"external_transaction_id"`
	Amount           float64   `json:"amount"`
	IsDebit          bool      `json:"is_debit"`
	Description      string    `json:"description"`
	MerchantName     *string   `json:"merchant_name,omitempty"`
	Date             string    `json:"date"`
	Datetime         *string   `json:"datetime,omitempty"`
	Pending          bool      `json:"pending"`
	CategoryName     string    `json:"category_name"`
	CategoryDetailed string    `json:"category_detailed"`
	CategoryIcon     string    `json:"category_icon"`
	CategoryColor    string    `json:"category_color"`
	PaymentChannel   *string   `json:"payment_channel,omitempty"`
	Location         *Location `json:"location,omitempty"`
	CreatedAt        string    `json:"created_at"`
	SyncedAt         string    `json:"synced_at"`
}

// SignedAmount returns the transaction amount with spending negative and
// income positive, which is the convention the analytics engine buckets by.
func (t Transaction) SignedAmount() float64 {
	if t.IsDebit {
		return -t.Amount
	}
	return t.Amount
}

// DateOnly returns the calendar-date portion of the stored date field,
// which may be a full timestamp.
func (t Transaction) DateOnly() string {
	if len(t.Date) > 10 {
		return t.Date[:10]
	}
	return t.Date
}

// Repository is the account-partitioned transaction log.
type Repository interface {
	// Upsert inserts or overwrites by (account id, transaction id).
	Upsert(ctx context.Context, txn Transaction) error
	// Delete removes by key. Deleting an absent transaction is a no-op.
	Delete(ctx context.Context, accountID, transactionID string) error
	// ListByAccount returns up to limit transactions for one account.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]Transaction, error)
}
