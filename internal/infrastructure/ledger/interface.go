package ledger

import (
	"context"
)

// ClientInterface defines the methods required from the ledger aggregator client
type ClientInterface interface {
	CreateLinkToken(ctx context.Context, userID string) (*LinkTokenResponse, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResponse, error)
	GetAccounts(ctx context.Context, accessToken string) (*AccountsResponse, error)
	GetBalances(ctx context.Context, accessToken string) (*AccountsResponse, error)
	SyncTransactions(ctx context.Context, accessToken, cursor string, count int) (*SyncResponse, error)
	GetTransactions(ctx context.Context, accessToken, startDate, endDate string, accountIDs []string) (*TransactionsResponse, error)
	RemoveItem(ctx context.Context, accessToken string) error
}
