// Package ledger is the HTTP client for the bank-data aggregator. It covers
// account linking (link token, public token exchange), balance fetches, the
// cursor-based delta-sync endpoint, and the legacy date-range fetch.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 60 * time.Second

	linkTokenPath    = "/link/token/create"
	exchangePath     = "/item/public_token/exchange"
	accountsPath     = "/accounts/get"
	balancesPath     = "/accounts/balance/get"
	syncPath         = "/transactions/sync"
	transactionsPath = "/transactions/get"
	removeItemPath   = "/item/remove"

	// The delta endpoint caps page size at 500 records.
	MaxSyncCount = 500
)

// Client handles communication with the ledger aggregator API
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new aggregator API client. The client id and secret
// are carried in every request body, which is how the aggregator
// authenticates callers.
func NewClient(baseURL, clientID, secret string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
	}
}

// LinkTokenResponse represents the response to a link token request
type LinkTokenResponse struct {
	LinkToken  string `json:"link_token"`
	Expiration string `json:"expiration"`
}

// ExchangeResponse represents the response to a public token exchange
type ExchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// AccountsResponse represents the aggregator's account listing
type AccountsResponse struct {
	Accounts []RemoteAccount `json:"accounts"`
	Item     Item            `json:"item"`
}

// Item identifies the institution connection behind an access token
type Item struct {
	ItemID          string `json:"item_id"`
	InstitutionID   string `json:"institution_id"`
	InstitutionName string `json:"institution_name"`
}

// RemoteAccount represents one account at the institution
type RemoteAccount struct {
	AccountID string   `json:"account_id"`
	Name      string   `json:"name"`
	Mask      string   `json:"mask"`
	Type      string   `json:"type"`
	Subtype   string   `json:"subtype"`
	Balances  Balances `json:"balances"`
}

// Balances carries the aggregator's balance figures for an account
type Balances struct {
	Available *float64 `json:"available"`
	Current   float64  `json:"current"`
	Limit     *float64 `json:"limit"`
	Currency  string   `json:"iso_currency_code"`
}

// SyncResponse represents one page of the delta-sync stream
type SyncResponse struct {
	Added      []Transaction        `json:"added"`
	Modified   []Transaction        `json:"modified"`
	Removed    []RemovedTransaction `json:"removed"`
	NextCursor string               `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
}

// RemovedTransaction identifies a transaction deleted upstream
type RemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
}

// TransactionsResponse represents the legacy date-range fetch
type TransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
	TotalCount   int           `json:"total_transactions"`
}

// Transaction represents a transaction record from the aggregator.
// Amounts are signed: positive means a debit, negative a credit.
type Transaction struct {
	TransactionID  string    `json:"transaction_id"`
	AccountID      string    `json:"account_id"`
	Amount         float64   `json:"amount"`
	Name           string    `json:"name"`
	MerchantName   *string   `json:"merchant_name"`
	Date           string    `json:"date"`
	Datetime       *string   `json:"datetime"`
	Pending        bool      `json:"pending"`
	Category       []string  `json:"category"`
	PFC            *PFC      `json:"personal_finance_category"`
	PaymentChannel *string   `json:"payment_channel"`
	Location       *Location `json:"location"`
}

// PFC is the aggregator's fine-grained category structure
type PFC struct {
	Primary  string `json:"primary"`
	Detailed string `json:"detailed"`
}

// Location carries the optional place-of-sale fields
type Location struct {
	City    *string `json:"city"`
	Region  *string `json:"region"`
	Country *string `json:"country"`
}

// ErrorResponse represents an error response from the aggregator
type ErrorResponse struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// CreateLinkToken requests a short-lived token the client app uses to start
// the institution linking flow.
func (c *Client) CreateLinkToken(ctx context.Context, userID string) (*LinkTokenResponse, error) {
	payload := map[string]any{
		"user":          map[string]string{"client_user_id": userID},
		"client_name":   "Saverr",
		"products":      []string{"transactions"},
		"language":      "en",
		"country_codes": []string{"US"},
	}

	var out LinkTokenResponse
	if err := c.post(ctx, linkTokenPath, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExchangePublicToken trades the client app's public token for a long-lived
// access credential and item id.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResponse, error) {
	payload := map[string]any{
		"public_token": publicToken,
	}

	var out ExchangeResponse
	if err := c.post(ctx, exchangePath, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAccounts fetches the institution's accounts for an access credential
func (c *Client) GetAccounts(ctx context.Context, accessToken string) (*AccountsResponse, error) {
	payload := map[string]any{
		"access_token": accessToken,
	}

	var out AccountsResponse
	if err := c.post(ctx, accountsPath, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBalances fetches point-in-time balances for an access credential
func (c *Client) GetBalances(ctx context.Context, accessToken string) (*AccountsResponse, error) {
	payload := map[string]any{
		"access_token": accessToken,
	}

	var out AccountsResponse
	if err := c.post(ctx, balancesPath, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SyncTransactions fetches one page of the delta stream. An empty cursor
// starts from the beginning of the account's history. Count is clamped to
// MaxSyncCount.
func (c *Client) SyncTransactions(ctx context.Context, accessToken, cursor string, count int) (*SyncResponse, error) {
	if count <= 0 || count > MaxSyncCount {
		count = MaxSyncCount
	}

	payload := map[string]any{
		"access_token": accessToken,
		"count":        count,
	}
	if cursor != "" {
		payload["cursor"] = cursor
	}

	var out SyncResponse
	if err := c.post(ctx, syncPath, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransactions fetches transactions in an inclusive date range using the
// legacy endpoint, optionally filtered to specific remote account ids.
func (c *Client) GetTransactions(ctx context.Context, accessToken, startDate, endDate string, accountIDs []string) (*TransactionsResponse, error) {
	options := map[string]any{
		"count":                             500,
		"offset":                            0,
		"include_personal_finance_category": true,
	}
	if len(accountIDs) > 0 {
		options["account_ids"] = accountIDs
	}

	payload := map[string]any{
		"access_token": accessToken,
		"start_date":   startDate,
		"end_date":     endDate,
		"options":      options,
	}

	var out TransactionsResponse
	if err := c.post(ctx, transactionsPath, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveItem revokes an access credential at the aggregator
func (c *Client) RemoveItem(ctx context.Context, accessToken string) error {
	payload := map[string]any{
		"access_token": accessToken,
	}

	var out struct {
		Removed bool `json:"removed"`
	}
	return c.post(ctx, removeItemPath, payload, &out)
}

// post sends a JSON request with the client credentials injected and decodes
// the response into out.
func (c *Client) post(ctx context.Context, path string, payload map[string]any, out any) error {
	payload["client_id"] = c.clientID
	payload["secret"] = c.secret

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err != nil {
			return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("API error (status %d): %s - %s", resp.StatusCode, errResp.ErrorCode, errResp.ErrorMessage)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
