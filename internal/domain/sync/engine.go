// Package sync drives cursor-based incremental synchronization of an
// account's transaction log against the remote aggregator, with a legacy
// date-range fallback for connections that predate the delta endpoint.
package sync

import (
	"context"
	"log"
	"time"

	"saverr/internal/domain/account"
	"saverr/internal/domain/transaction"
	"saverr/internal/infrastructure/ledger"
	"saverr/internal/shared/apperr"
	"saverr/internal/shared/timeutil"
	"saverr/internal/shared/validation"
)

// Mode selects the sync strategy.
type Mode string

const (
	// ModeIncremental drains one page of the aggregator's delta stream.
	ModeIncremental Mode = "incremental"
	// ModeLegacyRange re-fetches a trailing date window with the legacy
	// endpoint. No cursor is produced or consumed.
	ModeLegacyRange Mode = "legacy-range"
)

const (
	minLegacyDays     = 1
	maxLegacyDays     = 730
	defaultLegacyDays = 30
)

// Params configures one sync invocation.
type Params struct {
	Mode Mode
	// Days is the trailing window for legacy mode, clamped to [1, 730].
	Days int
}

// Result reports what one sync invocation did. HasMore signals that the
// caller should invoke sync again to drain remaining pages; the engine
// never loops on its own.
type Result struct {
	Synced   int     `json:"synced"`
	Added    int     `json:"added"`
	Modified int     `json:"modified"`
	Removed  int     `json:"removed"`
	HasMore  bool    `json:"has_more"`
	Cursor   *string `json:"cursor"`
}

// Notifier is told about completed sync cycles. Delivery is best effort.
type Notifier interface {
	NotifySyncComplete(ctx context.Context, userID string, added, modified int)
}

// Engine reconciles the remote ledger into the local transaction log.
type Engine struct {
	client   ledger.ClientInterface
	accounts account.Repository
	txns     transaction.Repository
	notifier Notifier
}

// NewEngine creates a new sync engine. notifier may be nil.
func NewEngine(client ledger.ClientInterface, accounts account.Repository, txns transaction.Repository, notifier Notifier) *Engine {
	return &Engine{
		client:   client,
		accounts: accounts,
		txns:     txns,
		notifier: notifier,
	}
}

// Sync brings one account's local transaction log into agreement with the
// remote ledger. Safe to retry: every write is an upsert or delete keyed by
// (account id, transaction id), and the cursor only advances after a fully
// processed page.
func (e *Engine) Sync(ctx context.Context, userID, accountID string, params Params) (*Result, error) {
	if !validation.ValidUUID(accountID) {
		return nil, apperr.Validation("Invalid account ID format")
	}

	acct, err := e.accounts.Get(ctx, userID, accountID)
	if err != nil {
		return nil, apperr.Internal("failed to load account", err)
	}
	if acct == nil {
		return nil, apperr.NotFound("Account not found")
	}
	if acct.AccessToken == "" {
		return nil, apperr.Validation("Account is not linked")
	}

	if params.Mode == ModeLegacyRange {
		return e.syncLegacy(ctx, acct, params.Days)
	}
	return e.syncIncremental(ctx, acct)
}

func (e *Engine) syncIncremental(ctx context.Context, acct *account.Account) (*Result, error) {
	cursor := ""
	if acct.SyncCursor != nil {
		cursor = *acct.SyncCursor
	}

	resp, err := e.client.SyncTransactions(ctx, acct.AccessToken, cursor, ledger.MaxSyncCount)
	if err != nil {
		return nil, apperr.Unavailable("Failed to sync transactions", err)
	}

	result := &Result{}
	now := timeutil.Now()

	for _, remote := range resp.Added {
		if remote.AccountID != acct.ExternalAccountID {
			continue
		}
		txn := MapRemoteTransaction(remote, acct.UserID, acct.ID, now)
		if err := e.txns.Upsert(ctx, txn); err != nil {
			return nil, apperr.Internal("failed to store synced transaction", err)
		}
		result.Added++
	}

	for _, remote := range resp.Modified {
		if remote.AccountID != acct.ExternalAccountID {
			continue
		}
		txn := MapRemoteTransaction(remote, acct.UserID, acct.ID, now)
		if err := e.txns.Upsert(ctx, txn); err != nil {
			return nil, apperr.Internal("failed to store synced transaction", err)
		}
		result.Modified++
	}

	for _, removed := range resp.Removed {
		if removed.TransactionID == "" {
			continue
		}
		if err := e.txns.Delete(ctx, acct.ID, removed.TransactionID); err != nil {
			return nil, apperr.Internal("failed to remove deleted transaction", err)
		}
		result.Removed++
	}

	// The page fully committed; only now does the cursor advance. More
	// pages may remain, which the caller drains by invoking sync again.
	err = e.accounts.UpdateFields(ctx, acct.UserID, acct.ID, map[string]any{
		"sync_cursor": resp.NextCursor,
		"last_synced": timeutil.Now(),
	})
	if err != nil {
		return nil, apperr.Internal("failed to persist sync cursor", err)
	}

	result.Synced = result.Added + result.Modified
	result.HasMore = resp.HasMore
	result.Cursor = &resp.NextCursor

	log.Printf("Sync completed for account %s: added=%d, modified=%d, removed=%d, has_more=%v",
		acct.ID, result.Added, result.Modified, result.Removed, result.HasMore)

	if e.notifier != nil {
		e.notifier.NotifySyncComplete(ctx, acct.UserID, result.Added, result.Modified)
	}

	return result, nil
}

func (e *Engine) syncLegacy(ctx context.Context, acct *account.Account, days int) (*Result, error) {
	if days == 0 {
		days = defaultLegacyDays
	}
	days = validation.Clamp(days, minLegacyDays, maxLegacyDays)

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	resp, err := e.client.GetTransactions(ctx,
		acct.AccessToken,
		start.Format(timeutil.DateLayout),
		end.Format(timeutil.DateLayout),
		[]string{acct.ExternalAccountID})
	if err != nil {
		return nil, apperr.Unavailable("Failed to fetch transactions", err)
	}

	result := &Result{}
	now := timeutil.Now()

	// The legacy endpoint has no delta stream; everything counts as an add.
	for _, remote := range resp.Transactions {
		txn := MapRemoteTransaction(remote, acct.UserID, acct.ID, now)
		if err := e.txns.Upsert(ctx, txn); err != nil {
			return nil, apperr.Internal("failed to store synced transaction", err)
		}
		result.Added++
	}

	// Legacy mode produces no cursor; the stored one stays untouched.
	err = e.accounts.UpdateFields(ctx, acct.UserID, acct.ID, map[string]any{
		"last_synced": timeutil.Now(),
	})
	if err != nil {
		return nil, apperr.Internal("failed to record sync time", err)
	}

	result.Synced = result.Added

	log.Printf("Legacy sync completed for account %s: added=%d over %d days", acct.ID, result.Added, days)

	if e.notifier != nil {
		e.notifier.NotifySyncComplete(ctx, acct.UserID, result.Added, 0)
	}

	return result, nil
}
