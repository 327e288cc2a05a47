package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"saverr/internal/domain/transaction"
)

// TransactionRepository stores transactions under
// (ACCOUNT#<aid>, TXN#<external txn id>). The composite key is the unit of
// idempotent upsert during sync cycles.
type TransactionRepository struct {
	store *Store
}

// Ensure the docstore implementation satisfies the domain interface
var _ transaction.Repository = (*TransactionRepository)(nil)

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

func (r *TransactionRepository) Upsert(ctx context.Context, txn transaction.Transaction) error {
	return r.store.Put(ctx, accountPartition+txn.AccountID, txnSort+txn.ID, txn)
}

func (r *TransactionRepository) Delete(ctx context.Context, accountID, transactionID string) error {
	return r.store.Delete(ctx, accountPartition+accountID, txnSort+transactionID)
}

func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]transaction.Transaction, error) {
	docs, err := r.store.QueryPrefix(ctx, accountPartition+accountID, txnSort, limit, false)
	if err != nil {
		return nil, err
	}

	txns := make([]transaction.Transaction, 0, len(docs))
	for _, doc := range docs {
		var txn transaction.Transaction
		if err := json.Unmarshal(doc, &txn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}
