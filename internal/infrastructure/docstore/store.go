// Package docstore implements the (partition key, sort key) document store
// on Postgres: one JSONB table with a composite primary key, idempotent
// upserts, atomic field merges, and ordered sort-key-prefix range queries.
// The entity repositories in this package marshal domain types to and from
// the stored documents.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"saverr/internal/infrastructure/postgres"
)

// Key prefixes for the partition and sort sides of the composite key.
const (
	userPartition    = "USER#"
	accountPartition = "ACCOUNT#"

	accountSort = "ACCOUNT#"
	txnSort     = "TXN#"
	goalSort    = "GOAL#"
	planSort    = "PLAN#"
	budgetSort  = "BUDGET#"
	deviceSort  = "DEVICE#"
)

// Store provides raw document access keyed by (pk, sk).
type Store struct {
	db *postgres.DB
}

// NewStore creates a new document store over a pooled connection
func NewStore(db *postgres.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			pk  TEXT  NOT NULL,
			sk  TEXT  NOT NULL,
			doc JSONB NOT NULL,
			PRIMARY KEY (pk, sk)
		)`)
	if err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

// Get returns the raw document for a key, or nil when the key is absent.
func (s *Store) Get(ctx context.Context, pk, sk string) (json.RawMessage, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM documents WHERE pk = $1 AND sk = $2`, pk, sk,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", pk, sk, err)
	}
	return doc, nil
}

// Put stores a document, overwriting any existing one under the same key.
// Repeating a Put with the same value is a no-op, which is what makes
// sync-cycle upserts idempotent.
func (s *Store) Put(ctx context.Context, pk, sk string, entity any) error {
	doc, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (pk, sk, doc) VALUES ($1, $2, $3)
		ON CONFLICT (pk, sk) DO UPDATE SET doc = EXCLUDED.doc`,
		pk, sk, doc)
	if err != nil {
		return fmt.Errorf("failed to put document %s/%s: %w", pk, sk, err)
	}
	return nil
}

// Update merges fields into an existing document in a single statement,
// which is the per-key atomicity the store guarantees. Updating an absent
// key returns without error and without creating the document.
func (s *Store) Update(ctx context.Context, pk, sk string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal update fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE documents SET doc = doc || $3::jsonb
		WHERE pk = $1 AND sk = $2`,
		pk, sk, patch)
	if err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", pk, sk, err)
	}
	return nil
}

// Delete removes a document. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, pk, sk string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE pk = $1 AND sk = $2`, pk, sk)
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", pk, sk, err)
	}
	return nil
}

// QueryPrefix returns all documents under a partition whose sort key starts
// with prefix, ordered by sort key. limit <= 0 means no limit.
func (s *Store) QueryPrefix(ctx context.Context, pk, skPrefix string, limit int, descending bool) ([]json.RawMessage, error) {
	order := "ASC"
	if descending {
		order = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT doc FROM documents
		WHERE pk = $1 AND sk LIKE $2
		ORDER BY sk %s`, order)

	args := []any{pk, likePrefix(skPrefix)}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents %s/%s*: %w", pk, skPrefix, err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// likePrefix escapes LIKE metacharacters so the prefix matches literally.
func likePrefix(prefix string) string {
	escaped := make([]byte, 0, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		switch prefix[i] {
		case '%', '_', '\\':
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, prefix[i])
	}
	return string(escaped) + "%"
}
