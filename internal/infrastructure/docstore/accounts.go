package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"saverr/internal/domain/account"
	"saverr/internal/infrastructure/crypto"
)

// AccountRepository stores accounts under (USER#<uid>, ACCOUNT#<aid>).
// The aggregator access token is encrypted before it reaches the store and
// decrypted on the way out; domain code only ever sees plaintext.
type AccountRepository struct {
	store     *Store
	encryptor *crypto.Encryptor
}

// Ensure the docstore implementation satisfies the domain interface
var _ account.Repository = (*AccountRepository)(nil)

// NewAccountRepository creates a new account repository
func NewAccountRepository(store *Store, encryptor *crypto.Encryptor) *AccountRepository {
	return &AccountRepository{store: store, encryptor: encryptor}
}

func (r *AccountRepository) Create(ctx context.Context, acct account.Account) error {
	sealed, err := r.seal(acct)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, userPartition+acct.UserID, accountSort+acct.ID, sealed)
}

func (r *AccountRepository) Get(ctx context.Context, userID, accountID string) (*account.Account, error) {
	doc, err := r.store.Get(ctx, userPartition+userID, accountSort+accountID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return r.open(doc)
}

func (r *AccountRepository) ListByUser(ctx context.Context, userID string) ([]account.Account, error) {
	docs, err := r.store.QueryPrefix(ctx, userPartition+userID, accountSort, 0, false)
	if err != nil {
		return nil, err
	}

	accounts := make([]account.Account, 0, len(docs))
	for _, doc := range docs {
		acct, err := r.open(doc)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acct)
	}
	return accounts, nil
}

// UpdateFields merges fields into the stored account document. An
// access_token field is encrypted before the merge.
func (r *AccountRepository) UpdateFields(ctx context.Context, userID, accountID string, fields map[string]any) error {
	if token, ok := fields["access_token"].(string); ok && token != "" {
		encrypted, err := r.encryptor.Encrypt(token)
		if err != nil {
			return fmt.Errorf("failed to encrypt access token: %w", err)
		}
		patched := make(map[string]any, len(fields))
		for k, v := range fields {
			patched[k] = v
		}
		patched["access_token"] = encrypted
		fields = patched
	}
	return r.store.Update(ctx, userPartition+userID, accountSort+accountID, fields)
}

func (r *AccountRepository) Delete(ctx context.Context, userID, accountID string) error {
	return r.store.Delete(ctx, userPartition+userID, accountSort+accountID)
}

// seal returns a copy of the account with the access token encrypted.
func (r *AccountRepository) seal(acct account.Account) (account.Account, error) {
	if acct.AccessToken == "" {
		return acct, nil
	}
	encrypted, err := r.encryptor.Encrypt(acct.AccessToken)
	if err != nil {
		return account.Account{}, fmt.Errorf("failed to encrypt access token: %w", err)
	}
	acct.AccessToken = encrypted
	return acct, nil
}

// open unmarshals a stored document and decrypts the access token.
func (r *AccountRepository) open(doc json.RawMessage) (*account.Account, error) {
	var acct account.Account
	if err := json.Unmarshal(doc, &acct); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	if acct.AccessToken != "" {
		plaintext, err := r.encryptor.Decrypt(acct.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}
		acct.AccessToken = plaintext
	}
	return &acct, nil
}
