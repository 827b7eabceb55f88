package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
	"github.com/ericfisherdev/secretpipe/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AccountStore = (*AccountRepo)(nil)

// AccountRepo is the SQLite implementation of the AccountStore port interface.
// It stores envelopes only; encryption happens before values reach it.
type AccountRepo struct {
	db  *DB
	now func() time.Time
}

// NewAccountRepo creates a new AccountRepo backed by the given DB.
func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db, now: time.Now}
}

// CreateAccount inserts a new account with an immutable salt.
func (r *AccountRepo) CreateAccount(ctx context.Context, accountID, salt string) (*model.UserSecretRecord, error) {
	const query = `INSERT INTO accounts (id, salt, secrets_set, created_at, updated_at) VALUES (?, ?, 0, ?, ?)`

	now := r.now().UTC()
	_, err := r.db.Writer.ExecContext(ctx, query, accountID, salt, formatTime(now), formatTime(now))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, fmt.Errorf("create account %s: %w", accountID, driven.ErrAccountExists)
		}
		return nil, fmt.Errorf("create account %s: %w", accountID, err)
	}

	rec := model.NewUserSecretRecord(accountID, salt)
	rec.CreatedAt = now
	return rec, nil
}

// GetSecretRecord loads the account row and every verified provider secret.
func (r *AccountRepo) GetSecretRecord(ctx context.Context, accountID string) (*model.UserSecretRecord, error) {
	const accountQuery = `SELECT salt, secrets_set, created_at FROM accounts WHERE id = ?`

	var salt, createdAt string
	var secretsSet bool
	err := r.db.Reader.QueryRowContext(ctx, accountQuery, accountID).Scan(&salt, &secretsSet, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account %s: %w", accountID, driven.ErrAccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", accountID, err)
	}

	rec := model.NewUserSecretRecord(accountID, salt)
	rec.SecretsSet = secretsSet
	rec.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for account %s: %w", accountID, err)
	}

	const secretsQuery = `
		SELECT provider, envelope, provider_account_id, key_id_envelope, region, verified_at
		FROM provider_secrets
		WHERE account_id = ?
		ORDER BY provider
	`
	rows, err := r.db.Reader.QueryContext(ctx, secretsQuery, accountID)
	if err != nil {
		return nil, fmt.Errorf("list secrets for account %s: %w", accountID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var provider, envelope, providerAccountID, keyID, region, verifiedAt string
		if err := rows.Scan(&provider, &envelope, &providerAccountID, &keyID, &region, &verifiedAt); err != nil {
			return nil, fmt.Errorf("scan secret: %w", err)
		}

		p := model.Provider(provider)
		rec.ProviderTokens[p] = envelope
		rec.ProviderAccountIDs[p] = providerAccountID
		if keyID != "" || region != "" {
			rec.CloudKeys[p] = model.CloudKey{KeyIDEnvelope: keyID, Region: region}
		}
		rec.VerifiedAt[p], err = parseTime(verifiedAt)
		if err != nil {
			return nil, fmt.Errorf("parse verified_at for %s: %w", provider, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate secrets: %w", err)
	}

	return rec, nil
}

// SaveVerifiedCredential upserts the provider secret and raises the
// secrets-set flag in one transaction on the single writer connection.
func (r *AccountRepo) SaveVerifiedCredential(ctx context.Context, accountID string, cred model.VerifiedCredential) error {
	if cred.Envelope == "" || cred.ProviderAccountID == "" {
		return fmt.Errorf("save %s credential for %s: envelope and provider account id are required", cred.Provider, accountID)
	}

	verifiedAt := cred.VerifiedAt
	if verifiedAt.IsZero() {
		verifiedAt = r.now()
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const updateAccount = `UPDATE accounts SET secrets_set = 1, updated_at = ? WHERE id = ?`
	result, err := tx.ExecContext(ctx, updateAccount, formatTime(r.now()), accountID)
	if err != nil {
		return fmt.Errorf("flag account %s: %w", accountID, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("save %s credential for %s: %w", cred.Provider, accountID, driven.ErrAccountNotFound)
	}

	const upsert = `
		INSERT INTO provider_secrets (account_id, provider, envelope, provider_account_id, key_id_envelope, region, verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, provider) DO UPDATE SET
			envelope = excluded.envelope,
			provider_account_id = excluded.provider_account_id,
			key_id_envelope = excluded.key_id_envelope,
			region = excluded.region,
			verified_at = excluded.verified_at
	`
	_, err = tx.ExecContext(ctx, upsert,
		accountID, string(cred.Provider), cred.Envelope, cred.ProviderAccountID,
		cred.KeyIDEnvelope, cred.Region, formatTime(verifiedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert %s credential for %s: %w", cred.Provider, accountID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s credential for %s: %w", cred.Provider, accountID, err)
	}
	return nil
}
