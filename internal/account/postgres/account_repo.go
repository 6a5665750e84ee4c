// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package postgres provides the PostgreSQL implementation of the account
// repository.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/store"
)

// Unique index names from the accounts migration. Used to map unique
// violations back to domain errors.
const (
	emailUniqueConstraint      = "accounts_email_unique"
	externalIDUniqueConstraint = "accounts_external_id_unique"
)

const accountColumns = `id, email, display_name, password_hash, external_id,
	       auth_provider, phone_number, address,
	       reset_token_hash, reset_token_expires_at,
	       created_at, updated_at`

// AccountRepository implements account.Repository using PostgreSQL.
type AccountRepository struct {
	db store.DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db store.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create stores a new account. Duplicate email or external ID is detected
// via the unique indexes, never by a read-then-write check, so concurrent
// registrations cannot race past it.
func (r *AccountRepository) Create(ctx context.Context, acct *account.Account) error {
	var passwordHash *string
	if acct.PasswordHash != "" {
		passwordHash = &acct.PasswordHash
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (
			id, email, display_name, password_hash, external_id,
			auth_provider, phone_number, address,
			reset_token_hash, reset_token_expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		acct.ID.String(),
		acct.Email,
		acct.DisplayName,
		passwordHash,
		acct.ExternalID,
		string(acct.Provider),
		acct.PhoneNumber,
		acct.Address,
		acct.ResetTokenHash,
		acct.ResetTokenExpiresAt,
		acct.CreatedAt,
		acct.UpdatedAt,
	)
	if err != nil {
		if dupErr := mapUniqueViolation(err); dupErr != nil {
			return oops.Code("ACCOUNT_DUPLICATE").
				With("email", acct.Email).
				Wrap(dupErr)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("email", acct.Email).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id.String())

	acct, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return acct, nil
}

// GetByEmail retrieves an account by email (case-insensitive).
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`, email)

	acct, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	return acct, nil
}

// GetByExternalID retrieves a federated account by its provider identifier.
func (r *AccountRepository) GetByExternalID(ctx context.Context, externalID string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE external_id = $1
	`, externalID)

	acct, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EXTERNAL_ID_FAILED").
			With("operation", "get account by external id").
			Wrap(err)
	}
	return acct, nil
}

// GetByResetTokenHash retrieves the account holding an unexpired reset token
// with the given hash. The expiry comparison uses the database clock, so an
// expired token is indistinguishable from one that never existed.
func (r *AccountRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE reset_token_hash = $1 AND reset_token_expires_at > now()
	`, tokenHash)

	acct, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_RESET_HASH_FAILED").
			With("operation", "get account by reset token hash").
			Wrap(err)
	}
	return acct, nil
}

// UpdateProfile applies a partial profile mutation in a single statement and
// returns the updated account.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id ulid.ULID, upd account.ProfileUpdate) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE accounts SET
			display_name = COALESCE($2, display_name),
			phone_number = COALESCE($3, phone_number),
			address      = COALESCE($4, address),
			updated_at   = $5
		WHERE id = $1
		RETURNING `+accountColumns+`
	`, id.String(), upd.DisplayName, upd.PhoneNumber, upd.Address, time.Now())

	acct, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_UPDATE_PROFILE_FAILED").
			With("operation", "update profile").
			With("id", id.String()).
			Wrap(err)
	}
	return acct, nil
}

// SetResetToken attaches a reset token hash and expiry, overwriting any
// outstanding token. The overwrite is what gives supersede semantics: the
// previous hash ceases to exist the instant the new one lands.
func (r *AccountRepository) SetResetToken(ctx context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET
			reset_token_hash = $2,
			reset_token_expires_at = $3,
			updated_at = $4
		WHERE id = $1
	`, id.String(), tokenHash, expiresAt, time.Now())
	if err != nil {
		return oops.Code("ACCOUNT_SET_RESET_TOKEN_FAILED").
			With("operation", "set reset token").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// SetPasswordAndClearReset sets the password hash and clears both reset
// token fields in one write.
func (r *AccountRepository) SetPasswordAndClearReset(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET
			password_hash = $2,
			reset_token_hash = NULL,
			reset_token_expires_at = NULL,
			updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now())
	if err != nil {
		return oops.Code("ACCOUNT_SET_PASSWORD_FAILED").
			With("operation", "set password and clear reset").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// UpdatePassword sets only the password hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now())
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// mapUniqueViolation converts a pg unique violation into the matching domain
// error, or returns nil for anything else.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case emailUniqueConstraint:
		return account.ErrDuplicateEmail
	case externalIDUniqueConstraint:
		return account.ErrDuplicateExternalID
	default:
		return nil
	}
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *AccountRepository) scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		idStr               string
		email               string
		displayName         string
		passwordHash        *string
		externalID          *string
		provider            string
		phoneNumber         string
		address             string
		resetTokenHash      *string
		resetTokenExpiresAt *time.Time
		createdAt           time.Time
		updatedAt           time.Time
	)

	err := row.Scan(
		&idStr,
		&email,
		&displayName,
		&passwordHash,
		&externalID,
		&provider,
		&phoneNumber,
		&address,
		&resetTokenHash,
		&resetTokenExpiresAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to wrap with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("operation", "parse account id").
			With("id", idStr).
			Wrap(err)
	}

	acct := &account.Account{
		ID:                  id,
		Email:               email,
		DisplayName:         displayName,
		ExternalID:          externalID,
		Provider:            account.AuthProvider(provider),
		PhoneNumber:         phoneNumber,
		Address:             address,
		ResetTokenHash:      resetTokenHash,
		ResetTokenExpiresAt: resetTokenExpiresAt,
		CreatedAt:           createdAt,
		UpdatedAt:           updatedAt,
	}
	if passwordHash != nil {
		acct.PasswordHash = *passwordHash
	}
	return acct, nil
}

// Compile-time interface check.
var _ account.Repository = (*AccountRepository)(nil)
