// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package account defines the identity domain model and its persistence
// contract.
//
// Accounts should be created through New, which normalizes the email and
// enforces the credential invariant: a password account carries a password
// hash and never an external ID, a federated account carries an external ID
// and never a password hash. Repository implementations receive
// pre-validated accounts from this constructor.
package account

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// AuthProvider identifies how an account authenticates.
type AuthProvider string

// Supported authentication providers. Immutable after account creation.
const (
	ProviderPassword  AuthProvider = "password"
	ProviderFederated AuthProvider = "federated"
)

// Valid reports whether p is a known provider.
func (p AuthProvider) Valid() bool {
	return p == ProviderPassword || p == ProviderFederated
}

// phoneRegex matches exactly ten digits.
var phoneRegex = regexp.MustCompile(`^\d{10}$`)

// Account is a persisted identity record.
//
// ResetTokenHash and ResetTokenExpiresAt are both set while a password reset
// is outstanding and both nil otherwise; they are only ever written together.
type Account struct {
	ID                  ulid.ULID
	Email               string
	DisplayName         string
	PasswordHash        string
	ExternalID          *string
	Provider            AuthProvider
	PhoneNumber         string
	Address             string
	ResetTokenHash      *string
	ResetTokenExpiresAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Draft holds the validated-input fields for creating an account.
// PasswordHash must already be hashed; New never sees a plaintext password.
type Draft struct {
	Email        string
	DisplayName  string
	Provider     AuthProvider
	PasswordHash string
	ExternalID   string
	PhoneNumber  string
	Address      string
}

// New creates a validated Account from a draft.
func New(d Draft) (*Account, error) {
	email := NormalizeEmail(d.Email)
	if email == "" {
		return nil, oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email is required")
	}
	if !strings.Contains(email, "@") {
		return nil, oops.Code("ACCOUNT_INVALID_EMAIL").
			With("email", email).
			Errorf("email is not well-formed")
	}
	if !d.Provider.Valid() {
		return nil, oops.Code("ACCOUNT_INVALID_PROVIDER").
			With("provider", string(d.Provider)).
			Errorf("unknown auth provider")
	}

	switch d.Provider {
	case ProviderPassword:
		if d.PasswordHash == "" {
			return nil, oops.Code("ACCOUNT_MISSING_CREDENTIAL").
				Errorf("password accounts require a password hash")
		}
		if d.ExternalID != "" {
			return nil, oops.Code("ACCOUNT_CREDENTIAL_CONFLICT").
				Errorf("password accounts cannot carry an external ID")
		}
	case ProviderFederated:
		if d.ExternalID == "" {
			return nil, oops.Code("ACCOUNT_MISSING_CREDENTIAL").
				Errorf("federated accounts require an external ID")
		}
		if d.PasswordHash != "" {
			return nil, oops.Code("ACCOUNT_CREDENTIAL_CONFLICT").
				Errorf("federated accounts cannot carry a password hash")
		}
	}

	if d.PhoneNumber != "" {
		if err := ValidatePhoneNumber(d.PhoneNumber); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	acct := &Account{
		ID:           ulid.Make(),
		Email:        email,
		DisplayName:  strings.TrimSpace(d.DisplayName),
		PasswordHash: d.PasswordHash,
		Provider:     d.Provider,
		PhoneNumber:  d.PhoneNumber,
		Address:      strings.TrimSpace(d.Address),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if d.Provider == ProviderFederated {
		ext := d.ExternalID
		acct.ExternalID = &ext
	}
	return acct, nil
}

// IsFederated reports whether the account authenticates via an external
// identity provider and therefore has no local password.
func (a *Account) IsFederated() bool {
	return a.Provider == ProviderFederated
}

// HasPendingReset reports whether a reset token is outstanding at the given
// instant.
func (a *Account) HasPendingReset(now time.Time) bool {
	return a.ResetTokenHash != nil && a.ResetTokenExpiresAt != nil && now.Before(*a.ResetTokenExpiresAt)
}

// NormalizeEmail lowercases and trims an email address. All store lookups
// and uniqueness checks operate on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePhoneNumber checks the 10-digit phone pattern.
func ValidatePhoneNumber(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return oops.Code("ACCOUNT_INVALID_PHONE").
			Errorf("phone number must be exactly 10 digits")
	}
	return nil
}

// ProfileUpdate describes a partial profile mutation. Nil fields are left
// untouched. Credential fields are deliberately absent; password changes go
// through Repository.UpdatePassword.
type ProfileUpdate struct {
	DisplayName *string
	PhoneNumber *string
	Address     *string
}

// Repository manages account persistence. All write operations are atomic
// per account: each maps to a single conditional statement in the store so
// concurrent request handlers cannot observe partial mutations.
type Repository interface {
	// Create stores a new account. Returns ErrDuplicateEmail or
	// ErrDuplicateExternalID when a uniqueness constraint is violated.
	Create(ctx context.Context, acct *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByExternalID retrieves a federated account by its provider-issued
	// identifier.
	GetByExternalID(ctx context.Context, externalID string) (*Account, error)

	// GetByResetTokenHash retrieves the account holding the given reset
	// token hash, provided the token has not expired by the store's clock.
	// Expired tokens behave exactly like absent ones: ErrNotFound.
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*Account, error)

	// UpdateProfile applies a partial profile mutation and returns the
	// updated account.
	UpdateProfile(ctx context.Context, id ulid.ULID, upd ProfileUpdate) (*Account, error)

	// SetResetToken attaches a reset token hash and expiry to the account,
	// overwriting any outstanding token (supersede).
	SetResetToken(ctx context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error

	// SetPasswordAndClearReset sets the password hash and clears both reset
	// token fields in one write.
	SetPasswordAndClearReset(ctx context.Context, id ulid.ULID, passwordHash string) error

	// UpdatePassword sets only the password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
