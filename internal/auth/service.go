// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/account"
)

// Service provides registration, login, and profile operations.
type Service struct {
	accounts account.Repository
	hasher   PasswordHasher
	tokens   *TokenIssuer
	policy   PasswordPolicy
}

// NewService creates a new Service.
func NewService(accounts account.Repository, hasher PasswordHasher, tokens *TokenIssuer, policy PasswordPolicy) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("token issuer is required")
	}
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		policy:   policy,
	}, nil
}

// dummyPasswordHash is used when a login targets an unknown email so that
// password verification still runs and response timing stays consistent.
// This is NOT a real credential - it never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// RegisterInput holds the validated request fields for registration.
// Password is plaintext here and hashed exactly once, inside Register.
type RegisterInput struct {
	Email       string
	Password    string
	ExternalID  string
	Provider    account.AuthProvider
	DisplayName string
	PhoneNumber string
	Address     string
}

// Register creates an account and issues a session token for it.
// Duplicate emails surface as account.ErrDuplicateEmail from the store's
// unique index; there is no racy pre-check.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*account.Account, string, error) {
	draft := account.Draft{
		Email:       in.Email,
		DisplayName: in.DisplayName,
		Provider:    in.Provider,
		ExternalID:  in.ExternalID,
		PhoneNumber: in.PhoneNumber,
		Address:     in.Address,
	}

	if in.Provider == account.ProviderPassword {
		if err := s.policy.Validate(in.Password); err != nil {
			return nil, "", err
		}
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, "", oops.Code("AUTH_REGISTER_FAILED").
				With("operation", "hash password").
				Wrap(err)
		}
		draft.PasswordHash = hash
	}

	acct, err := account.New(draft)
	if err != nil {
		return nil, "", err
	}

	if err := s.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) || errors.Is(err, account.ErrDuplicateExternalID) {
			return nil, "", err //nolint:wrapcheck // Already coded by the repository
		}
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	token, err := s.tokens.Issue(acct.ID, acct.Email)
	if err != nil {
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}

	return acct, token, nil
}

// LoginInput holds the validated request fields for login.
type LoginInput struct {
	Email      string
	Password   string
	ExternalID string
	Provider   account.AuthProvider
}

// Login authenticates an account and issues a session token.
//
// The password flow verifies the stored hash; when the email is unknown it
// still verifies against a dummy hash so the failure is not distinguishable
// by timing. The federated flow matches an externally-verified identifier
// against the stored external ID - verifying the identity provider's own
// signature is the caller's collaborator's job, not this service's.
func (s *Service) Login(ctx context.Context, in LoginInput) (*account.Account, string, error) {
	var acct *account.Account
	var err error

	switch in.Provider {
	case account.ProviderPassword:
		acct, err = s.loginWithPassword(ctx, in.Email, in.Password)
	case account.ProviderFederated:
		acct, err = s.loginFederated(ctx, in.Email, in.ExternalID)
	default:
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(acct.ID, acct.Email)
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}

	return acct, token, nil
}

func (s *Service) loginWithPassword(ctx context.Context, email, password string) (*account.Account, error) {
	acct, lookupErr := s.accounts.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	accountExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, account.ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get account by email").
				Wrap(lookupErr)
		}
	} else if acct.Provider == account.ProviderPassword {
		// A federated account has no password; keep the dummy hash so the
		// failure shape matches an unknown email exactly.
		targetHash = acct.PasswordHash
		accountExists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !accountExists {
			return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !accountExists || !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	// Upgrade legacy hashes on the way through. Login succeeds regardless.
	if s.hasher.NeedsUpgrade(acct.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			if updErr := s.accounts.UpdatePassword(ctx, acct.ID, newHash); updErr == nil {
				acct.PasswordHash = newHash
			}
		}
	}

	return acct, nil
}

func (s *Service) loginFederated(ctx context.Context, email, externalID string) (*account.Account, error) {
	if externalID == "" {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	acct, err := s.accounts.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, oops.Code("AUTH_ACCOUNT_NOT_FOUND").Wrap(ErrInvalidCredentials)
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get account by external id").
			Wrap(err)
	}

	// The identifier must belong to the email the caller claims.
	if account.NormalizeEmail(email) != acct.Email {
		return nil, oops.Code("AUTH_ACCOUNT_NOT_FOUND").Wrap(ErrInvalidCredentials)
	}

	return acct, nil
}

// Authenticate verifies a session token and resolves its account. A token
// for a deleted account fails exactly like a bad token.
func (s *Service) Authenticate(ctx context.Context, token string) (*account.Account, error) {
	if token == "" {
		return nil, oops.Code("AUTH_UNAUTHENTICATED").Wrap(ErrUnauthenticated)
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, oops.Code("AUTH_UNAUTHENTICATED").Wrap(ErrUnauthenticated)
	}

	id, err := ulid.Parse(claims.AccountID)
	if err != nil {
		return nil, oops.Code("AUTH_UNAUTHENTICATED").Wrap(ErrUnauthenticated)
	}

	acct, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, oops.Code("AUTH_UNAUTHENTICATED").Wrap(ErrUnauthenticated)
		}
		return nil, oops.Code("AUTH_AUTHENTICATE_FAILED").
			With("operation", "get account by id").
			Wrap(err)
	}

	return acct, nil
}

// GetProfile returns the account for an authenticated identity.
func (s *Service) GetProfile(ctx context.Context, id ulid.ULID) (*account.Account, error) {
	acct, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, err //nolint:wrapcheck // Already coded by the repository
		}
		return nil, oops.Code("AUTH_GET_PROFILE_FAILED").
			With("operation", "get account by id").
			Wrap(err)
	}
	return acct, nil
}

// UpdateProfileInput holds the validated request fields for a profile
// update. Nil fields are left untouched.
type UpdateProfileInput struct {
	DisplayName *string
	PhoneNumber *string
	Address     *string
	Password    *string
}

// UpdateProfile applies a profile mutation for the authenticated account.
// Password change is only available to password accounts; federated
// accounts have no password field to change.
func (s *Service) UpdateProfile(ctx context.Context, id ulid.ULID, in UpdateProfileInput) (*account.Account, error) {
	if in.PhoneNumber != nil && *in.PhoneNumber != "" {
		if err := account.ValidatePhoneNumber(*in.PhoneNumber); err != nil {
			return nil, err
		}
	}

	if in.Password != nil {
		acct, err := s.accounts.GetByID(ctx, id)
		if err != nil {
			return nil, oops.Code("AUTH_UPDATE_PROFILE_FAILED").
				With("operation", "get account by id").
				Wrap(err)
		}
		if acct.IsFederated() {
			return nil, oops.Code("AUTH_FEDERATED_PASSWORD").
				Errorf("federated accounts cannot change a password")
		}
		if err := s.policy.Validate(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, oops.Code("AUTH_UPDATE_PROFILE_FAILED").
				With("operation", "hash password").
				Wrap(err)
		}
		if err := s.accounts.UpdatePassword(ctx, id, hash); err != nil {
			return nil, oops.Code("AUTH_UPDATE_PROFILE_FAILED").
				With("operation", "update password").
				Wrap(err)
		}
	}

	acct, err := s.accounts.UpdateProfile(ctx, id, account.ProfileUpdate{
		DisplayName: in.DisplayName,
		PhoneNumber: in.PhoneNumber,
		Address:     in.Address,
	})
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, err //nolint:wrapcheck // Already coded by the repository
		}
		return nil, oops.Code("AUTH_UPDATE_PROFILE_FAILED").
			With("operation", "update profile").
			Wrap(err)
	}
	return acct, nil
}
