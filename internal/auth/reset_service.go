// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/account"
)

// Notifier delivers a password reset link to an account's email address.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, resetURL string) error
}

// ResetService handles the forgot-password flow: request a token, deliver
// it out of band, and consume it to set a new password.
type ResetService struct {
	accounts     account.Repository
	hasher       PasswordHasher
	notifier     Notifier
	policy       PasswordPolicy
	tokenTTL     time.Duration
	resetURLBase string
	logger       *slog.Logger
}

// NewResetService creates a new ResetService. A zero tokenTTL selects
// DefaultResetTokenTTL.
func NewResetService(
	accounts account.Repository,
	hasher PasswordHasher,
	notifier Notifier,
	policy PasswordPolicy,
	tokenTTL time.Duration,
	resetURLBase string,
	logger *slog.Logger,
) (*ResetService, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("password hasher is required")
	}
	if notifier == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("notifier is required")
	}
	if tokenTTL <= 0 {
		tokenTTL = DefaultResetTokenTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResetService{
		accounts:     accounts,
		hasher:       hasher,
		notifier:     notifier,
		policy:       policy,
		tokenTTL:     tokenTTL,
		resetURLBase: resetURLBase,
		logger:       logger,
	}, nil
}

// TokenTTL returns the configured reset token lifetime.
func (s *ResetService) TokenTTL() time.Duration {
	return s.tokenTTL
}

// RequestReset starts the forgot-password flow for an email address.
//
// It returns nil for unknown emails and for federated accounts so the
// response never reveals whether an address is registered. A repeated
// request overwrites any earlier token; only the newest one is usable.
// The raw token leaves the process only inside the emailed link - the
// store keeps its SHA-256 hash.
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	if acct.IsFederated() {
		s.logger.InfoContext(ctx, "password reset requested for federated account",
			"account_id", acct.ID.String())
		return nil
	}

	token, tokenHash, err := GenerateResetToken()
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	if err := s.accounts.SetResetToken(ctx, acct.ID, tokenHash, expiresAt); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "set reset token").
			Wrap(err)
	}

	resetURL := s.resetURLBase + token
	if err := s.notifier.SendPasswordReset(ctx, acct.Email, resetURL); err != nil {
		// The token stays valid; the caller can retry the request and the
		// new token simply supersedes this one.
		return oops.Code("RESET_NOTIFY_FAILED").
			With("operation", "send reset email").
			With("account_id", acct.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password reset token issued",
		"account_id", acct.ID.String(),
		"expires_at", expiresAt)
	return nil
}

// ConsumeReset redeems a reset token and sets a new password. The token
// and the old password become unusable in the same store update.
//
// Every token failure is ErrResetTokenInvalid: expired, already used,
// superseded, and never-issued tokens are indistinguishable to the caller.
func (s *ResetService) ConsumeReset(ctx context.Context, token, newPassword string) error {
	if err := s.policy.Validate(newPassword); err != nil {
		return err
	}

	if token == "" {
		return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrResetTokenInvalid)
	}

	acct, err := s.accounts.GetByResetTokenHash(ctx, HashResetToken(token))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrResetTokenInvalid)
		}
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "get account by token hash").
			Wrap(err)
	}

	// The row must still carry the hash the lookup matched on.
	if acct.ResetTokenHash == nil || !VerifyResetToken(token, *acct.ResetTokenHash) {
		return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrResetTokenInvalid)
	}

	if acct.IsFederated() {
		// Should be unreachable: federated accounts never get a token.
		return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrResetTokenInvalid)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := s.accounts.SetPasswordAndClearReset(ctx, acct.ID, hash); err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "set password").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password reset completed",
		"account_id", acct.ID.String())
	return nil
}
