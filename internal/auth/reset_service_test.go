// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/mocks"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

const testResetURLBase = "https://example.com/reset?token="

func newTestResetService(t *testing.T, accounts *mocks.MockAccountRepository, hasher *mocks.MockPasswordHasher, notifier *mocks.MockNotifier) *auth.ResetService {
	t.Helper()
	svc, err := auth.NewResetService(accounts, hasher, notifier,
		auth.DefaultPasswordPolicy(), auth.DefaultResetTokenTTL, testResetURLBase, nil)
	require.NoError(t, err)
	return svc
}

func TestResetService_RequestReset(t *testing.T) {
	ctx := context.Background()

	t.Run("known password account gets a token and an email", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		notifier := mocks.NewMockNotifier(t)
		svc := newTestResetService(t, accounts, hasher, notifier)

		acct := passwordAccount(t)
		accounts.On("GetByEmail", ctx, acct.Email).Return(acct, nil)

		var storedHash string
		accounts.On("SetResetToken", ctx, acct.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Run(func(args mock.Arguments) {
				storedHash = args.String(2)
				expiresAt := args.Get(3).(time.Time)
				assert.WithinDuration(t, time.Now().Add(auth.DefaultResetTokenTTL), expiresAt, 5*time.Second)
			}).
			Return(nil)

		notifier.On("SendPasswordReset", ctx, acct.Email, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) {
				resetURL := args.String(2)
				require.True(t, strings.HasPrefix(resetURL, testResetURLBase))

				// The emailed link carries the raw token; the store got its hash.
				rawToken := strings.TrimPrefix(resetURL, testResetURLBase)
				assert.Equal(t, auth.HashResetToken(rawToken), storedHash)
				assert.NotEqual(t, rawToken, storedHash)
			}).
			Return(nil)

		require.NoError(t, svc.RequestReset(ctx, acct.Email))
	})

	t.Run("unknown email succeeds without side effects", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		notifier := mocks.NewMockNotifier(t)
		svc := newTestResetService(t, accounts, hasher, notifier)

		accounts.On("GetByEmail", ctx, "ghost@example.com").Return(nil, account.ErrNotFound)

		require.NoError(t, svc.RequestReset(ctx, "ghost@example.com"))
		notifier.AssertNotCalled(t, "SendPasswordReset", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("federated account succeeds without a token", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		notifier := mocks.NewMockNotifier(t)
		svc := newTestResetService(t, accounts, hasher, notifier)

		acct := federatedAccount(t)
		accounts.On("GetByEmail", ctx, acct.Email).Return(acct, nil)

		require.NoError(t, svc.RequestReset(ctx, acct.Email))
		accounts.AssertNotCalled(t, "SetResetToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("notifier failure surfaces with the token left valid", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		notifier := mocks.NewMockNotifier(t)
		svc := newTestResetService(t, accounts, hasher, notifier)

		acct := passwordAccount(t)
		accounts.On("GetByEmail", ctx, acct.Email).Return(acct, nil)
		accounts.On("SetResetToken", ctx, acct.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Return(nil)
		notifier.On("SendPasswordReset", ctx, acct.Email, mock.AnythingOfType("string")).
			Return(errors.New("smtp unreachable"))

		err := svc.RequestReset(ctx, acct.Email)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "RESET_NOTIFY_FAILED")
	})
}

func TestResetService_ConsumeReset(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token sets the password and clears the token", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		notifier := mocks.NewMockNotifier(t)
		svc := newTestResetService(t, accounts, hasher, notifier)

		acct := passwordAccount(t)
		token := "rawtoken"
		tokenHash := auth.HashResetToken(token)
		expiresAt := time.Now().Add(time.Minute)
		acct.ResetTokenHash = &tokenHash
		acct.ResetTokenExpiresAt = &expiresAt

		accounts.On("GetByResetTokenHash", ctx, tokenHash).Return(acct, nil)
		hasher.On("Hash", "fresh123").Return("$argon2id$fresh", nil)
		accounts.On("SetPasswordAndClearReset", ctx, acct.ID, "$argon2id$fresh").Return(nil)

		require.NoError(t, svc.ConsumeReset(ctx, token, "fresh123"))
	})

	t.Run("unknown or expired token", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		notifier := mocks.NewMockNotifier(t)
		svc := newTestResetService(t, accounts, hasher, notifier)

		accounts.On("GetByResetTokenHash", ctx, mock.AnythingOfType("string")).
			Return(nil, account.ErrNotFound)

		err := svc.ConsumeReset(ctx, "staletoken", "fresh123")
		assert.ErrorIs(t, err, auth.ErrResetTokenInvalid)
	})

	t.Run("row without a matching stored hash", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		notifier := mocks.NewMockNotifier(t)
		svc := newTestResetService(t, accounts, hasher, notifier)

		staleHash := auth.HashResetToken("someothertoken")
		acct := passwordAccount(t)
		acct.ResetTokenHash = &staleHash
		accounts.On("GetByResetTokenHash", ctx, mock.AnythingOfType("string")).Return(acct, nil)

		err := svc.ConsumeReset(ctx, "rawtoken", "fresh123")
		assert.ErrorIs(t, err, auth.ErrResetTokenInvalid)
		accounts.AssertNotCalled(t, "SetPasswordAndClearReset", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty token", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		notifier := mocks.NewMockNotifier(t)
		svc := newTestResetService(t, accounts, hasher, notifier)

		err := svc.ConsumeReset(ctx, "", "fresh123")
		assert.ErrorIs(t, err, auth.ErrResetTokenInvalid)
	})

	t.Run("policy violation is reported before token lookup", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		notifier := mocks.NewMockNotifier(t)
		svc := newTestResetService(t, accounts, hasher, notifier)

		err := svc.ConsumeReset(ctx, "sometoken", "no")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_PASSWORD_POLICY")
		accounts.AssertNotCalled(t, "GetByResetTokenHash", mock.Anything, mock.Anything)
	})
}

// fakeAccountStore is an in-memory account.Repository. The single-use
// and supersede guarantees live in how SetResetToken,
// GetByResetTokenHash and SetPasswordAndClearReset interact, which
// per-call mocks cannot exhibit.
type fakeAccountStore struct {
	mu    sync.Mutex
	accts map[ulid.ULID]*account.Account
}

var _ account.Repository = (*fakeAccountStore)(nil)

func newFakeAccountStore(accts ...*account.Account) *fakeAccountStore {
	s := &fakeAccountStore{accts: make(map[ulid.ULID]*account.Account)}
	for _, a := range accts {
		cp := *a
		s.accts[a.ID] = &cp
	}
	return s
}

func (s *fakeAccountStore) Create(_ context.Context, acct *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accts {
		if a.Email == acct.Email {
			return account.ErrDuplicateEmail
		}
	}
	cp := *acct
	s.accts[acct.ID] = &cp
	return nil
}

func (s *fakeAccountStore) GetByID(_ context.Context, id ulid.ULID) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *fakeAccountStore) GetByEmail(_ context.Context, email string) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	norm := account.NormalizeEmail(email)
	for _, a := range s.accts {
		if a.Email == norm {
			cp := *a
			return &cp, nil
		}
	}
	return nil, account.ErrNotFound
}

func (s *fakeAccountStore) GetByExternalID(_ context.Context, externalID string) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accts {
		if a.ExternalID != nil && *a.ExternalID == externalID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, account.ErrNotFound
}

func (s *fakeAccountStore) GetByResetTokenHash(_ context.Context, tokenHash string) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, a := range s.accts {
		if a.ResetTokenHash != nil && *a.ResetTokenHash == tokenHash &&
			a.ResetTokenExpiresAt != nil && a.ResetTokenExpiresAt.After(now) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, account.ErrNotFound
}

func (s *fakeAccountStore) UpdateProfile(_ context.Context, id ulid.ULID, upd account.ProfileUpdate) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	if upd.DisplayName != nil {
		a.DisplayName = *upd.DisplayName
	}
	if upd.PhoneNumber != nil {
		a.PhoneNumber = *upd.PhoneNumber
	}
	if upd.Address != nil {
		a.Address = *upd.Address
	}
	cp := *a
	return &cp, nil
}

func (s *fakeAccountStore) SetResetToken(_ context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accts[id]
	if !ok {
		return account.ErrNotFound
	}
	a.ResetTokenHash = &tokenHash
	a.ResetTokenExpiresAt = &expiresAt
	return nil
}

func (s *fakeAccountStore) SetPasswordAndClearReset(_ context.Context, id ulid.ULID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accts[id]
	if !ok {
		return account.ErrNotFound
	}
	a.PasswordHash = passwordHash
	a.ResetTokenHash = nil
	a.ResetTokenExpiresAt = nil
	return nil
}

func (s *fakeAccountStore) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accts[id]
	if !ok {
		return account.ErrNotFound
	}
	a.PasswordHash = passwordHash
	return nil
}

func TestResetService_Lifecycle(t *testing.T) {
	ctx := context.Background()

	newLifecycleService := func(t *testing.T, store *fakeAccountStore, urls *[]string) *auth.ResetService {
		t.Helper()
		notifier := mocks.NewMockNotifier(t)
		notifier.On("SendPasswordReset", mock.Anything, mock.Anything, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { *urls = append(*urls, args.String(2)) }).
			Return(nil)
		hasher := mocks.NewMockPasswordHasher(t)
		hasher.On("Hash", mock.AnythingOfType("string")).Return("$argon2id$fresh", nil)
		svc, err := auth.NewResetService(store, hasher, notifier,
			auth.DefaultPasswordPolicy(), auth.DefaultResetTokenTTL, testResetURLBase, nil)
		require.NoError(t, err)
		return svc
	}

	rawToken := func(t *testing.T, urls []string, i int) string {
		t.Helper()
		require.Greater(t, len(urls), i)
		return strings.TrimPrefix(urls[i], testResetURLBase)
	}

	t.Run("a token is consumable exactly once", func(t *testing.T) {
		store := newFakeAccountStore(passwordAccount(t))
		var urls []string
		svc := newLifecycleService(t, store, &urls)

		require.NoError(t, svc.RequestReset(ctx, "user@example.com"))
		token := rawToken(t, urls, 0)

		require.NoError(t, svc.ConsumeReset(ctx, token, "fresh123"))

		stored, err := store.GetByEmail(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$fresh", stored.PasswordHash)
		assert.False(t, stored.HasPendingReset(time.Now()))

		err = svc.ConsumeReset(ctx, token, "fresh123")
		assert.ErrorIs(t, err, auth.ErrResetTokenInvalid)
	})

	t.Run("a new request supersedes the outstanding token", func(t *testing.T) {
		store := newFakeAccountStore(passwordAccount(t))
		var urls []string
		svc := newLifecycleService(t, store, &urls)

		require.NoError(t, svc.RequestReset(ctx, "user@example.com"))
		require.NoError(t, svc.RequestReset(ctx, "user@example.com"))
		first := rawToken(t, urls, 0)
		second := rawToken(t, urls, 1)
		require.NotEqual(t, first, second)

		err := svc.ConsumeReset(ctx, first, "fresh123")
		assert.ErrorIs(t, err, auth.ErrResetTokenInvalid)

		require.NoError(t, svc.ConsumeReset(ctx, second, "fresh123"))
	})
}
