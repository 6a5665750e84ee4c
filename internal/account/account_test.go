// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package account_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func TestNew_PasswordAccount(t *testing.T) {
	acct, err := account.New(account.Draft{
		Email:        "  User@Example.COM ",
		DisplayName:  "Test User",
		Provider:     account.ProviderPassword,
		PasswordHash: "$argon2id$fake",
	})
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", acct.Email)
	assert.Equal(t, "Test User", acct.DisplayName)
	assert.Equal(t, account.ProviderPassword, acct.Provider)
	assert.Nil(t, acct.ExternalID)
	assert.False(t, acct.IsFederated())
	assert.NotEmpty(t, acct.ID.String())
	assert.False(t, acct.CreatedAt.IsZero())
}

func TestNew_FederatedAccount(t *testing.T) {
	acct, err := account.New(account.Draft{
		Email:      "user@example.com",
		Provider:   account.ProviderFederated,
		ExternalID: "google-oauth2|12345",
	})
	require.NoError(t, err)

	require.NotNil(t, acct.ExternalID)
	assert.Equal(t, "google-oauth2|12345", *acct.ExternalID)
	assert.Empty(t, acct.PasswordHash)
	assert.True(t, acct.IsFederated())
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		draft account.Draft
		code  string
	}{
		{
			name:  "missing email",
			draft: account.Draft{Provider: account.ProviderPassword, PasswordHash: "h"},
			code:  "ACCOUNT_INVALID_EMAIL",
		},
		{
			name:  "malformed email",
			draft: account.Draft{Email: "not-an-email", Provider: account.ProviderPassword, PasswordHash: "h"},
			code:  "ACCOUNT_INVALID_EMAIL",
		},
		{
			name:  "unknown provider",
			draft: account.Draft{Email: "a@b.com", Provider: "ldap"},
			code:  "ACCOUNT_INVALID_PROVIDER",
		},
		{
			name:  "password account without hash",
			draft: account.Draft{Email: "a@b.com", Provider: account.ProviderPassword},
			code:  "ACCOUNT_MISSING_CREDENTIAL",
		},
		{
			name:  "password account with external id",
			draft: account.Draft{Email: "a@b.com", Provider: account.ProviderPassword, PasswordHash: "h", ExternalID: "x"},
			code:  "ACCOUNT_CREDENTIAL_CONFLICT",
		},
		{
			name:  "federated account without external id",
			draft: account.Draft{Email: "a@b.com", Provider: account.ProviderFederated},
			code:  "ACCOUNT_MISSING_CREDENTIAL",
		},
		{
			name:  "federated account with password hash",
			draft: account.Draft{Email: "a@b.com", Provider: account.ProviderFederated, ExternalID: "x", PasswordHash: "h"},
			code:  "ACCOUNT_CREDENTIAL_CONFLICT",
		},
		{
			name:  "bad phone number",
			draft: account.Draft{Email: "a@b.com", Provider: account.ProviderPassword, PasswordHash: "h", PhoneNumber: "12345"},
			code:  "ACCOUNT_INVALID_PHONE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := account.New(tt.draft)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	assert.NoError(t, account.ValidatePhoneNumber("0123456789"))
	assert.Error(t, account.ValidatePhoneNumber("123456789"))
	assert.Error(t, account.ValidatePhoneNumber("12345678901"))
	assert.Error(t, account.ValidatePhoneNumber("12345678ab"))
	assert.Error(t, account.ValidatePhoneNumber(""))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", account.NormalizeEmail(" User@EXAMPLE.com "))
	assert.Equal(t, "", account.NormalizeEmail("   "))
}

func TestHasPendingReset(t *testing.T) {
	now := time.Now()
	hash := "somehash"

	t.Run("no token", func(t *testing.T) {
		acct := &account.Account{}
		assert.False(t, acct.HasPendingReset(now))
	})

	t.Run("outstanding token", func(t *testing.T) {
		expires := now.Add(10 * time.Minute)
		acct := &account.Account{ResetTokenHash: &hash, ResetTokenExpiresAt: &expires}
		assert.True(t, acct.HasPendingReset(now))
	})

	t.Run("expired token", func(t *testing.T) {
		expires := now.Add(-time.Minute)
		acct := &account.Account{ResetTokenHash: &hash, ResetTokenExpiresAt: &expires}
		assert.False(t, acct.HasPendingReset(now))
	})
}
