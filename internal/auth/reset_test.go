// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
)

func TestGenerateResetToken(t *testing.T) {
	token, hash, err := auth.GenerateResetToken()
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, hash)

	t.Run("hash matches token", func(t *testing.T) {
		assert.Equal(t, auth.HashResetToken(token), hash)
		assert.True(t, auth.VerifyResetToken(token, hash))
	})

	t.Run("raw token never equals its hash", func(t *testing.T) {
		assert.NotEqual(t, token, hash)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		token2, hash2, err := auth.GenerateResetToken()
		require.NoError(t, err)
		assert.NotEqual(t, token, token2)
		assert.NotEqual(t, hash, hash2)
	})
}

func TestHashResetToken_Deterministic(t *testing.T) {
	assert.Equal(t, auth.HashResetToken("abc"), auth.HashResetToken("abc"))
	assert.NotEqual(t, auth.HashResetToken("abc"), auth.HashResetToken("abd"))
}

func TestVerifyResetToken(t *testing.T) {
	hash := auth.HashResetToken("sometoken")
	assert.True(t, auth.VerifyResetToken("sometoken", hash))
	assert.False(t, auth.VerifyResetToken("othertoken", hash))
	assert.False(t, auth.VerifyResetToken("", hash))
}
