// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func TestPasswordPolicy_Validate(t *testing.T) {
	policy := auth.DefaultPasswordPolicy()

	t.Run("accepts passwords inside the bounds", func(t *testing.T) {
		assert.NoError(t, policy.Validate("abcdef"))
		assert.NoError(t, policy.Validate("abcdefgh"))
		assert.NoError(t, policy.Validate("abcdefghijkl"))
	})

	t.Run("rejects too short", func(t *testing.T) {
		err := policy.Validate("abcde")
		assert.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_PASSWORD_POLICY")
	})

	t.Run("rejects too long", func(t *testing.T) {
		err := policy.Validate(strings.Repeat("a", 13))
		assert.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_PASSWORD_POLICY")
	})

	t.Run("rejects empty", func(t *testing.T) {
		assert.Error(t, policy.Validate(""))
	})
}
