// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "github.com/samber/oops"

// Password policy defaults, inherited from the system this service
// replaces.
const (
	DefaultPasswordMinLength = 6
	DefaultPasswordMaxLength = 12
)

// PasswordPolicy bounds acceptable password lengths. Bounds are inclusive.
type PasswordPolicy struct {
	MinLength int
	MaxLength int
}

// DefaultPasswordPolicy returns the 6-12 character policy.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength: DefaultPasswordMinLength,
		MaxLength: DefaultPasswordMaxLength,
	}
}

// Validate checks a plaintext password against the policy.
func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength || len(password) > p.MaxLength {
		return oops.Code("AUTH_PASSWORD_POLICY").
			With("min", p.MinLength).
			With("max", p.MaxLength).
			Errorf("password must be between %d and %d characters", p.MinLength, p.MaxLength)
	}
	return nil
}
