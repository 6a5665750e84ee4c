// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

// ErrInvalidCredentials is returned for every login failure a caller could
// use to probe the store: unknown email, wrong password, or a federated
// identifier that matches nothing. One error, one response shape.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUnauthenticated is returned when a session token is missing, invalid,
// expired, or refers to an account that no longer exists.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrResetTokenInvalid is returned when a reset token cannot be consumed.
// It deliberately covers "never existed", "expired", "already used", and
// "wrong token" with a single indistinguishable error.
var ErrResetTokenInvalid = errors.New("invalid or expired reset token")

// ErrTokenExpired is returned by TokenIssuer.Verify for a well-formed token
// past its validity window.
var ErrTokenExpired = errors.New("token has expired")

// ErrTokenInvalid is returned by TokenIssuer.Verify for a malformed token or
// a bad signature.
var ErrTokenInvalid = errors.New("token is invalid")
