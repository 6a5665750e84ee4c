// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth provides the credential and session primitives for Gatehouse.
//
// # Components
//
//   - Argon2idHasher - slow salted password hashing (PasswordHasher)
//   - TokenIssuer - stateless signed session tokens with a fixed validity
//     window; transport binding (cookie vs. bearer) is the HTTP layer's
//     concern, not this package's
//   - ResetService - the password reset state machine: single-use,
//     time-limited tokens of which only the SHA-256 digest is persisted
//   - Service - registration, login, and profile operations
//
// Services are created with New*Service constructors that validate their
// dependencies.
package auth
