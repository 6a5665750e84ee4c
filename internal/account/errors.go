// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package account

import "errors"

// ErrNotFound is returned when a requested account does not exist. Expired
// reset tokens are reported as ErrNotFound too, so callers cannot tell the
// two states apart.
var ErrNotFound = errors.New("account not found")

// ErrDuplicateEmail is returned when creating an account whose email is
// already registered (case-insensitive).
var ErrDuplicateEmail = errors.New("email already registered")

// ErrDuplicateExternalID is returned when creating a federated account whose
// external ID is already bound to another account.
var ErrDuplicateExternalID = errors.New("external ID already registered")
