// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"net/mail"
	"regexp"

	"github.com/gatehouse/gatehouse/internal/account"
)

// FieldError describes a single invalid request field. A validation
// failure returns every problem at once so clients can fix a form in one
// round trip.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var phonePattern = regexp.MustCompile(`^\d{10}$`)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	ExternalID  string `json:"external_id"`
	Provider    string `json:"provider"`
	DisplayName string `json:"display_name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}

func (r *registerRequest) validate() []FieldError {
	var errs []FieldError

	if r.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		errs = append(errs, FieldError{Field: "email", Message: "email is not a valid address"})
	}

	switch r.Provider {
	case "", string(account.ProviderPassword):
		if r.Password == "" {
			errs = append(errs, FieldError{Field: "password", Message: "password is required"})
		}
		if r.PhoneNumber == "" {
			errs = append(errs, FieldError{Field: "phone_number", Message: "phone_number is required"})
		}
		if r.ExternalID != "" {
			errs = append(errs, FieldError{Field: "external_id", Message: "external_id is only valid for federated accounts"})
		}
	case string(account.ProviderFederated):
		if r.ExternalID == "" {
			errs = append(errs, FieldError{Field: "external_id", Message: "external_id is required for federated accounts"})
		}
		if r.Password != "" {
			errs = append(errs, FieldError{Field: "password", Message: "federated accounts do not take a password"})
		}
	default:
		errs = append(errs, FieldError{Field: "provider", Message: "provider must be 'password' or 'federated'"})
	}

	if r.PhoneNumber != "" && !phonePattern.MatchString(r.PhoneNumber) {
		errs = append(errs, FieldError{Field: "phone_number", Message: "phone_number must be exactly 10 digits"})
	}

	return errs
}

func (r *registerRequest) provider() account.AuthProvider {
	if r.Provider == string(account.ProviderFederated) {
		return account.ProviderFederated
	}
	return account.ProviderPassword
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	ExternalID string `json:"external_id"`
	Provider   string `json:"provider"`
}

func (r *loginRequest) validate() []FieldError {
	var errs []FieldError

	if r.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	}

	switch r.Provider {
	case "", string(account.ProviderPassword):
		if r.Password == "" {
			errs = append(errs, FieldError{Field: "password", Message: "password is required"})
		}
	case string(account.ProviderFederated):
		if r.ExternalID == "" {
			errs = append(errs, FieldError{Field: "external_id", Message: "external_id is required for federated login"})
		}
	default:
		errs = append(errs, FieldError{Field: "provider", Message: "provider must be 'password' or 'federated'"})
	}

	return errs
}

func (r *loginRequest) provider() account.AuthProvider {
	if r.Provider == string(account.ProviderFederated) {
		return account.ProviderFederated
	}
	return account.ProviderPassword
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r *forgotPasswordRequest) validate() []FieldError {
	if r.Email == "" {
		return []FieldError{{Field: "email", Message: "email is required"}}
	}
	return nil
}

// resetPasswordRequest carries only the new password; the token travels
// in the URL path.
type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (r *resetPasswordRequest) validate() []FieldError {
	if r.Password == "" {
		return []FieldError{{Field: "password", Message: "password is required"}}
	}
	return nil
}

type updateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	PhoneNumber *string `json:"phone_number"`
	Address     *string `json:"address"`
	Password    *string `json:"password"`
}

func (r *updateProfileRequest) validate() []FieldError {
	var errs []FieldError

	if r.DisplayName == nil && r.PhoneNumber == nil && r.Address == nil && r.Password == nil {
		errs = append(errs, FieldError{Field: "body", Message: "at least one field must be provided"})
	}

	if r.PhoneNumber != nil && *r.PhoneNumber != "" && !phonePattern.MatchString(*r.PhoneNumber) {
		errs = append(errs, FieldError{Field: "phone_number", Message: "phone_number must be exactly 10 digits"})
	}

	if r.Password != nil && *r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "password cannot be empty"})
	}

	return errs
}
