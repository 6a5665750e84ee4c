// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// errorResponse is the uniform error body. Internal detail stays in the
// logs; clients get a stable code and a human-readable message.
type errorResponse struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

func writeValidationError(c *gin.Context, fields []FieldError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Code:    "invalid_request",
		Message: "request validation failed",
		Fields:  fields,
	})
}

// writeError maps a service error to an HTTP response. Authentication
// failures collapse to a single shape so the response does not reveal
// which part of the credentials was wrong.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
			Code:    "invalid_credentials",
			Message: "invalid credentials",
		})
	case errors.Is(err, auth.ErrUnauthenticated):
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
			Code:    "unauthenticated",
			Message: "authentication required",
		})
	case errors.Is(err, auth.ErrResetTokenInvalid):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
			Code:    "reset_token_invalid",
			Message: "reset token is invalid or expired",
		})
	case errors.Is(err, account.ErrDuplicateEmail):
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{
			Code:    "email_taken",
			Message: "an account with this email already exists",
		})
	case errors.Is(err, account.ErrDuplicateExternalID):
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{
			Code:    "external_id_taken",
			Message: "an account with this external identifier already exists",
		})
	case errors.Is(err, account.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{
			Code:    "not_found",
			Message: "account not found",
		})
	case errutil.Code(err) == "AUTH_PASSWORD_POLICY":
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
			Code:    "password_policy",
			Message: err.Error(),
		})
	case strings.HasPrefix(errutil.Code(err), "ACCOUNT_INVALID"),
		errutil.Code(err) == "ACCOUNT_MISSING_CREDENTIAL",
		errutil.Code(err) == "ACCOUNT_CREDENTIAL_CONFLICT":
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errutil.Code(err) == "AUTH_FEDERATED_PASSWORD":
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
			Code:    "federated_password",
			Message: "federated accounts cannot change a password",
		})
	default:
		errutil.LogError(s.logger, "request failed", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
			Code:    "internal",
			Message: "internal error",
		})
	}
}
