// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/auth"
)

// accountResponse is the public view of an account. The password hash
// and reset state never appear in a response.
type accountResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	Provider    string    `json:"provider"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Address     string    `json:"address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toAccountResponse(acct *account.Account) accountResponse {
	return accountResponse{
		ID:          acct.ID.String(),
		Email:       acct.Email,
		DisplayName: acct.DisplayName,
		Provider:    string(acct.Provider),
		PhoneNumber: acct.PhoneNumber,
		Address:     acct.Address,
		CreatedAt:   acct.CreatedAt,
		UpdatedAt:   acct.UpdatedAt,
	}
}

// sessionResponse carries the issued token. With the cookie transport
// the token also travels in a Set-Cookie header; the body keeps it for
// non-browser clients either way.
type sessionResponse struct {
	Account accountResponse `json:"account"`
	Token   string          `json:"token"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, []FieldError{{Field: "body", Message: "request body must be valid JSON"}})
		return
	}
	if fieldErrs := req.validate(); len(fieldErrs) > 0 {
		s.recordRegistration("invalid")
		writeValidationError(c, fieldErrs)
		return
	}

	acct, token, err := s.auth.Register(c.Request.Context(), auth.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		ExternalID:  req.ExternalID,
		Provider:    req.provider(),
		DisplayName: req.DisplayName,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
	})
	if err != nil {
		s.recordRegistration(registrationOutcome(err))
		s.writeError(c, err)
		return
	}

	s.recordRegistration("success")
	s.transport.Write(c, token)
	c.JSON(http.StatusCreated, sessionResponse{
		Account: toAccountResponse(acct),
		Token:   token,
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, []FieldError{{Field: "body", Message: "request body must be valid JSON"}})
		return
	}
	if fieldErrs := req.validate(); len(fieldErrs) > 0 {
		writeValidationError(c, fieldErrs)
		return
	}

	acct, token, err := s.auth.Login(c.Request.Context(), auth.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		ExternalID: req.ExternalID,
		Provider:   req.provider(),
	})
	if err != nil {
		s.limiter.RecordFailure(c.ClientIP())
		s.recordLogin(loginOutcome(err))
		s.writeError(c, err)
		return
	}

	s.limiter.RecordSuccess(c.ClientIP())
	s.recordLogin("success")
	s.transport.Write(c, token)
	c.JSON(http.StatusOK, sessionResponse{
		Account: toAccountResponse(acct),
		Token:   token,
	})
}

// handleLogout clears the client's copy of the token. Tokens are
// stateless, so the server has nothing to revoke; the session simply
// ages out at its expiry.
func (s *Server) handleLogout(c *gin.Context) {
	s.transport.Clear(c)
	c.JSON(http.StatusOK, gin.H{
		"message": "logged out",
	})
}

// handleForgotPassword always answers 200. Unknown emails and federated
// accounts get the same response as a successful request so the endpoint
// cannot be used to probe for registered addresses.
func (s *Server) handleForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, []FieldError{{Field: "body", Message: "request body must be valid JSON"}})
		return
	}
	if fieldErrs := req.validate(); len(fieldErrs) > 0 {
		writeValidationError(c, fieldErrs)
		return
	}

	if err := s.resets.RequestReset(c.Request.Context(), req.Email); err != nil {
		s.recordReset("request", "error")
		s.writeError(c, err)
		return
	}

	s.recordReset("request", "accepted")
	c.JSON(http.StatusOK, gin.H{
		"message": "if the address is registered, a reset link has been sent",
	})
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, []FieldError{{Field: "body", Message: "request body must be valid JSON"}})
		return
	}
	if fieldErrs := req.validate(); len(fieldErrs) > 0 {
		writeValidationError(c, fieldErrs)
		return
	}

	if err := s.resets.ConsumeReset(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		s.recordReset("consume", resetOutcome(err))
		s.writeError(c, err)
		return
	}

	s.recordReset("consume", "success")
	c.JSON(http.StatusOK, gin.H{
		"message": "password updated",
	})
}

func (s *Server) handleGetProfile(c *gin.Context) {
	acct := currentAccount(c)

	// Re-read so the response reflects the latest stored state, not the
	// snapshot the middleware resolved.
	fresh, err := s.auth.GetProfile(c.Request.Context(), acct.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(fresh))
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	acct := currentAccount(c)

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, []FieldError{{Field: "body", Message: "request body must be valid JSON"}})
		return
	}
	if fieldErrs := req.validate(); len(fieldErrs) > 0 {
		writeValidationError(c, fieldErrs)
		return
	}

	updated, err := s.auth.UpdateProfile(c.Request.Context(), acct.ID, auth.UpdateProfileInput{
		DisplayName: req.DisplayName,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		Password:    req.Password,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(updated))
}
