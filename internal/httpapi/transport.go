// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookieName is the cookie holding the session token when the
// cookie transport is active.
const SessionCookieName = "gatehouse_token"

// TokenTransport moves the session token between the service and its
// clients. The session itself is stateless; only the carrier differs.
type TokenTransport interface {
	// Extract returns the token from an incoming request, or "".
	Extract(c *gin.Context) string

	// Write attaches a freshly issued token to the response.
	Write(c *gin.Context, token string)

	// Clear invalidates the client's copy of the token on logout.
	Clear(c *gin.Context)
}

// BearerTransport carries the token in the Authorization header. Write
// puts the token in the response body via the handler, so Write and
// Clear are no-ops here.
type BearerTransport struct{}

func (BearerTransport) Extract(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func (BearerTransport) Write(*gin.Context, string) {}

func (BearerTransport) Clear(*gin.Context) {}

// CookieTransport carries the token in an HttpOnly cookie. Browsers
// then send it automatically and scripts cannot read it.
type CookieTransport struct {
	// TTL bounds the cookie lifetime; it should match the token TTL.
	TTL time.Duration

	// Secure restricts the cookie to HTTPS. Leave false only for local
	// development.
	Secure bool
}

func (t CookieTransport) Extract(c *gin.Context) string {
	token, err := c.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return token
}

func (t CookieTransport) Write(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, int(t.TTL.Seconds()), "/", "", t.Secure, true)
}

func (t CookieTransport) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", t.Secure, true)
}

var (
	_ TokenTransport = BearerTransport{}
	_ TokenTransport = CookieTransport{}
)
