// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	return c, rec
}

func TestBearerTransport_Extract(t *testing.T) {
	transport := BearerTransport{}

	t.Run("well-formed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		req.Header.Set("Authorization", "Bearer abc.def.ghi")
		c, _ := newTestContext(t, req)
		assert.Equal(t, "abc.def.ghi", transport.Extract(c))
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		c, _ := newTestContext(t, req)
		assert.Empty(t, transport.Extract(c))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		c, _ := newTestContext(t, req)
		assert.Empty(t, transport.Extract(c))
	})
}

func TestCookieTransport(t *testing.T) {
	transport := CookieTransport{TTL: time.Hour}

	t.Run("write then extract round-trips", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		c, rec := newTestContext(t, req)
		transport.Write(c, "session-token")

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		cookie := cookies[0]
		assert.Equal(t, SessionCookieName, cookie.Name)
		assert.Equal(t, "session-token", cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, 3600, cookie.MaxAge)

		// Feed the cookie back as a client would
		req2 := httptest.NewRequest(http.MethodGet, "/profile", nil)
		req2.AddCookie(cookie)
		c2, _ := newTestContext(t, req2)
		assert.Equal(t, "session-token", transport.Extract(c2))
	})

	t.Run("clear expires the cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		c, rec := newTestContext(t, req)
		transport.Clear(c)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, SessionCookieName, cookies[0].Name)
		assert.Empty(t, cookies[0].Value)
		assert.Negative(t, cookies[0].MaxAge)
	})

	t.Run("extract without cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		c, _ := newTestContext(t, req)
		assert.Empty(t, transport.Extract(c))
	})
}
