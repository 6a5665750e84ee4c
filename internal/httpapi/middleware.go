// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gatehouse/gatehouse/internal/account"
)

// accountContextKey is the gin context key under which RequireAuth stores
// the authenticated account.
const accountContextKey = "gatehouse.account"

// RequireAuth authenticates the request's session token and stores the
// resolved account in the request context. Requests without a valid
// token are rejected before the handler runs.
func (s *Server) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.transport.Extract(c)
		acct, err := s.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.Set(accountContextKey, acct)
		c.Next()
	}
}

// currentAccount returns the account stored by RequireAuth. It panics if
// the middleware did not run; routes using it must be registered behind
// RequireAuth.
func currentAccount(c *gin.Context) *account.Account {
	return c.MustGet(accountContextKey).(*account.Account)
}

// rateLimitLogin rejects requests from keys that are locked out and
// surfaces the progressive delay as a Retry-After header.
func (s *Server) rateLimitLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		result := s.limiter.Check(c.ClientIP())
		if result.IsLockedOut {
			c.Header("Retry-After", strconv.Itoa(int(result.LockoutRemaining.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
				Code:    "locked_out",
				Message: "too many failed attempts, try again later",
			})
			return
		}
		if result.Delay > 0 {
			c.Header("Retry-After", strconv.Itoa(int(result.Delay.Seconds())+1))
		}
		c.Next()
	}
}

// observe records latency and status for every request. Route templates
// keep the label cardinality bounded.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// requestLogger logs each request at INFO with method, route, status and
// duration. It logs the route template, never the raw URL path: the
// reset-password path carries the raw token as a segment.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.logger.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}
