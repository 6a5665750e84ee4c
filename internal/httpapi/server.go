// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package httpapi exposes the credential and profile operations over
// HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// Server serves the public API.
type Server struct {
	addr      string
	auth      *auth.Service
	resets    *auth.ResetService
	limiter   *auth.AttemptLimiter
	transport TokenTransport
	metrics   *observability.Metrics
	logger    *slog.Logger

	engine     *gin.Engine
	listener   net.Listener
	httpServer *http.Server
}

// Options configures a Server. Metrics may be nil; everything else is
// required.
type Options struct {
	Addr      string
	Auth      *auth.Service
	Resets    *auth.ResetService
	Limiter   *auth.AttemptLimiter
	Transport TokenTransport
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

// NewServer creates the API server and registers its routes.
func NewServer(opts Options) (*Server, error) {
	if opts.Auth == nil || opts.Resets == nil {
		return nil, oops.Code("HTTPAPI_NIL_DEPENDENCY").Errorf("auth and reset services are required")
	}
	if opts.Transport == nil {
		opts.Transport = BearerTransport{}
	}
	if opts.Limiter == nil {
		opts.Limiter = auth.NewAttemptLimiter()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		addr:      opts.Addr,
		auth:      opts.Auth,
		resets:    opts.Resets,
		limiter:   opts.Limiter,
		transport: opts.Transport,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger(), s.observe())

	authGroup := engine.Group("/auth")
	authGroup.POST("/register", s.handleRegister)
	authGroup.POST("/login", s.rateLimitLogin(), s.handleLogin)
	authGroup.GET("/logout", s.handleLogout)
	authGroup.POST("/logout", s.handleLogout)
	authGroup.POST("/forgot-password", s.rateLimitLogin(), s.handleForgotPassword)
	authGroup.POST("/reset-password/:token", s.handleResetPassword)

	profile := engine.Group("/profile", s.RequireAuth())
	profile.GET("", s.handleGetProfile)
	profile.PUT("", s.handleUpdateProfile)

	s.engine = engine
	return s, nil
}

// Handler returns the underlying HTTP handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving the API. It returns an error channel that
// receives any error from the HTTP server after startup; the channel is
// closed on graceful shutdown.
func (s *Server) Start() (<-chan error, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errutil.LogError(s.logger, "api server error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return oops.With("operation", "shutdown api server").Wrap(err)
	}
	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on, or empty if it
// is not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) recordLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) recordRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) recordReset(phase, outcome string) {
	if s.metrics != nil {
		s.metrics.PasswordResetsTotal.WithLabelValues(phase, outcome).Inc()
	}
}

func loginOutcome(err error) string {
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return "invalid_credentials"
	}
	return "error"
}

func registrationOutcome(err error) string {
	switch {
	case errors.Is(err, account.ErrDuplicateEmail), errors.Is(err, account.ErrDuplicateExternalID):
		return "duplicate"
	case errutil.Code(err) == "AUTH_PASSWORD_POLICY":
		return "invalid"
	default:
		return "error"
	}
}

func resetOutcome(err error) string {
	switch {
	case errors.Is(err, auth.ErrResetTokenInvalid):
		return "invalid_token"
	case errutil.Code(err) == "AUTH_PASSWORD_POLICY":
		return "invalid"
	default:
		return "error"
	}
}
