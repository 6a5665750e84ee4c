// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/account/postgres"
	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/httpapi"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/mail"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/store"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server, serving registration, login, password
recovery, and profile endpoints, plus a separate metrics listener.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}

	cmd.Flags().String("listen_addr", config.DefaultListenAddr, "API listen address")
	cmd.Flags().String("metrics_addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database_url", "", "PostgreSQL connection URL")
	cmd.Flags().String("log_format", config.DefaultLogFormat, "log format (json or text)")
	cmd.Flags().String("token.transport", "bearer", "session token transport (bearer or cookie)")
	cmd.Flags().String("reset.url_base", config.DefaultResetURLBase, "base URL for emailed reset links")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetDefault("gatehouse", version, cfg.LogFormat)
	logger := slog.Default()

	logger.Info("starting gatehouse",
		"listen_addr", cfg.ListenAddr,
		"metrics_addr", cfg.MetricsAddr,
		"token_transport", cfg.Token.Transport,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	accounts := postgres.NewAccountRepository(pool)

	hasher, err := auth.NewArgon2idHasher(auth.DefaultArgon2Params())
	if err != nil {
		return fmt.Errorf("failed to create password hasher: %w", err)
	}

	tokens, err := auth.NewTokenIssuer([]byte(cfg.Token.Secret), cfg.Token.TTL)
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	policy := auth.DefaultPasswordPolicy()

	authSvc, err := auth.NewService(accounts, hasher, tokens, policy)
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		StartTLS: cfg.SMTP.StartTLS,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create mailer: %w", err)
	}

	resetSvc, err := auth.NewResetService(accounts, hasher, mailer, policy,
		cfg.Reset.TokenTTL, cfg.Reset.URLBase, logger)
	if err != nil {
		return fmt.Errorf("failed to create reset service: %w", err)
	}

	var ready atomic.Bool
	var obsErrCh <-chan error
	var obsServer *observability.Server
	var metrics *observability.Metrics

	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, ready.Load)
		obsErrCh, err = obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		metrics = obsServer.Metrics()
	}

	var transport httpapi.TokenTransport = httpapi.BearerTransport{}
	if cfg.Token.Transport == "cookie" {
		transport = httpapi.CookieTransport{TTL: cfg.Token.TTL}
	}

	apiServer, err := httpapi.NewServer(httpapi.Options{
		Addr:      cfg.ListenAddr,
		Auth:      authSvc,
		Resets:    resetSvc,
		Limiter:   auth.NewAttemptLimiter(),
		Transport: transport,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create api server: %w", err)
	}

	apiErrCh, err := apiServer.Start()
	if err != nil {
		return fmt.Errorf("failed to start api server: %w", err)
	}
	ready.Store(true)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr := <-apiErrCh:
		if serveErr != nil {
			return fmt.Errorf("api server failed: %w", serveErr)
		}
	// A nil obsErrCh blocks forever, which is what a disabled metrics
	// listener should do.
	case obsErr := <-obsErrCh:
		if obsErr != nil {
			return fmt.Errorf("observability server failed: %w", obsErr)
		}
	}

	ready.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Error("observability server shutdown failed", "error", err)
		}
	}

	logger.Info("gatehouse stopped")
	return nil
}
