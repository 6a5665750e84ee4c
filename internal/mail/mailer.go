// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package mail delivers transactional email over SMTP.
package mail

import (
	"context"
	"embed"
	"html/template"
	"log/slog"

	"github.com/samber/oops"
	gomail "github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// StartTLS upgrades the connection when the server offers it. Plain
	// connections are still allowed for local development relays.
	StartTLS bool
}

// SMTPMailer sends account email through an SMTP relay.
type SMTPMailer struct {
	client    *gomail.Client
	from      string
	resetTmpl *template.Template
	logger    *slog.Logger
}

// NewSMTPMailer creates a mailer from SMTP settings. It does not dial;
// the connection is established per send.
func NewSMTPMailer(cfg Config, logger *slog.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("from address is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	if cfg.StartTLS {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, oops.Code("MAIL_CLIENT_FAILED").
			With("host", cfg.Host).
			Wrap(err)
	}

	resetTmpl, err := template.ParseFS(templateFS, "templates/password_reset.html")
	if err != nil {
		return nil, oops.Code("MAIL_TEMPLATE_FAILED").Wrap(err)
	}

	return &SMTPMailer{
		client:    client,
		from:      cfg.From,
		resetTmpl: resetTmpl,
		logger:    logger,
	}, nil
}

type resetEmailData struct {
	ResetURL string
}

// SendPasswordReset emails a single-use reset link. The link is the only
// place the raw token appears.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("operation", "set from").Wrap(err)
	}
	if err := msg.To(email); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("operation", "set to").Wrap(err)
	}
	msg.Subject("Reset your password")

	if err := msg.SetBodyHTMLTemplate(m.resetTmpl, resetEmailData{ResetURL: resetURL}); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("operation", "render template").Wrap(err)
	}
	msg.AddAlternativeString(gomail.TypeTextPlain,
		"A password reset was requested for your account.\n\n"+
			"Open this link to choose a new password:\n\n"+resetURL+"\n\n"+
			"The link expires shortly and can be used once. If you did not "+
			"request a reset, you can ignore this message.\n")

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("operation", "dial and send").
			Wrap(err)
	}

	m.logger.InfoContext(ctx, "password reset email sent")
	return nil
}
