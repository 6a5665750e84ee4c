// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads service configuration from defaults, an optional
// YAML file, and command-line flags, in increasing precedence.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Default values for service configuration.
const (
	DefaultListenAddr   = "127.0.0.1:8080"
	DefaultMetricsAddr  = "127.0.0.1:9100"
	DefaultLogFormat    = "json"
	DefaultTokenTTL     = 24 * time.Hour
	DefaultResetTTL     = 15 * time.Minute
	DefaultResetURLBase = "http://localhost:8080/reset?token="
	DefaultSMTPPort     = 587
)

// Config holds the full service configuration.
type Config struct {
	ListenAddr  string `koanf:"listen_addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	DatabaseURL string `koanf:"database_url"`
	LogFormat   string `koanf:"log_format"`

	Token TokenConfig `koanf:"token"`
	Reset ResetConfig `koanf:"reset"`
	SMTP  SMTPConfig  `koanf:"smtp"`
}

// TokenConfig configures session token issuance.
type TokenConfig struct {
	// Secret signs session tokens. Rotating it invalidates every
	// outstanding session.
	Secret string `koanf:"secret"`

	TTL time.Duration `koanf:"ttl"`

	// Transport selects how tokens travel: "bearer" or "cookie".
	Transport string `koanf:"transport"`
}

// ResetConfig configures the password reset flow.
type ResetConfig struct {
	TokenTTL time.Duration `koanf:"token_ttl"`

	// URLBase is prepended to the raw token to form the emailed link.
	URLBase string `koanf:"url_base"`
}

// SMTPConfig configures outbound email.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	StartTLS bool   `koanf:"starttls"`
}

// Default returns a Config populated with default values. The token
// secret and database URL have no defaults and must be provided.
func Default() Config {
	return Config{
		ListenAddr:  DefaultListenAddr,
		MetricsAddr: DefaultMetricsAddr,
		LogFormat:   DefaultLogFormat,
		Token: TokenConfig{
			TTL:       DefaultTokenTTL,
			Transport: "bearer",
		},
		Reset: ResetConfig{
			TokenTTL: DefaultResetTTL,
			URLBase:  DefaultResetURLBase,
		},
		SMTP: SMTPConfig{
			Port: DefaultSMTPPort,
		},
	}
}

// Load builds a Config by layering an optional YAML file and the given
// flag set over the defaults. Flags win over the file; the file wins
// over defaults. A missing file is an error only when the path was set
// explicitly.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_MISSING").
				With("path", path).
				Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_INVALID").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	// Secrets come from the environment when not set another way.
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.Token.Secret == "" {
		cfg.Token.Secret = os.Getenv("GATEHOUSE_TOKEN_SECRET")
	}
	if cfg.SMTP.Password == "" {
		cfg.SMTP.Password = os.Getenv("GATEHOUSE_SMTP_PASSWORD")
	}

	return cfg, nil
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen_addr is required")
	}
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required (flag, file, or DATABASE_URL)")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.LogFormat).
			Errorf("log_format must be 'json' or 'text'")
	}
	if c.Token.Secret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("token.secret is required (file or GATEHOUSE_TOKEN_SECRET)")
	}
	if c.Token.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("token_ttl", c.Token.TTL.String()).
			Errorf("token.ttl must be positive")
	}
	if c.Token.Transport != "bearer" && c.Token.Transport != "cookie" {
		return oops.Code("CONFIG_INVALID").
			With("token_transport", c.Token.Transport).
			Errorf("token.transport must be 'bearer' or 'cookie'")
	}
	if c.Reset.TokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("reset_token_ttl", c.Reset.TokenTTL.String()).
			Errorf("reset.token_ttl must be positive")
	}
	if c.Reset.URLBase == "" {
		return oops.Code("CONFIG_INVALID").Errorf("reset.url_base is required")
	}
	return nil
}
