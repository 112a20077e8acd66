// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package passkey

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultOrigin is the single safe origin used when no allow-list is
// configured. An empty allow-list must never mean "accept anything".
const DefaultOrigin = "http://localhost:5173"

// Config configures the passkey subsystem.
type Config struct {
	// RPID is an explicit Relying Party identifier override. When empty,
	// the RP ID is derived from the inbound request host, falling back to
	// FallbackRPID.
	RPID string `yaml:"rp_id" json:"rp_id" mapstructure:"rp_id"`

	// RPDisplayName is the human-readable Relying Party name shown in
	// authenticator prompts.
	RPDisplayName string `yaml:"rp_display_name" json:"rp_display_name" mapstructure:"rp_display_name"`

	// FallbackRPID is used when neither an override nor a request host is
	// available.
	FallbackRPID string `yaml:"fallback_rp_id" json:"fallback_rp_id" mapstructure:"fallback_rp_id"`

	// AllowedOrigins is the explicit origin allow-list. The origin derived
	// from the current request host is always added to it. When empty,
	// DefaultOrigin is used instead.
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" mapstructure:"allowed_origins"`

	// ChallengeTTL is how long an issued challenge stays acceptable.
	// Default: 5 minutes.
	ChallengeTTL time.Duration `yaml:"challenge_ttl" json:"challenge_ttl" mapstructure:"challenge_ttl"`

	// StoreTimeout bounds every credential/challenge storage call.
	// Default: 8 seconds.
	StoreTimeout time.Duration `yaml:"store_timeout" json:"store_timeout" mapstructure:"store_timeout"`

	// BeginTimeout bounds a whole Begin step. Default: 7 seconds.
	BeginTimeout time.Duration `yaml:"begin_timeout" json:"begin_timeout" mapstructure:"begin_timeout"`

	// VerifyTimeout bounds a verification library call. Default: 5 seconds.
	VerifyTimeout time.Duration `yaml:"verify_timeout" json:"verify_timeout" mapstructure:"verify_timeout"`
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.RPDisplayName == "" {
		return fmt.Errorf("RPDisplayName is required")
	}
	if c.RPID == "" && c.FallbackRPID == "" {
		return fmt.Errorf("one of RPID or FallbackRPID is required")
	}
	for _, origin := range c.AllowedOrigins {
		if !strings.Contains(origin, "://") {
			return fmt.Errorf("invalid origin %q: missing scheme", origin)
		}
	}
	if c.ChallengeTTL < 0 || c.StoreTimeout < 0 || c.BeginTimeout < 0 || c.VerifyTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// SetDefaults sets default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.ChallengeTTL == 0 {
		c.ChallengeTTL = 5 * time.Minute
	}
	if c.StoreTimeout == 0 {
		c.StoreTimeout = 8 * time.Second
	}
	if c.BeginTimeout == 0 {
		c.BeginTimeout = 7 * time.Second
	}
	if c.VerifyTimeout == 0 {
		c.VerifyTimeout = 5 * time.Second
	}
}

// LoadConfig reads a Config from the given file, with PASSKEY_* environment
// variables taking precedence over file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("PASSKEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env-only keys to Unmarshal; each
	// key must be bound for PASSKEY_* to override keys the file omits.
	for _, key := range []string{
		"rp_id", "rp_display_name", "fallback_rp_id", "allowed_origins",
		"challenge_ttl", "store_timeout", "begin_timeout", "verify_timeout",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
