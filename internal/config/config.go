// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package config loads and validates application configuration using
// Koanf v2 with layered sources: built-in defaults, an optional YAML
// config file, and environment variables (highest precedence).
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	AWS      AWSConfig      `koanf:"aws"`
	LLM      LLMConfig      `koanf:"llm"`
	Resolver ResolverConfig `koanf:"resolver"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// AWSConfig carries the CUR dataset location and Athena execution settings.
type AWSConfig struct {
	Region string `koanf:"region"`

	// CURDatabase and CURTable name the Glue database and table the
	// engine queries. CURTable is the only real table the SQL validator
	// admits.
	CURDatabase string `koanf:"cur_database"`
	CURTable    string `koanf:"cur_table"`

	// AthenaOutputLocation is the S3 prefix for query results.
	AthenaOutputLocation string `koanf:"athena_output_location"`

	// PollInterval and MaxPollAttempts bound the poll-until-complete loop.
	PollInterval    time.Duration `koanf:"poll_interval"`
	MaxPollAttempts int           `koanf:"max_poll_attempts"`

	// MaxPageRows caps rows requested per GetQueryResults page.
	MaxPageRows int32 `koanf:"max_page_rows"`

	// CostExplorerFallback enables the cross-source fallback data source.
	CostExplorerFallback bool `koanf:"cost_explorer_fallback"`
}

// LLMConfig configures the text-to-SQL model provider.
type LLMConfig struct {
	BaseURL   string        `koanf:"base_url"`
	APIKey    string        `koanf:"api_key"`
	Model     string        `koanf:"model"`
	MaxTokens int           `koanf:"max_tokens"`
	Timeout   time.Duration `koanf:"timeout"`

	// Breaker settings for the circuit breaker wrapping LLM calls.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerOpenTimeout time.Duration `koanf:"breaker_open_timeout"`
}

// ResolverConfig tunes the service-name resolver.
type ResolverConfig struct {
	// FuzzyThreshold is the minimum 0-100 score a fuzzy match must reach.
	FuzzyThreshold float64 `koanf:"fuzzy_threshold"`
	// AmbiguityMargin is the minimum lead over the runner-up before a
	// fuzzy match is trusted without clarification.
	AmbiguityMargin float64 `koanf:"ambiguity_margin"`
	// ProductCodeRefresh bounds how often the distinct product-code set
	// is reloaded from the CUR table.
	ProductCodeRefresh time.Duration `koanf:"product_code_refresh"`
	// ArbitrationCacheTTL bounds the per-phrase LLM arbitration cache.
	ArbitrationCacheTTL time.Duration `koanf:"arbitration_cache_ttl"`
}

// SecurityConfig controls authentication and API protection.
type SecurityConfig struct {
	JWTSecret       string        `koanf:"jwt_secret"`
	SessionTimeout  time.Duration `koanf:"session_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config for koanf binding.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. Defaults are
// loaded first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8488,
			Timeout:     60 * time.Second,
			Environment: "development",
		},
		AWS: AWSConfig{
			Region:               "us-east-1",
			CURDatabase:          "cur_database",
			CURTable:             "cur_daily",
			AthenaOutputLocation: "",
			PollInterval:         1 * time.Second,
			MaxPollAttempts:      30,
			MaxPageRows:          1000,
			CostExplorerFallback: true,
		},
		LLM: LLMConfig{
			BaseURL:            "",
			APIKey:             "",
			Model:              "gpt-4o",
			MaxTokens:          12000,
			Timeout:            60 * time.Second,
			BreakerMaxFailures: 5,
			BreakerOpenTimeout: 30 * time.Second,
		},
		Resolver: ResolverConfig{
			FuzzyThreshold:      80,
			AmbiguityMargin:     3,
			ProductCodeRefresh:  6 * time.Hour,
			ArbitrationCacheTTL: 6 * time.Hour,
		},
		Security: SecurityConfig{
			JWTSecret:       "",
			SessionTimeout:  24 * time.Hour,
			RateLimitReqs:   60,
			RateLimitWindow: 1 * time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.AWS.CURDatabase == "" {
		problems = append(problems, "aws.cur_database is required")
	}
	if c.AWS.CURTable == "" {
		problems = append(problems, "aws.cur_table is required")
	}
	if c.AWS.AthenaOutputLocation != "" && !strings.HasPrefix(c.AWS.AthenaOutputLocation, "s3://") {
		problems = append(problems, "aws.athena_output_location must be an s3:// URI")
	}
	if c.AWS.MaxPollAttempts < 1 {
		problems = append(problems, "aws.max_poll_attempts must be at least 1")
	}
	if c.Resolver.FuzzyThreshold < 0 || c.Resolver.FuzzyThreshold > 100 {
		problems = append(problems, "resolver.fuzzy_threshold must be in [0,100]")
	}
	if c.Server.Environment == "production" && c.Security.JWTSecret == "" {
		problems = append(problems, "security.jwt_secret is required in production")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// IsProduction reports whether the server runs with production checks.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}
