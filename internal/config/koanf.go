// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/costlens/config.yaml",
	"/etc/costlens/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables: override any setting
//
// Precedence: ENV > file > defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// COSTLENS_AWS_CUR_TABLE -> aws.cur_table, plus legacy un-prefixed
	// names of record (AWS_REGION, ATHENA_OUTPUT_LOCATION, AWS_CUR_DATABASE,
	// AWS_CUR_TABLE, LLM_API_KEY, JWT_SECRET).
	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// legacyEnvVars maps the environment variables of record to koanf paths.
var legacyEnvVars = map[string]string{
	"AWS_REGION":             "aws.region",
	"AWS_CUR_DATABASE":       "aws.cur_database",
	"AWS_CUR_TABLE":          "aws.cur_table",
	"ATHENA_OUTPUT_LOCATION": "aws.athena_output_location",
	"LLM_API_KEY":            "llm.api_key",
	"LLM_BASE_URL":           "llm.base_url",
	"LLM_MODEL":              "llm.model",
	"JWT_SECRET":             "security.jwt_secret",
	"LOG_LEVEL":              "logging.level",
	"LOG_FORMAT":             "logging.format",
}

// envTransform maps environment variable names to koanf paths.
// COSTLENS_SERVER_PORT -> server.port; unknown variables map to "" and
// are dropped.
func envTransform(key string) string {
	if path, ok := legacyEnvVars[key]; ok {
		return path
	}
	if !strings.HasPrefix(key, "COSTLENS_") {
		return ""
	}
	trimmed := strings.TrimPrefix(key, "COSTLENS_")
	parts := strings.SplitN(trimmed, "_", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.ToLower(parts[0]) + "." + strings.ToLower(parts[1])
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
