// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package main is the entry point for the Costlens server.
//
// Costlens answers natural-language questions about AWS spend by
// translating them to validated Athena SQL over the Cost and Usage
// Report, with tenant account scoping enforced on every query.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered sources (defaults, YAML, env)
//  2. Logging: zerolog structured logging with request correlation
//  3. AWS clients: Athena and Cost Explorer with adaptive retry
//  4. LLM client: OpenAI-compatible provider behind a circuit breaker
//  5. Pipeline: SQL generator, orchestrator, drill-down, formatter
//  6. HTTP server: chi router with JWT auth, rate limiting, metrics
//
// # Configuration
//
// Key environment variables (see internal/config):
//   - AWS_REGION, AWS_CUR_DATABASE, AWS_CUR_TABLE, ATHENA_OUTPUT_LOCATION
//   - LLM_API_KEY (and COSTLENS_LLM_BASE_URL for compatible providers)
//   - JWT_SECRET: 32+ character secret for token signing
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections and waits up to 10 seconds for in-flight
// queries to complete.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsathena "github.com/aws/aws-sdk-go-v2/service/athena"
	awsce "github.com/aws/aws-sdk-go-v2/service/costexplorer"

	"github.com/costlens/costlens/internal/api"
	"github.com/costlens/costlens/internal/athena"
	"github.com/costlens/costlens/internal/auth"
	"github.com/costlens/costlens/internal/config"
	"github.com/costlens/costlens/internal/costexplorer"
	"github.com/costlens/costlens/internal/datasource"
	"github.com/costlens/costlens/internal/llm"
	"github.com/costlens/costlens/internal/logging"
	"github.com/costlens/costlens/internal/orchestrator"
	"github.com/costlens/costlens/internal/pipeline"
	"github.com/costlens/costlens/internal/resolver"
	"github.com/costlens/costlens/internal/sqlguard"
	"github.com/costlens/costlens/internal/texttosql"
	"github.com/costlens/costlens/internal/timerange"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "costlens: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("cur_table", cfg.AWS.CURTable).
		Msg("Starting Costlens")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWS.Region),
		awsconfig.WithRetryMode(aws.RetryModeAdaptive),
	)
	if err != nil {
		return fmt.Errorf("loading AWS configuration: %w", err)
	}

	guard := sqlguard.New(cfg.AWS.CURTable)
	driver := athena.New(awsathena.NewFromConfig(awsCfg), athena.Config{
		Database:        cfg.AWS.CURDatabase,
		Table:           cfg.AWS.CURTable,
		OutputLocation:  cfg.AWS.AthenaOutputLocation,
		PollInterval:    cfg.AWS.PollInterval,
		MaxPollAttempts: cfg.AWS.MaxPollAttempts,
		MaxPageRows:     cfg.AWS.MaxPageRows,
	}, guard)

	var fallback datasource.DataSource
	if cfg.AWS.CostExplorerFallback {
		fallback = costexplorer.New(awsce.NewFromConfig(awsCfg))
	}

	llmClient := llm.NewOpenAIClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
		MaxFailures: cfg.LLM.BreakerMaxFailures,
		OpenTimeout: cfg.LLM.BreakerOpenTimeout,
	})

	services := resolver.New(resolver.Config{
		FuzzyThreshold:  cfg.Resolver.FuzzyThreshold,
		AmbiguityMargin: cfg.Resolver.AmbiguityMargin,
		RefreshInterval: cfg.Resolver.ProductCodeRefresh,
		ArbitrationTTL:  cfg.Resolver.ArbitrationCacheTTL,
	}, driver, llmClient)

	generator := texttosql.New(llmClient, guard, cfg.AWS.CURTable, cfg.LLM.MaxTokens)
	orch := orchestrator.New(driver, fallback)
	drill := orchestrator.NewDrillDown(driver)
	engine := pipeline.New(generator, orch, drill, timerange.New(), services)

	jwtManager, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)
	if err != nil {
		return fmt.Errorf("initializing JWT manager: %w", err)
	}

	handler := api.NewHandler(engine, services, cfg)
	router := api.NewRouter(handler, jwtManager, cfg)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logging.Info().Msg("Server stopped")
	return nil
}
