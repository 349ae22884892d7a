// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package metrics exposes Prometheus instrumentation for the query
// pipeline: LLM calls, Athena execution, service resolution, scope
// enforcement, and API latency. All metrics are registered at package
// load via promauto.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_query_duration_seconds",
			Help:    "End-to-end duration of natural-language query pipeline runs",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"intent", "status"},
	)

	PipelineQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_queries_total",
			Help: "Total number of pipeline runs by final status",
		},
		[]string{"status"},
	)

	// LLM metrics

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "Duration of LLM invocations",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"purpose"}, // "text_to_sql", "service_arbitration"
	)

	LLMCallErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_call_errors_total",
			Help: "Total number of failed LLM invocations",
		},
		[]string{"purpose", "error_type"},
	)

	LLMParseOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_response_parse_outcomes_total",
			Help: "Tolerant JSON parsing outcomes by pass that succeeded",
		},
		[]string{"pass"}, // "direct", "sanitized", "salvaged", "failed"
	)

	// Athena metrics

	AthenaQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "athena_query_duration_seconds",
			Help:    "Duration of Athena query execution including polling",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 15, 30, 60},
		},
		[]string{"state"}, // SUCCEEDED, FAILED, CANCELLED, TIMEOUT
	)

	AthenaQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "athena_query_errors_total",
			Help: "Total number of Athena query failures by classification",
		},
		[]string{"error_type"}, // column_not_found, syntax_error, permission, timeout, generic
	)

	AthenaRowsFetched = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "athena_rows_fetched",
			Help:    "Rows fetched per Athena query across all result pages",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		},
	)

	// SQL guard metrics

	SQLValidationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sql_validation_rejections_total",
			Help: "SQL statements rejected by the validator",
		},
		[]string{"rule"},
	)

	ScopeEnforcementTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scope_enforcement_total",
			Help: "Account-scope enforcement outcomes on generated SQL",
		},
		[]string{"outcome"}, // "injected", "already_scoped", "denied", "empty_allowlist"
	)

	// Service resolver metrics

	ResolverResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "service_resolver_resolutions_total",
			Help: "Service-phrase resolutions by method",
		},
		[]string{"method"}, // dict, fuzzy, llm, ambiguous, fallback
	)

	ResolverCacheRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "service_resolver_cache_refreshes_total",
			Help: "Product-code cache refreshes against the CUR table",
		},
	)

	// Fallback metrics

	ARNFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arn_fallbacks_total",
			Help: "ARN empty-result rescues into related-resource discovery",
		},
	)

	CostExplorerFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cost_explorer_fallbacks_total",
			Help: "Cross-source fallbacks to the Cost Explorer data source",
		},
	)

	DrillDownsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auto_drilldowns_total",
			Help: "Automatic single-row drill-down attempts",
		},
		[]string{"outcome"}, // "replaced", "kept_original", "failed"
	)

	// API metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)
)

// ObservePipeline records a completed pipeline run.
func ObservePipeline(intent, status string, start time.Time) {
	PipelineDuration.WithLabelValues(intent, status).Observe(time.Since(start).Seconds())
	PipelineQueriesTotal.WithLabelValues(status).Inc()
}
