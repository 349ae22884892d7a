// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package models

import "time"

// ResponseStatus classifies the outcome of a pipeline run.
type ResponseStatus string

const (
	StatusSuccess          ResponseStatus = "success"
	StatusLLMError         ResponseStatus = "llm_error"
	StatusValidationFailed ResponseStatus = "validation_failed"
	StatusDenied           ResponseStatus = "denied"
	StatusError            ResponseStatus = "error"
)

// Insight is one categorized observation extracted from the narrative.
type Insight struct {
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Recommendation is one actionable suggestion extracted from the narrative.
type Recommendation struct {
	Action      string `json:"action"`
	Description string `json:"description"`
}

// ScopeMetadata reports the effective access perimeter a response was
// computed under.
type ScopeMetadata struct {
	TimeRange      *TimeRange `json:"time_range,omitempty"`
	AccountIDs     []string   `json:"account_ids,omitempty"`
	OrganizationID string     `json:"organization_id,omitempty"`
}

// ResponseMetadata is the metadata block of the response envelope.
type ResponseMetadata struct {
	QueryID               string         `json:"query_id"`
	DataSource            DataSourceName `json:"data_source,omitempty"`
	ExecutionTimeMS       int64          `json:"execution_time_ms"`
	RowCount              int            `json:"row_count"`
	TotalCost             float64        `json:"total_cost"`
	ARNFallback           bool           `json:"arn_fallback"`
	OriginalARN           string         `json:"original_arn,omitempty"`
	CostExplorerFallback  bool           `json:"cost_explorer_fallback"`
	Scope                 *ScopeMetadata `json:"scope,omitempty"`
	AccountFilterEnforced bool           `json:"account_filter_enforced,omitempty"`
	DrilledDown           bool           `json:"drilled_down,omitempty"`
	Error                 string         `json:"error,omitempty"`
}

// ConversationContext is the caller-owned turn state. It is consumed at
// the start of a pipeline run and a new value is returned with the
// response; the caller supplies it verbatim on the next turn.
type ConversationContext struct {
	LastQuery           string     `json:"last_query,omitempty"`
	LastSQL             string     `json:"last_sql,omitempty"`
	LastService         string     `json:"last_service,omitempty"`
	LastQueryType       string     `json:"last_query_type,omitempty"`
	TimeRange           *TimeRange `json:"time_range,omitempty"`
	LastShownTopItems   []string   `json:"last_shown_top_items,omitempty"`
	LastHiddenItems     []string   `json:"last_hidden_items,omitempty"`
	LastChartAggregated bool       `json:"last_chart_aggregated,omitempty"`
}

// UnifiedResponse is the final frontend contract.
type UnifiedResponse struct {
	Status          ResponseStatus       `json:"status"`
	Summary         string               `json:"summary"`
	Message         string               `json:"message"`
	Insights        []Insight            `json:"insights"`
	Recommendations []Recommendation     `json:"recommendations"`
	Results         []Row                `json:"results"`
	Charts          []Chart              `json:"charts"`
	Suggestions     []string             `json:"suggestions"`
	AthenaQuery     *string              `json:"athena_query"`
	Metadata        ResponseMetadata     `json:"metadata"`
	Context         *ConversationContext `json:"context,omitempty"`
}

// APIResponse is the generic HTTP envelope used by non-query endpoints.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata APIMetadata `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// APIMetadata carries per-response observability fields.
type APIMetadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the structured error body shared by all endpoints.
//
// Common codes: VALIDATION_ERROR, AUTHENTICATION_ERROR, AUTHORIZATION_ERROR,
// RATE_LIMIT_EXCEEDED, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
