// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package models

import (
	"github.com/google/uuid"
)

// Intent classifies what the user is asking for. It drives chart
// recommendation, orchestrator defaults, and summary phrasing.
type Intent string

const (
	IntentCostBreakdown   Intent = "cost_breakdown"
	IntentTopNRanking     Intent = "top_n_ranking"
	IntentCostTrend       Intent = "cost_trend"
	IntentComparative     Intent = "comparative"
	IntentAnomalyAnalysis Intent = "anomaly_analysis"
	IntentOptimization    Intent = "optimization"
	IntentGovernance      Intent = "governance"
	IntentDataMetadata    Intent = "data_metadata"
	IntentUtilization     Intent = "utilization"
	IntentOther           Intent = "other"
)

// Dimension is a breakdown axis a query can group by.
type Dimension string

const (
	DimService        Dimension = "service"
	DimRegion         Dimension = "region"
	DimAccount        Dimension = "account"
	DimUsageType      Dimension = "usage_type"
	DimOperation      Dimension = "operation"
	DimInstanceType   Dimension = "instance_type"
	DimStorageClass   Dimension = "storage_class"
	DimFunctionName   Dimension = "function_name"
	DimDatabaseEngine Dimension = "database_engine"
	DimARN            Dimension = "arn"
	DimResourceType   Dimension = "resource_type"
)

// Well-known metadata keys preserved through the pipeline.
const (
	MetaTopN                    = "top_n"
	MetaExplanationRequest      = "explanation_request"
	MetaBreakdownService        = "breakdown_service"
	MetaARNFallback             = "arn_fallback"
	MetaRelatedResourcesQuery   = "related_resources_query"
	MetaResourceTypeExplanation = "resource_type_explanation"
	MetaAccountFilterEnforced   = "account_filter_enforced"
	MetaGeneratedVia            = "generated_via"
	MetaResourceFilter          = "resource_filter"
	MetaDrilledDown             = "drilled_down"
	MetaOriginalService         = "original_service"
	MetaOriginalResource        = "original_resource"
	MetaComparisonStart         = "comparison_start"
	MetaComparisonEnd           = "comparison_end"
)

// QuerySpec is the normalized, typed representation of a request handed to
// data sources. It is constructed by the pipeline or orchestrator and is
// immutable within a single fetch; drill-down and ARN fallback clone it
// with overrides.
//
// Invariants: TimeRange.Start <= TimeRange.End after orchestrator
// defaulting; Services and Accounts only contain values that passed the
// input validators.
type QuerySpec struct {
	Intent     Intent         `json:"intent"`
	TimeRange  TimeRange      `json:"time_range"`
	Dimensions []Dimension    `json:"dimensions,omitempty"`
	Services   []string       `json:"services,omitempty"`
	Regions    []string       `json:"regions,omitempty"`
	Accounts   []string       `json:"accounts,omitempty"`
	ARN        string         `json:"arn,omitempty"`
	SQL        string         `json:"-"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	QueryID    string         `json:"query_id"`
}

// NewQuerySpec constructs a spec with a fresh query ID and an initialized
// metadata bag.
func NewQuerySpec(intent Intent) *QuerySpec {
	return &QuerySpec{
		Intent:   intent,
		Metadata: make(map[string]any),
		QueryID:  uuid.NewString(),
	}
}

// Clone returns a deep copy with a new query ID. Used by drill-down and
// ARN-fallback paths so the original spec stays untouched.
func (q *QuerySpec) Clone() *QuerySpec {
	out := &QuerySpec{
		Intent:    q.Intent,
		TimeRange: q.TimeRange,
		ARN:       q.ARN,
		SQL:       q.SQL,
		QueryID:   uuid.NewString(),
	}
	out.Dimensions = append([]Dimension(nil), q.Dimensions...)
	out.Services = append([]string(nil), q.Services...)
	out.Regions = append([]string(nil), q.Regions...)
	out.Accounts = append([]string(nil), q.Accounts...)
	out.Metadata = make(map[string]any, len(q.Metadata))
	for k, v := range q.Metadata {
		out.Metadata[k] = v
	}
	return out
}

// MetaString reads a string metadata value, returning "" when absent or of
// another type.
func (q *QuerySpec) MetaString(key string) string {
	if v, ok := q.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// MetaBool reads a boolean metadata value.
func (q *QuerySpec) MetaBool(key string) bool {
	v, _ := q.Metadata[key].(bool)
	return v
}

// MetaInt reads an integer metadata value, accepting float64 from JSON
// round-trips.
func (q *QuerySpec) MetaInt(key string) (int, bool) {
	switch v := q.Metadata[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
