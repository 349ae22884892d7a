// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package models

// DataSourceName identifies which backend produced a QueryResult.
type DataSourceName string

const (
	DataSourceAthena       DataSourceName = "athena"
	DataSourceCostExplorer DataSourceName = "cost_explorer"
)

// Row is a single result record keyed by column name. Cell values are the
// coerced scalar variants: nil, int64, float64, or string.
type Row map[string]any

// costColumns are the column names TotalCost sums, in probe order.
var costColumns = []string{"cost_usd", "total_cost", "cost", "unblended_cost"}

// ResultMetadata describes how a QueryResult was produced.
type ResultMetadata struct {
	DataSource              DataSourceName `json:"data_source"`
	ExecutionTimeMS         int64          `json:"execution_time_ms"`
	QueryID                 string         `json:"query_id"`
	SQLQuery                string         `json:"sql_query,omitempty"`
	ARNFallback             bool           `json:"arn_fallback"`
	OriginalARN             string         `json:"original_arn,omitempty"`
	CostExplorerFallback    bool           `json:"cost_explorer_fallback"`
	BreakdownDimension      string         `json:"breakdown_dimension,omitempty"`
	BreakdownDimensionLabel string         `json:"breakdown_dimension_label,omitempty"`
	TopServiceBreakdown     bool           `json:"top_service_breakdown,omitempty"`
	ResourceTypeExplanation string         `json:"resource_type_explanation,omitempty"`
	Extra                   map[string]any `json:"extra,omitempty"`
}

// QueryResult is the standardized output of any data source.
type QueryResult struct {
	Data     []Row          `json:"data"`
	Metadata ResultMetadata `json:"metadata"`
	Error    string         `json:"error,omitempty"`
}

// RowCount returns the number of result rows.
func (r *QueryResult) RowCount() int { return len(r.Data) }

// IsEmpty reports whether the result carries no rows.
func (r *QueryResult) IsEmpty() bool { return len(r.Data) == 0 }

// Succeeded reports whether the fetch completed without an error.
func (r *QueryResult) Succeeded() bool { return r.Error == "" }

// HasData reports a successful, non-empty result.
func (r *QueryResult) HasData() bool { return r.Succeeded() && !r.IsEmpty() }

// TotalCost sums the first recognized cost column across all rows.
// Credit-heavy datasets may legitimately sum negative.
func (r *QueryResult) TotalCost() float64 {
	var total float64
	for _, row := range r.Data {
		total += RowCost(row)
	}
	return total
}

// RowCost extracts the cost value from a row using the recognized cost
// column names, returning 0 when none is present.
func RowCost(row Row) float64 {
	for _, col := range costColumns {
		if v, ok := row[col]; ok {
			if f, ok := ToFloat(v); ok {
				return f
			}
		}
	}
	return 0
}

// ToFloat converts a coerced cell value to float64 when it is numeric.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// RowString extracts a string-valued column, returning "" when absent or
// non-string.
func RowString(row Row, col string) string {
	if s, ok := row[col].(string); ok {
		return s
	}
	return ""
}
