// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package charts decides which charts to render for a result set and
// builds the render-ready objects. The recommender picks 0-2 chart specs
// from intent, metadata, and data shape; the builder materializes them,
// including the top-5-plus-Others aggregation that powers "show me the
// others" follow-ups.
package charts

import (
	"strings"

	"github.com/costlens/costlens/internal/models"
)

// Spec is one recommended chart before materialization.
type Spec struct {
	Type      models.ChartType
	Title     string
	XField    string
	YField    string
	Series    string
	Rationale string
}

// noChartPhrases suppress charting entirely when they appear in the query.
var noChartPhrases = []string{"no chart", "no graph", "text only", "without chart", "without a chart"}

// intentCharts maps intents to their default chart pairing.
var intentCharts = map[models.Intent]models.ChartRecommendation{
	models.IntentTopNRanking:     {Primary: models.ChartColumn, Alternative: models.ChartPie, Rationale: "ranked magnitudes"},
	models.IntentCostBreakdown:   {Primary: models.ChartColumn, Alternative: models.ChartPie, Rationale: "categorical composition"},
	models.IntentCostTrend:       {Primary: models.ChartLine, Alternative: models.ChartScatter, Rationale: "time series"},
	models.IntentAnomalyAnalysis: {Primary: models.ChartLine, Alternative: models.ChartScatter, Rationale: "deviation over time"},
	models.IntentComparative:     {Primary: models.ChartClusteredBar, Rationale: "period comparison"},
	models.IntentUtilization:     {Primary: models.ChartScatter, Alternative: models.ChartBar, Rationale: "distribution"},
	models.IntentOptimization:    {Primary: models.ChartColumn, Alternative: models.ChartPie, Rationale: "savings by opportunity"},
	models.IntentDataMetadata:    {Primary: models.ChartLine, Rationale: "coverage over time"},
}

// Recommend returns 0-2 chart specs for the result.
func Recommend(spec *models.QuerySpec, result *models.QueryResult, query string) []Spec {
	if result == nil || !result.HasData() {
		return nil
	}
	lowered := strings.ToLower(query)
	for _, phrase := range noChartPhrases {
		if strings.Contains(lowered, phrase) {
			return nil
		}
	}

	cols := classifyColumns(result.Data)

	// Metadata-driven shortcuts come before the intent mapping.
	if result.Metadata.ARNFallback && hasColumn(result.Data, "resource_type") {
		return []Spec{{
			Type:   models.ChartPie,
			Title:  "Cost by Resource Type",
			XField: "resource_type",
			YField: cols.metric,
		}}
	}
	if hasColumn(result.Data, "usage_type") && result.RowCount() >= 2 {
		return []Spec{{
			Type:   models.ChartPie,
			Title:  "Cost by Usage Type",
			XField: "usage_type",
			YField: cols.metric,
		}}
	}
	if result.Metadata.TopServiceBreakdown && cols.dimension != "" {
		return []Spec{{
			Type:   models.ChartPie,
			Title:  "Breakdown of Top Service",
			XField: cols.dimension,
			YField: cols.metric,
		}}
	}

	rec, ok := intentCharts[spec.Intent]
	if !ok {
		rec = intentCharts[models.IntentCostBreakdown]
	}

	// Comparative data with monthly rows over a long window reads better
	// as a line than as paired bars.
	if spec.Intent == models.IntentComparative && cols.time != "" && spec.TimeRange.SpanDays() >= 90 {
		rec = models.ChartRecommendation{Primary: models.ChartLine, Rationale: "long comparison window"}
	}

	primary := buildSpec(rec.Primary, spec, cols)

	// A line chart over a single time bucket degrades to a column chart.
	if primary.Type == models.ChartLine && cols.time != "" && distinctValues(result.Data, cols.time) < 2 {
		primary.Type = models.ChartColumn
	}

	specs := []Spec{primary}
	if rec.Alternative != "" && (result.RowCount() >= 5 || wantsMultipleViews(lowered)) {
		specs = append(specs, buildSpec(rec.Alternative, spec, cols))
	}
	return specs
}

func buildSpec(t models.ChartType, spec *models.QuerySpec, cols columnRoles) Spec {
	x := cols.dimension
	if t == models.ChartLine || t == models.ChartArea || t == models.ChartScatter {
		if cols.time != "" {
			x = cols.time
		}
	}
	if x == "" {
		x = cols.time
	}
	out := Spec{
		Type:   t,
		Title:  chartTitle(spec, t),
		XField: x,
		YField: cols.metric,
	}
	// Series grouping applies when a second dimension exists alongside a
	// time axis, capped to keep the legend readable.
	if cols.time != "" && cols.dimension != "" && x == cols.time {
		out.Series = cols.dimension
	}
	return out
}

func chartTitle(spec *models.QuerySpec, t models.ChartType) string {
	switch spec.Intent {
	case models.IntentTopNRanking:
		return "Top Cost Drivers"
	case models.IntentCostTrend:
		return "Cost Over Time"
	case models.IntentComparative:
		return "Period Comparison"
	case models.IntentAnomalyAnalysis:
		return "Daily Cost and Anomalies"
	case models.IntentOptimization:
		return "Savings Opportunities"
	default:
		if t == models.ChartPie {
			return "Cost Share"
		}
		return "Cost Breakdown"
	}
}

func wantsMultipleViews(lowered string) bool {
	return strings.Contains(lowered, "charts") || strings.Contains(lowered, "views") ||
		strings.Contains(lowered, "visualize") || strings.Contains(lowered, "multiple")
}

// columnRoles classifies the result columns by their chart role.
type columnRoles struct {
	dimension string
	metric    string
	time      string
}

var timeColumnNames = []string{"period", "usage_date", "date", "month", "day", "week", "hour"}

// classifyColumns infers chart roles from column names with the first row
// as a type witness. The explicit dimension_value column from breakdown
// templates wins over other dimension candidates.
func classifyColumns(rows []models.Row) columnRoles {
	if len(rows) == 0 {
		return columnRoles{}
	}
	roles := columnRoles{}
	for col, v := range rows[0] {
		lower := strings.ToLower(col)
		switch {
		case isTimeColumn(lower):
			if roles.time == "" {
				roles.time = col
			}
		case isMetricValue(v):
			if roles.metric == "" || strings.Contains(lower, "cost") {
				roles.metric = col
			}
		default:
			if col == "dimension_value" || roles.dimension == "" {
				roles.dimension = col
			}
		}
	}
	return roles
}

func isTimeColumn(lower string) bool {
	for _, name := range timeColumnNames {
		if lower == name || strings.HasSuffix(lower, "_"+name) || strings.HasPrefix(lower, name+"_") {
			return true
		}
	}
	return false
}

func isMetricValue(v any) bool {
	_, ok := models.ToFloat(v)
	return ok
}

func hasColumn(rows []models.Row, col string) bool {
	if len(rows) == 0 {
		return false
	}
	_, ok := rows[0][col]
	return ok
}

func distinctValues(rows []models.Row, col string) int {
	seen := make(map[string]bool)
	for _, row := range rows {
		seen[stringValue(row[col])] = true
	}
	return len(seen)
}
