// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package response

import (
	"strings"
	"testing"
	"time"

	"github.com/costlens/costlens/internal/models"
)

func topResult() *models.QueryResult {
	return &models.QueryResult{
		Data: topRows(),
		Metadata: models.ResultMetadata{
			DataSource: models.DataSourceAthena,
			SQLQuery:   "SELECT 1",
		},
	}
}

func TestBuildResponse(t *testing.T) {
	t.Parallel()
	spec := models.NewQuerySpec(models.IntentTopNRanking)
	in := Input{
		Spec:        spec,
		Result:      topResult(),
		Explanation: "**Insights:**\n- **Concentration:** ${TopItem} is ${TopPct} of spend\n\n**Recommendations:**\n1. Review EC2 instance sizing",
		Query:       "top 3 services",
	}

	resp := Build(in)
	if resp.Status != models.StatusSuccess {
		t.Fatalf("status = %s", resp.Status)
	}
	if !strings.Contains(resp.Summary, "Your top 3 cost drivers total $1,000.00") {
		t.Errorf("summary = %q", resp.Summary)
	}

	// Section order in the message: Summary before Insights before Next
	// steps.
	msg := resp.Message
	sumIdx := strings.Index(msg, "**Summary:**")
	insIdx := strings.Index(msg, "**Insights:**")
	nextIdx := strings.Index(msg, "**Next steps:**")
	if sumIdx < 0 || insIdx < 0 || nextIdx < 0 || !(sumIdx < insIdx && insIdx < nextIdx) {
		t.Errorf("section order wrong:\n%s", msg)
	}

	// Placeholders in the narrative resolved against the rows.
	if !strings.Contains(msg, "AmazonEC2 is 60.0% of spend") {
		t.Errorf("placeholders not substituted:\n%s", msg)
	}

	if len(resp.Insights) != 1 || resp.Insights[0].Category != "Concentration" {
		t.Errorf("insights = %+v", resp.Insights)
	}
	if len(resp.Recommendations) != 1 || !strings.Contains(resp.Recommendations[0].Description, "instance sizing") {
		t.Errorf("recommendations = %+v", resp.Recommendations)
	}

	if resp.AthenaQuery == nil || *resp.AthenaQuery != "SELECT 1" {
		t.Error("executed SQL not exposed")
	}
	if resp.Metadata.RowCount != 3 || resp.Metadata.TotalCost != 1000.0 {
		t.Errorf("metadata = %+v", resp.Metadata)
	}
	if len(resp.Suggestions) == 0 || len(resp.Suggestions) > 2 {
		t.Errorf("suggestions = %v", resp.Suggestions)
	}
}

func TestBuildDefaultInsightsWhenNarrativeEmpty(t *testing.T) {
	t.Parallel()
	spec := models.NewQuerySpec(models.IntentTopNRanking)
	resp := Build(Input{Spec: spec, Result: topResult()})
	if len(resp.Insights) == 0 {
		t.Fatal("expected computed insights for an empty narrative")
	}
	found := false
	for _, ins := range resp.Insights {
		if ins.Category == "Concentration" {
			found = true
		}
	}
	if !found {
		t.Errorf("insights = %+v", resp.Insights)
	}
}

func TestBuildDrilledDownMetadata(t *testing.T) {
	t.Parallel()
	result := topResult()
	result.Metadata.Extra = map[string]any{models.MetaDrilledDown: true}
	resp := Build(Input{Spec: models.NewQuerySpec(models.IntentCostBreakdown), Result: result})
	if !resp.Metadata.DrilledDown {
		t.Error("drill-down marker not surfaced")
	}
}

func TestBuildSummaryPerIntent(t *testing.T) {
	t.Parallel()
	trend := &models.QueryResult{Data: []models.Row{
		{"period": "2025-10-01", "cost_usd": 100.0},
		{"period": "2025-10-02", "cost_usd": 150.0},
	}}
	comparative := &models.QueryResult{Data: []models.Row{
		{"service": "AmazonEC2", "current_period_cost": 500.0, "previous_period_cost": 400.0},
	}}
	anomalous := &models.QueryResult{Data: []models.Row{
		{"usage_date": "2025-10-01", "cost_usd": 10.0, "z_score": 0.2},
		{"usage_date": "2025-10-02", "cost_usd": 90.0, "z_score": 3.4},
	}}
	arnRescue := &models.QueryResult{
		Data:     []models.Row{{"resource_type": "ECS Task", "cost_usd": 42.0}},
		Metadata: models.ResultMetadata{ARNFallback: true},
	}

	tests := []struct {
		name   string
		intent models.Intent
		result *models.QueryResult
		want   string
	}{
		{"empty", models.IntentTopNRanking, &models.QueryResult{}, "No cost data was found"},
		{"top n", models.IntentTopNRanking, topResult(), "with AmazonEC2 leading at $600.00 (60.0%)"},
		{"trend", models.IntentCostTrend, trend, "Costs increased from $100.00 to $150.00"},
		{"comparative", models.IntentComparative, comparative, "up $100.00 (25.0%)"},
		{"anomaly", models.IntentAnomalyAnalysis, anomalous, "1 of 2 periods are anomalous"},
		{"arn rescue", models.IntentCostBreakdown, arnRescue, "no direct cost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := models.NewQuerySpec(tt.intent)
			got := buildSummary(spec, tt.result)
			if !strings.Contains(got, tt.want) {
				t.Errorf("summary = %q, want mention of %q", got, tt.want)
			}
		})
	}
}

func TestBuildAvailabilityWarning(t *testing.T) {
	t.Parallel()
	spec := models.NewQuerySpec(models.IntentCostTrend)
	spec.TimeRange = models.TimeRange{
		Start: time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC),
	}

	// Data covering two days of a 30-day window is thin coverage.
	thin := &models.QueryResult{Data: []models.Row{
		{"usage_date": "2025-10-20", "cost_usd": 1.0},
		{"usage_date": "2025-10-21", "cost_usd": 2.0},
	}}
	if got := buildAvailabilityWarning(spec, thin); !strings.Contains(got, "does not fully cover") {
		t.Errorf("thin coverage warning = %q", got)
	}

	// Full-window data raises no warning.
	full := &models.QueryResult{Data: []models.Row{
		{"usage_date": "2025-10-01", "cost_usd": 1.0},
		{"usage_date": "2025-10-31", "cost_usd": 2.0},
	}}
	if got := buildAvailabilityWarning(spec, full); got != "" {
		t.Errorf("unexpected warning: %q", got)
	}

	// Rows without a period column cannot be assessed.
	noPeriod := &models.QueryResult{Data: []models.Row{{"service": "AmazonEC2", "cost_usd": 1.0}}}
	if got := buildAvailabilityWarning(spec, noPeriod); got != "" {
		t.Errorf("warning without period data: %q", got)
	}
}

func TestBuildSuggestionsAggregatedChartFirst(t *testing.T) {
	t.Parallel()
	spec := models.NewQuerySpec(models.IntentTopNRanking)
	convCtx := &models.ConversationContext{
		LastChartAggregated: true,
		LastHiddenItems:     []string{"AmazonVPC", "AmazonECS", "AmazonEKS"},
	}
	got := buildSuggestions(spec, topResult(), convCtx)
	if len(got) != 2 {
		t.Fatalf("suggestions = %v", got)
	}
	if got[0] != "Show me the other 3 items" {
		t.Errorf("first suggestion = %q", got[0])
	}
}

func TestParseStructured(t *testing.T) {
	t.Parallel()
	markdown := "**Summary:**\nSpend is concentrated in EC2.\n\n" +
		"**Insights:**\n- **Concentration:** top 2 items are 85% of spend\n- a plain bullet with several words in it\n\n" +
		"**Recommendations:**\n1. **Rightsize:** review m5.large usage\n2. Enable S3 lifecycle rules"
	summary, insights, recs := parseStructured(markdown)
	if summary != "Spend is concentrated in EC2." {
		t.Errorf("summary = %q", summary)
	}
	if len(insights) != 2 || insights[0].Category != "Concentration" {
		t.Errorf("insights = %+v", insights)
	}
	if insights[1].Category == insights[1].Description {
		// Long unled bullets take their first words as the category.
		t.Errorf("unled insight = %+v", insights[1])
	}
	if len(recs) != 2 || recs[0].Action != "Rightsize" {
		t.Errorf("recommendations = %+v", recs)
	}
}

func TestSplitSections(t *testing.T) {
	t.Parallel()
	sections := splitSections("**Summary:**\nhead\n\n**Next steps:**\n- one")
	if sections["summary"] != "head" {
		t.Errorf("summary body = %q", sections["summary"])
	}
	if !strings.Contains(sections["next steps"], "one") {
		t.Errorf("next steps body = %q", sections["next steps"])
	}
}

func TestBuildScopeSection(t *testing.T) {
	t.Parallel()
	spec := models.NewQuerySpec(models.IntentCostBreakdown)
	spec.TimeRange = models.TimeRange{
		Start:       time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC),
		Description: "October 2025",
	}
	spec.Services = []string{"AmazonEC2"}

	got := buildScopeSection(spec, nil)
	if !strings.Contains(got, "October 2025 (2025-10-01 to 2025-10-31)") {
		t.Errorf("scope = %q", got)
	}
	if !strings.Contains(got, "services: AmazonEC2") {
		t.Errorf("scope = %q", got)
	}
}
