// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package charts

import (
	"testing"

	"github.com/costlens/costlens/internal/models"
)

func rankedResult(n int) *models.QueryResult {
	result := &models.QueryResult{Metadata: models.ResultMetadata{DataSource: models.DataSourceAthena}}
	services := []string{"AmazonEC2", "AmazonRDS", "AmazonS3", "AWSLambda", "AmazonCloudWatch", "AmazonVPC", "AmazonECS"}
	for i := 0; i < n; i++ {
		result.Data = append(result.Data, models.Row{
			"service":  services[i%len(services)],
			"cost_usd": float64(1000 - i*100),
		})
	}
	return result
}

func TestRecommendSuppressedByQuery(t *testing.T) {
	t.Parallel()
	spec := models.NewQuerySpec(models.IntentTopNRanking)
	for _, q := range []string{
		"top services, no chart please",
		"top services text only",
		"show spend without a chart",
	} {
		if got := Recommend(spec, rankedResult(5), q); got != nil {
			t.Errorf("Recommend(%q) = %v, want none", q, got)
		}
	}
}

func TestRecommendEmptyResult(t *testing.T) {
	t.Parallel()
	spec := models.NewQuerySpec(models.IntentTopNRanking)
	if got := Recommend(spec, &models.QueryResult{}, "top services"); got != nil {
		t.Errorf("empty result recommended %v", got)
	}
	failed := &models.QueryResult{Error: "query timeout"}
	if got := Recommend(spec, failed, "top services"); got != nil {
		t.Errorf("failed result recommended %v", got)
	}
}

func TestRecommendARNFallbackPie(t *testing.T) {
	t.Parallel()
	spec := models.NewQuerySpec(models.IntentCostBreakdown)
	result := &models.QueryResult{
		Data: []models.Row{
			{"resource_type": "ECS Task", "resource_id": "a", "cost_usd": 40.0},
			{"resource_type": "Load Balancer", "resource_id": "b", "cost_usd": 12.0},
		},
		Metadata: models.ResultMetadata{ARNFallback: true},
	}
	got := Recommend(spec, result, "what does my cluster cost")
	if len(got) != 1 || got[0].Type != models.ChartPie || got[0].XField != "resource_type" {
		t.Errorf("Recommend = %+v", got)
	}
}

func TestRecommendUsageTypePie(t *testing.T) {
	t.Parallel()
	spec := models.NewQuerySpec(models.IntentCostBreakdown)
	result := &models.QueryResult{Data: []models.Row{
		{"usage_type": "BoxUsage:m5.large", "cost_usd": 60.0},
		{"usage_type": "DataTransfer", "cost_usd": 30.0},
	}}
	got := Recommend(spec, result, "break down ec2")
	if len(got) != 1 || got[0].Type != models.ChartPie || got[0].XField != "usage_type" {
		t.Errorf("Recommend = %+v", got)
	}

	// A single usage-type row has nothing to compose; the shortcut must
	// not fire.
	single := &models.QueryResult{Data: result.Data[:1]}
	got = Recommend(spec, single, "break down ec2")
	if len(got) > 0 && got[0].XField == "usage_type" && got[0].Type == models.ChartPie {
		t.Errorf("single-row usage-type shortcut fired: %+v", got)
	}
}

func TestRecommendIntentMapping(t *testing.T) {
	t.Parallel()
	tests := []struct {
		intent models.Intent
		want   models.ChartType
	}{
		{models.IntentTopNRanking, models.ChartColumn},
		{models.IntentCostBreakdown, models.ChartColumn},
		{models.IntentComparative, models.ChartClusteredBar},
		{models.IntentOptimization, models.ChartColumn},
	}
	for _, tt := range tests {
		spec := models.NewQuerySpec(tt.intent)
		got := Recommend(spec, rankedResult(3), "show me costs")
		if len(got) == 0 || got[0].Type != tt.want {
			t.Errorf("intent %s: got %+v, want primary %s", tt.intent, got, tt.want)
		}
	}
}

func TestRecommendLineDegradesOnSingleBucket(t *testing.T) {
	t.Parallel()
	spec := models.NewQuerySpec(models.IntentCostTrend)
	result := &models.QueryResult{Data: []models.Row{
		{"period": "2025-10-01", "cost_usd": 10.0},
	}}
	got := Recommend(spec, result, "trend")
	if len(got) == 0 || got[0].Type != models.ChartColumn {
		t.Errorf("single-bucket line not degraded: %+v", got)
	}

	multi := &models.QueryResult{Data: []models.Row{
		{"period": "2025-10-01", "cost_usd": 10.0},
		{"period": "2025-10-02", "cost_usd": 12.0},
	}}
	got = Recommend(spec, multi, "trend")
	if len(got) == 0 || got[0].Type != models.ChartLine {
		t.Errorf("two-bucket trend should stay a line: %+v", got)
	}
	if got[0].XField != "period" {
		t.Errorf("line x field = %q", got[0].XField)
	}
}

func TestRecommendAlternativeOnWideResults(t *testing.T) {
	t.Parallel()
	spec := models.NewQuerySpec(models.IntentTopNRanking)

	if got := Recommend(spec, rankedResult(3), "top 3 services"); len(got) != 1 {
		t.Errorf("narrow result should get one chart: %+v", got)
	}
	got := Recommend(spec, rankedResult(6), "top services")
	if len(got) != 2 || got[1].Type != models.ChartPie {
		t.Errorf("wide result should add the pie alternative: %+v", got)
	}
	// Asking for multiple views overrides the row threshold.
	got = Recommend(spec, rankedResult(3), "visualize my top services")
	if len(got) != 2 {
		t.Errorf("explicit multi-view request ignored: %+v", got)
	}
}

func TestClassifyColumns(t *testing.T) {
	t.Parallel()
	rows := []models.Row{{
		"period":          "2025-10-01",
		"dimension_value": "AmazonEC2",
		"cost_usd":        42.5,
	}}
	cols := classifyColumns(rows)
	if cols.time != "period" || cols.dimension != "dimension_value" || cols.metric != "cost_usd" {
		t.Errorf("roles = %+v", cols)
	}
}

func TestClassifyColumnsPrefersCostMetric(t *testing.T) {
	t.Parallel()
	rows := []models.Row{{
		"service":      "AmazonEC2",
		"usage_amount": 12.0,
		"cost_usd":     42.5,
	}}
	cols := classifyColumns(rows)
	if cols.metric != "cost_usd" {
		t.Errorf("metric = %q, want cost_usd", cols.metric)
	}
}
