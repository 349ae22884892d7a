// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/costlens/costlens/internal/models"
)

// MockSource replays scripted results in call order and records the specs
// it was asked to fetch.
type MockSource struct {
	name    models.DataSourceName
	results []*models.QueryResult
	err     error
	specs   []*models.QuerySpec
}

func (m *MockSource) Name() models.DataSourceName { return m.name }

func (m *MockSource) Fetch(ctx context.Context, spec *models.QuerySpec) (*models.QueryResult, error) {
	m.specs = append(m.specs, spec)
	if m.err != nil {
		return nil, m.err
	}
	idx := len(m.specs) - 1
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	return m.results[idx], nil
}

func emptyResult() *models.QueryResult {
	return &models.QueryResult{Metadata: models.ResultMetadata{DataSource: models.DataSourceAthena}}
}

func serviceRows() *models.QueryResult {
	return &models.QueryResult{
		Data: []models.Row{
			{"service": "AmazonEC2", "cost_usd": 900.0},
			{"service": "AmazonS3", "cost_usd": 100.0},
		},
		Metadata: models.ResultMetadata{DataSource: models.DataSourceAthena},
	}
}

func TestExecuteHappyPath(t *testing.T) {
	t.Parallel()
	primary := &MockSource{name: models.DataSourceAthena, results: []*models.QueryResult{serviceRows()}}
	o := New(primary, nil)

	spec := models.NewQuerySpec(models.IntentTopNRanking)
	spec.TimeRange = models.TimeRange{
		Start: time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC),
	}

	result, err := o.Execute(context.Background(), spec)
	if err != nil {
		t.Fatal(err)
	}
	if !result.HasData() || len(primary.specs) != 1 {
		t.Errorf("result = %+v, fetches = %d", result, len(primary.specs))
	}
}

func TestExecuteAppliesDefaults(t *testing.T) {
	t.Parallel()
	primary := &MockSource{name: models.DataSourceAthena, results: []*models.QueryResult{serviceRows()}}
	o := New(primary, nil)
	o.now = func() time.Time {
		return time.Date(2025, time.November, 15, 10, 0, 0, 0, time.UTC)
	}

	spec := models.NewQuerySpec(models.IntentTopNRanking)
	if _, err := o.Execute(context.Background(), spec); err != nil {
		t.Fatal(err)
	}

	if n, ok := spec.MetaInt(models.MetaTopN); !ok || n != 5 {
		t.Errorf("top_n default = %d (%v)", n, ok)
	}
	if spec.TimeRange.StartDate() != "2025-10-16" || spec.TimeRange.EndDate() != "2025-11-15" {
		t.Errorf("default window = %s..%s", spec.TimeRange.StartDate(), spec.TimeRange.EndDate())
	}
}

func TestExecuteARNRescue(t *testing.T) {
	t.Parallel()
	rescued := &models.QueryResult{
		Data: []models.Row{
			{"resource_type": "ECS Task", "resource_id": "arn:aws:ecs:us-east-1:123456789012:task/prod/abc", "cost_usd": 42.0},
		},
		Metadata: models.ResultMetadata{DataSource: models.DataSourceAthena},
	}
	primary := &MockSource{
		name:    models.DataSourceAthena,
		results: []*models.QueryResult{emptyResult(), rescued},
	}
	o := New(primary, nil)

	spec := models.NewQuerySpec(models.IntentCostBreakdown)
	spec.ARN = "arn:aws:ecs:us-east-1:123456789012:cluster/prod"
	spec.TimeRange = models.TimeRange{
		Start: time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC),
	}

	result, err := o.Execute(context.Background(), spec)
	if err != nil {
		t.Fatal(err)
	}
	if len(primary.specs) != 2 {
		t.Fatalf("fetches = %d, want primary then rescue", len(primary.specs))
	}

	rescueSpec := primary.specs[1]
	if !rescueSpec.MetaBool(models.MetaRelatedResourcesQuery) {
		t.Error("rescue spec not marked as related-resources query")
	}
	if rescueSpec.Intent != models.IntentCostBreakdown {
		t.Errorf("rescue intent = %s", rescueSpec.Intent)
	}
	// The original spec must not be mutated by the rescue.
	if spec.MetaBool(models.MetaRelatedResourcesQuery) {
		t.Error("rescue metadata leaked into the original spec")
	}

	if !result.Metadata.ARNFallback {
		t.Error("ARNFallback not set on rescued result")
	}
	if result.Metadata.OriginalARN != spec.ARN {
		t.Errorf("OriginalARN = %q", result.Metadata.OriginalARN)
	}
	if result.Metadata.ResourceTypeExplanation == "" {
		t.Error("missing resource-type explanation")
	}
}

func TestExecuteNoRescueWhenPrimaryFails(t *testing.T) {
	t.Parallel()
	failed := emptyResult()
	failed.Error = "query timeout after 30 attempts"
	primary := &MockSource{name: models.DataSourceAthena, results: []*models.QueryResult{failed}}
	o := New(primary, nil)

	spec := models.NewQuerySpec(models.IntentCostBreakdown)
	spec.ARN = "arn:aws:ecs:us-east-1:123456789012:cluster/prod"

	result, err := o.Execute(context.Background(), spec)
	if err != nil {
		t.Fatal(err)
	}
	if len(primary.specs) != 1 {
		t.Errorf("failed query must not trigger the rescue, fetches = %d", len(primary.specs))
	}
	if result.Error == "" {
		t.Error("primary failure must surface")
	}
}

func TestExecuteCostExplorerFallback(t *testing.T) {
	t.Parallel()
	primary := &MockSource{name: models.DataSourceAthena, results: []*models.QueryResult{emptyResult()}}
	fbRows := serviceRows()
	fbRows.Metadata.DataSource = models.DataSourceCostExplorer
	fbRows.Metadata.CostExplorerFallback = true
	fallback := &MockSource{name: models.DataSourceCostExplorer, results: []*models.QueryResult{fbRows}}
	o := New(primary, fallback)

	spec := models.NewQuerySpec(models.IntentTopNRanking)
	result, err := o.Execute(context.Background(), spec)
	if err != nil {
		t.Fatal(err)
	}
	if len(fallback.specs) != 1 {
		t.Fatal("fallback not consulted for an empty service-level result")
	}
	if !result.Metadata.CostExplorerFallback || !result.HasData() {
		t.Errorf("result = %+v", result)
	}
}

func TestExecuteFallbackKeepsEmptyPrimaryWhenFallbackEmpty(t *testing.T) {
	t.Parallel()
	primary := &MockSource{name: models.DataSourceAthena, results: []*models.QueryResult{emptyResult()}}
	fbEmpty := emptyResult()
	fbEmpty.Metadata.DataSource = models.DataSourceCostExplorer
	fallback := &MockSource{name: models.DataSourceCostExplorer, results: []*models.QueryResult{fbEmpty}}
	o := New(primary, fallback)

	spec := models.NewQuerySpec(models.IntentTopNRanking)
	result, err := o.Execute(context.Background(), spec)
	if err != nil {
		t.Fatal(err)
	}
	if result.Metadata.DataSource != models.DataSourceAthena {
		t.Errorf("empty fallback must not replace the primary result: %+v", result.Metadata)
	}
}

func TestFallbackEligible(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		spec func() *models.QuerySpec
		want bool
	}{
		{"top services", func() *models.QuerySpec {
			return models.NewQuerySpec(models.IntentTopNRanking)
		}, true},
		{"service breakdown dimension", func() *models.QuerySpec {
			s := models.NewQuerySpec(models.IntentCostBreakdown)
			s.Dimensions = []models.Dimension{models.DimService}
			return s
		}, true},
		{"arn query", func() *models.QuerySpec {
			s := models.NewQuerySpec(models.IntentTopNRanking)
			s.ARN = "arn:aws:s3:::bucket"
			return s
		}, false},
		{"trend intent", func() *models.QuerySpec {
			return models.NewQuerySpec(models.IntentCostTrend)
		}, false},
		{"service filter", func() *models.QuerySpec {
			s := models.NewQuerySpec(models.IntentCostBreakdown)
			s.Services = []string{"AmazonEC2"}
			return s
		}, false},
		{"usage type dimension", func() *models.QuerySpec {
			s := models.NewQuerySpec(models.IntentCostBreakdown)
			s.Dimensions = []models.Dimension{models.DimUsageType}
			return s
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fallbackEligible(tt.spec()); got != tt.want {
				t.Errorf("fallbackEligible = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResourceTypeExplanation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		arn  string
		want string
	}{
		{"arn:aws:ecs:us-east-1:123456789012:cluster/prod", "cluster"},
		{"arn:aws:ec2:us-east-1:123456789012:vpc/vpc-0abc", "VPC"},
		{"arn:aws:ec2:us-east-1:123456789012:security-group/sg-0abc", "Security groups"},
		{"arn:aws:lambda:us-east-1:123456789012:function:billing", "related resources"},
	}
	for _, tt := range tests {
		got := resourceTypeExplanation(tt.arn)
		if !strings.Contains(got, tt.want) {
			t.Errorf("resourceTypeExplanation(%q) = %q, want mention of %q", tt.arn, got, tt.want)
		}
	}
}
