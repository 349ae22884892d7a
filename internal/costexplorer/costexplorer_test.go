// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package costexplorer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsce "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/costlens/costlens/internal/models"
)

// MockCostExplorerAPI returns a canned response and records the request.
type MockCostExplorerAPI struct {
	output    *awsce.GetCostAndUsageOutput
	err       error
	lastInput *awsce.GetCostAndUsageInput
}

func (m *MockCostExplorerAPI) GetCostAndUsage(ctx context.Context, params *awsce.GetCostAndUsageInput, optFns ...func(*awsce.Options)) (*awsce.GetCostAndUsageOutput, error) {
	m.lastInput = params
	if m.err != nil {
		return nil, m.err
	}
	return m.output, nil
}

func group(service, amount string) cetypes.Group {
	return cetypes.Group{
		Keys: []string{service},
		Metrics: map[string]cetypes.MetricValue{
			"UnblendedCost": {Amount: aws.String(amount)},
		},
	}
}

func octoberSpec() *models.QuerySpec {
	spec := models.NewQuerySpec(models.IntentTopNRanking)
	spec.TimeRange = models.TimeRange{
		Start: time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC),
	}
	return spec
}

func TestFetchAggregatesAndSorts(t *testing.T) {
	t.Parallel()
	api := &MockCostExplorerAPI{output: &awsce.GetCostAndUsageOutput{
		ResultsByTime: []cetypes.ResultByTime{
			{Groups: []cetypes.Group{
				group("Amazon Elastic Compute Cloud - Compute", "900.50"),
				group("Amazon Simple Storage Service", "120.25"),
			}},
			// A second period for the same services must merge.
			{Groups: []cetypes.Group{
				group("Amazon Simple Storage Service", "79.75"),
				group("AWS Lambda", "1500.00"),
			}},
		},
	}}
	s := New(api)

	result, err := s.Fetch(context.Background(), octoberSpec())
	if err != nil {
		t.Fatal(err)
	}
	if result.Error != "" {
		t.Fatalf("result.Error = %q", result.Error)
	}
	if !result.Metadata.CostExplorerFallback {
		t.Error("CostExplorerFallback not set")
	}
	if result.Metadata.DataSource != models.DataSourceCostExplorer {
		t.Errorf("data source = %s", result.Metadata.DataSource)
	}

	if len(result.Data) != 3 {
		t.Fatalf("rows = %v", result.Data)
	}
	if result.Data[0]["service"] != "AWS Lambda" {
		t.Errorf("rows not sorted by cost desc: %v", result.Data)
	}
	if result.Data[2]["cost_usd"] != 200.0 {
		t.Errorf("periods not merged: %v", result.Data[2])
	}
}

func TestFetchEndDateExclusive(t *testing.T) {
	t.Parallel()
	api := &MockCostExplorerAPI{output: &awsce.GetCostAndUsageOutput{}}
	s := New(api)

	if _, err := s.Fetch(context.Background(), octoberSpec()); err != nil {
		t.Fatal(err)
	}
	tp := api.lastInput.TimePeriod
	if aws.ToString(tp.Start) != "2025-10-01" {
		t.Errorf("start = %q", aws.ToString(tp.Start))
	}
	if aws.ToString(tp.End) != "2025-11-01" {
		t.Errorf("end = %q, want the day after the inclusive bound", aws.ToString(tp.End))
	}
}

func TestFetchAccountFilter(t *testing.T) {
	t.Parallel()
	api := &MockCostExplorerAPI{output: &awsce.GetCostAndUsageOutput{}}
	s := New(api)

	spec := octoberSpec()
	spec.Accounts = []string{"123456789012", "210987654321"}
	if _, err := s.Fetch(context.Background(), spec); err != nil {
		t.Fatal(err)
	}

	filter := api.lastInput.Filter
	if filter == nil || filter.Dimensions == nil {
		t.Fatal("account filter missing")
	}
	if filter.Dimensions.Key != cetypes.DimensionLinkedAccount {
		t.Errorf("filter key = %s", filter.Dimensions.Key)
	}
	if len(filter.Dimensions.Values) != 2 {
		t.Errorf("filter values = %v", filter.Dimensions.Values)
	}
}

func TestFetchNoFilterForAdmin(t *testing.T) {
	t.Parallel()
	api := &MockCostExplorerAPI{output: &awsce.GetCostAndUsageOutput{}}
	s := New(api)

	if _, err := s.Fetch(context.Background(), octoberSpec()); err != nil {
		t.Fatal(err)
	}
	if api.lastInput.Filter != nil {
		t.Error("unscoped spec must not carry an account filter")
	}
}

func TestFetchAPIFailure(t *testing.T) {
	t.Parallel()
	api := &MockCostExplorerAPI{err: errors.New("throttled")}
	s := New(api)

	result, err := s.Fetch(context.Background(), octoberSpec())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Error, "cost explorer query failed") {
		t.Errorf("result.Error = %q", result.Error)
	}
}

func TestFetchRequiresTimeRange(t *testing.T) {
	t.Parallel()
	s := New(&MockCostExplorerAPI{})
	result, err := s.Fetch(context.Background(), models.NewQuerySpec(models.IntentTopNRanking))
	if err != nil {
		t.Fatal(err)
	}
	if result.Error != "query spec has no time range" {
		t.Errorf("result.Error = %q", result.Error)
	}
}

func TestFetchNilSpec(t *testing.T) {
	t.Parallel()
	s := New(&MockCostExplorerAPI{})
	if _, err := s.Fetch(context.Background(), nil); err == nil {
		t.Error("expected error for nil spec")
	}
}
