// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package orchestrator

import (
	"context"
	"testing"

	"github.com/costlens/costlens/internal/models"
)

func singleRowResult(row models.Row) *models.QueryResult {
	return &models.QueryResult{
		Data:     []models.Row{row},
		Metadata: models.ResultMetadata{DataSource: models.DataSourceAthena},
	}
}

func usageTypeRows() *models.QueryResult {
	return &models.QueryResult{
		Data: []models.Row{
			{"dimension_value": "BoxUsage:m5.large", "cost_usd": 600.0},
			{"dimension_value": "DataTransfer-Out-Bytes", "cost_usd": 300.0},
		},
		Metadata: models.ResultMetadata{DataSource: models.DataSourceAthena},
	}
}

func TestDrillDownReplacesSingleServiceRow(t *testing.T) {
	t.Parallel()
	source := &MockSource{name: models.DataSourceAthena, results: []*models.QueryResult{usageTypeRows()}}
	d := NewDrillDown(source)

	spec := models.NewQuerySpec(models.IntentCostBreakdown)
	original := singleRowResult(models.Row{"service": "AmazonEC2", "cost_usd": 900.0})

	result, subject := d.Apply(context.Background(), spec, original)
	if subject != "AmazonEC2" {
		t.Fatalf("subject = %q", subject)
	}
	if result.RowCount() != 2 {
		t.Fatalf("result = %+v", result)
	}

	if len(source.specs) != 1 {
		t.Fatal("expected one follow-up fetch")
	}
	follow := source.specs[0]
	if follow.Intent != models.IntentCostBreakdown {
		t.Errorf("follow-up intent = %s", follow.Intent)
	}
	if len(follow.Dimensions) != 1 || follow.Dimensions[0] != models.DimUsageType {
		t.Errorf("follow-up dimensions = %v", follow.Dimensions)
	}
	if len(follow.Services) != 1 || follow.Services[0] != "AmazonEC2" {
		t.Errorf("follow-up services = %v", follow.Services)
	}

	if result.Metadata.BreakdownDimension != "usage_type" {
		t.Errorf("breakdown dimension = %q", result.Metadata.BreakdownDimension)
	}
	if drilled, _ := result.Metadata.Extra[models.MetaDrilledDown].(bool); !drilled {
		t.Error("drilled_down marker missing")
	}
	if result.Metadata.Extra[models.MetaOriginalService] != "AmazonEC2" {
		t.Errorf("original service = %v", result.Metadata.Extra[models.MetaOriginalService])
	}
}

func TestDrillDownResourceRow(t *testing.T) {
	t.Parallel()
	source := &MockSource{name: models.DataSourceAthena, results: []*models.QueryResult{usageTypeRows()}}
	d := NewDrillDown(source)

	spec := models.NewQuerySpec(models.IntentCostBreakdown)
	original := singleRowResult(models.Row{"resource_id": "i-0abc123def456", "cost_usd": 55.0})

	result, subject := d.Apply(context.Background(), spec, original)
	if subject != "i-0abc123def456" {
		t.Fatalf("subject = %q", subject)
	}
	follow := source.specs[0]
	if follow.MetaString(models.MetaResourceFilter) != "i-0abc123def456" {
		t.Errorf("resource filter = %q", follow.MetaString(models.MetaResourceFilter))
	}
	if result.Metadata.Extra[models.MetaOriginalResource] != "i-0abc123def456" {
		t.Errorf("original resource = %v", result.Metadata.Extra[models.MetaOriginalResource])
	}
}

func TestDrillDownKeepsOriginalWhenFollowUpThin(t *testing.T) {
	t.Parallel()
	thin := &models.QueryResult{
		Data:     []models.Row{{"dimension_value": "BoxUsage", "cost_usd": 900.0}},
		Metadata: models.ResultMetadata{DataSource: models.DataSourceAthena},
	}
	source := &MockSource{name: models.DataSourceAthena, results: []*models.QueryResult{thin}}
	d := NewDrillDown(source)

	original := singleRowResult(models.Row{"service": "AmazonEC2", "cost_usd": 900.0})
	result, subject := d.Apply(context.Background(), models.NewQuerySpec(models.IntentCostBreakdown), original)
	if subject != "" {
		t.Errorf("subject = %q, want none", subject)
	}
	if result != original {
		t.Error("single-row follow-up must keep the original result")
	}
}

func TestDrillDownSkipsMultiRowResults(t *testing.T) {
	t.Parallel()
	source := &MockSource{name: models.DataSourceAthena}
	d := NewDrillDown(source)

	multi := usageTypeRows()
	result, subject := d.Apply(context.Background(), models.NewQuerySpec(models.IntentCostBreakdown), multi)
	if subject != "" || result != multi || len(source.specs) != 0 {
		t.Errorf("multi-row result must pass through untouched (subject %q, fetches %d)", subject, len(source.specs))
	}
}

func TestDrillDownSkipsInvalidService(t *testing.T) {
	t.Parallel()
	source := &MockSource{name: models.DataSourceAthena}
	d := NewDrillDown(source)

	original := singleRowResult(models.Row{"service": "Amazon EC2; DROP TABLE", "cost_usd": 1.0})
	result, subject := d.Apply(context.Background(), models.NewQuerySpec(models.IntentCostBreakdown), original)
	if subject != "" || result != original || len(source.specs) != 0 {
		t.Error("unvalidatable service name must not be drilled")
	}
}

func TestDrillDownSkipsRowsWithoutSubject(t *testing.T) {
	t.Parallel()
	source := &MockSource{name: models.DataSourceAthena}
	d := NewDrillDown(source)

	original := singleRowResult(models.Row{"cost_usd": 123.0})
	result, subject := d.Apply(context.Background(), models.NewQuerySpec(models.IntentCostBreakdown), original)
	if subject != "" || result != original {
		t.Error("row with no service or resource column must pass through")
	}
}
