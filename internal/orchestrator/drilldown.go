// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package orchestrator

import (
	"context"

	"github.com/costlens/costlens/internal/datasource"
	"github.com/costlens/costlens/internal/logging"
	"github.com/costlens/costlens/internal/metrics"
	"github.com/costlens/costlens/internal/models"
	"github.com/costlens/costlens/internal/validation"
)

// serviceColumns and resourceColumns are probed in order when deciding
// whether a single-row result can be drilled into.
var (
	serviceColumns  = []string{"service", "line_item_product_code", "dimension_value"}
	resourceColumns = []string{"resource_id", "line_item_resource_id"}
)

// DrillDown expands a single-row answer into a usage-type breakdown so
// "what did EC2 cost" comes back with the composition, not one number.
// Any failure leaves the original result untouched.
type DrillDown struct {
	source datasource.DataSource
}

// NewDrillDown wraps the SQL-capable source used for follow-up queries.
func NewDrillDown(source datasource.DataSource) *DrillDown {
	return &DrillDown{source: source}
}

// Apply returns the drill-down result when it improves on the original,
// otherwise the original. The returned string is the drill-down subject
// ("" when no drill-down happened).
func (d *DrillDown) Apply(ctx context.Context, spec *models.QuerySpec, result *models.QueryResult) (*models.QueryResult, string) {
	if result == nil || !result.HasData() || result.RowCount() != 1 {
		return result, ""
	}
	row := result.Data[0]

	service := probeColumns(row, serviceColumns)
	resource := probeColumns(row, resourceColumns)
	if service == "" && resource == "" {
		return result, ""
	}
	if service != "" && !validation.ValidServiceCode(service) {
		service = ""
	}
	if resource != "" && !validation.ValidResourceID(resource) {
		resource = ""
	}
	if service == "" && resource == "" {
		return result, ""
	}

	follow := spec.Clone()
	follow.Intent = models.IntentCostBreakdown
	follow.Dimensions = []models.Dimension{models.DimUsageType}
	follow.SQL = ""
	follow.ARN = ""
	delete(follow.Metadata, models.MetaRelatedResourcesQuery)

	subject := service
	if service != "" {
		follow.Services = []string{service}
		follow.Metadata[models.MetaOriginalService] = service
	} else {
		subject = resource
		follow.Services = nil
		follow.Metadata[models.MetaResourceFilter] = resource
		follow.Metadata[models.MetaOriginalResource] = resource
	}

	drilled, err := d.source.Fetch(ctx, follow)
	if err != nil || !drilled.HasData() || drilled.RowCount() < 2 {
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Msg("Drill-down query failed; keeping original result")
			metrics.DrillDownsTotal.WithLabelValues("failed").Inc()
		} else {
			metrics.DrillDownsTotal.WithLabelValues("kept_original").Inc()
		}
		return result, ""
	}

	drilled.Metadata.ARNFallback = result.Metadata.ARNFallback
	drilled.Metadata.OriginalARN = result.Metadata.OriginalARN
	drilled.Metadata.BreakdownDimension = string(models.DimUsageType)
	drilled.Metadata.BreakdownDimensionLabel = "Usage Type"
	if drilled.Metadata.Extra == nil {
		drilled.Metadata.Extra = make(map[string]any)
	}
	drilled.Metadata.Extra[models.MetaDrilledDown] = true
	if service != "" {
		drilled.Metadata.Extra[models.MetaOriginalService] = service
	} else {
		drilled.Metadata.Extra[models.MetaOriginalResource] = resource
	}

	metrics.DrillDownsTotal.WithLabelValues("replaced").Inc()
	logging.Ctx(ctx).Info().Str("subject", subject).Msg("Auto drill-down replaced single-row result")
	return drilled, subject
}

func probeColumns(row models.Row, cols []string) string {
	for _, col := range cols {
		if v := models.RowString(row, col); v != "" {
			return v
		}
	}
	return ""
}
