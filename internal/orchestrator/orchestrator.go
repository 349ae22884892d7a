// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package orchestrator coordinates data-source selection and the two
// empty-result rescues: the ARN related-resources re-query and the Cost
// Explorer cross-source fallback. It never formats; results pass through
// to the presentation layer unchanged.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/costlens/costlens/internal/datasource"
	"github.com/costlens/costlens/internal/logging"
	"github.com/costlens/costlens/internal/metrics"
	"github.com/costlens/costlens/internal/models"
)

// Orchestrator runs the fetch policy over a primary and an optional
// fallback data source.
type Orchestrator struct {
	primary  datasource.DataSource
	fallback datasource.DataSource // nil disables cross-source fallback
	now      func() time.Time
}

// New constructs an Orchestrator. fallback may be nil.
func New(primary, fallback datasource.DataSource) *Orchestrator {
	return &Orchestrator{primary: primary, fallback: fallback, now: time.Now}
}

// Execute applies defaults, fetches, and runs the rescue ladder. The
// returned result always carries a data source in its metadata.
func (o *Orchestrator) Execute(ctx context.Context, spec *models.QuerySpec) (*models.QueryResult, error) {
	if spec.Metadata == nil {
		spec.Metadata = make(map[string]any)
	}
	o.applyDefaults(spec)

	result, err := o.primary.Fetch(ctx, spec)
	if err != nil {
		return nil, err
	}

	// ARN rescue: the exact resource produced no rows, so look for
	// resources that share its service and naming.
	if result.Succeeded() && result.IsEmpty() && spec.ARN != "" {
		rescued, rerr := o.relatedResources(ctx, spec)
		if rerr == nil && rescued != nil {
			result = rescued
		}
	}

	// Cross-source fallback for service-level questions Athena could not
	// answer, typically because the CUR table is empty or lagging.
	if o.fallback != nil && result.IsEmpty() && fallbackEligible(spec) {
		logging.Ctx(ctx).Info().
			Str("intent", string(spec.Intent)).
			Msg("Falling back to Cost Explorer")
		fbResult, ferr := o.fallback.Fetch(ctx, spec)
		if ferr == nil && fbResult.HasData() {
			result = fbResult
		}
	}

	return result, nil
}

// applyDefaults fills in the top-N count and the rolling 30-day window
// when the caller left them unset.
func (o *Orchestrator) applyDefaults(spec *models.QuerySpec) {
	if spec.Intent == models.IntentTopNRanking {
		if _, ok := spec.MetaInt(models.MetaTopN); !ok {
			spec.Metadata[models.MetaTopN] = 5
		}
	}
	if spec.TimeRange.IsZero() {
		spec.TimeRange = models.DefaultTimeRange(o.now())
	}
}

// relatedResources builds and runs the rescue spec, tagging the result
// with the fallback provenance.
func (o *Orchestrator) relatedResources(ctx context.Context, spec *models.QuerySpec) (*models.QueryResult, error) {
	rescue := spec.Clone()
	rescue.Intent = models.IntentCostBreakdown
	rescue.Dimensions = []models.Dimension{models.DimResourceType}
	rescue.SQL = ""
	rescue.Metadata[models.MetaRelatedResourcesQuery] = true
	explanation := resourceTypeExplanation(spec.ARN)
	rescue.Metadata[models.MetaResourceTypeExplanation] = explanation

	logging.Ctx(ctx).Info().Str("arn", spec.ARN).Msg("Running ARN related-resources rescue")
	result, err := o.primary.Fetch(ctx, rescue)
	if err != nil {
		return nil, err
	}

	result.Metadata.ARNFallback = true
	result.Metadata.OriginalARN = spec.ARN
	result.Metadata.ResourceTypeExplanation = explanation
	metrics.ARNFallbacksTotal.Inc()
	return result, nil
}

// fallbackEligible restricts the Cost Explorer fallback to questions it
// can actually answer: service-level totals only.
func fallbackEligible(spec *models.QuerySpec) bool {
	if spec.ARN != "" {
		return false
	}
	if spec.Intent != models.IntentCostBreakdown && spec.Intent != models.IntentTopNRanking {
		return false
	}
	if len(spec.Services) > 0 {
		return false
	}
	for _, dim := range spec.Dimensions {
		if dim != models.DimService {
			return false
		}
	}
	return true
}

// resourceTypeExplanation phrases what the rescue rows represent, keyed on
// the ARN's shape.
func resourceTypeExplanation(arn string) string {
	lower := strings.ToLower(arn)
	switch {
	case strings.Contains(lower, ":cluster/") || strings.Contains(lower, "cluster:"):
		return "The cluster itself carries no direct cost; these are the resources running on it."
	case strings.Contains(lower, ":vpc/") || strings.Contains(lower, ":vpc:"):
		return "The VPC itself carries no direct cost; these are the network resources inside it."
	case strings.Contains(lower, "security-group"):
		return "Security groups carry no direct cost; these are the resources they are attached to."
	default:
		return "No direct cost was found for this resource; these are related resources that share its naming."
	}
}
