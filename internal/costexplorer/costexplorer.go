// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package costexplorer is the degraded-mode data source used when Athena
// returns nothing for a service-level question. It answers only
// service-grouped cost totals: no ARNs, no dimensions beyond service,
// no SQL. The orchestrator gates eligibility before calling it.
package costexplorer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsce "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/costlens/costlens/internal/logging"
	"github.com/costlens/costlens/internal/metrics"
	"github.com/costlens/costlens/internal/models"
)

// API is the subset of the Cost Explorer SDK client used here.
type API interface {
	GetCostAndUsage(ctx context.Context, params *awsce.GetCostAndUsageInput, optFns ...func(*awsce.Options)) (*awsce.GetCostAndUsageOutput, error)
}

// Source implements datasource.DataSource over the Cost Explorer API.
type Source struct {
	api API
}

// New constructs the fallback source.
func New(api API) *Source { return &Source{api: api} }

// Name implements datasource.DataSource.
func (s *Source) Name() models.DataSourceName { return models.DataSourceCostExplorer }

// Fetch returns per-service cost totals for the spec's time range. The
// Cost Explorer end date is exclusive, so one day is added to the range's
// end bound.
func (s *Source) Fetch(ctx context.Context, spec *models.QuerySpec) (*models.QueryResult, error) {
	if spec == nil {
		return nil, errors.New("nil query spec")
	}
	start := time.Now()
	result := &models.QueryResult{
		Metadata: models.ResultMetadata{
			DataSource:           models.DataSourceCostExplorer,
			CostExplorerFallback: true,
		},
	}

	tr := spec.TimeRange
	if tr.IsZero() {
		result.Error = "query spec has no time range"
		return result, nil
	}

	input := &awsce.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(tr.StartDate()),
			End:   aws.String(tr.End.AddDate(0, 0, 1).Format(models.DateFormat)),
		},
		Granularity: cetypes.GranularityMonthly,
		Metrics:     []string{"UnblendedCost"},
		GroupBy: []cetypes.GroupDefinition{{
			Type: cetypes.GroupDefinitionTypeDimension,
			Key:  aws.String("SERVICE"),
		}},
	}
	if filter := accountFilter(spec.Accounts); filter != nil {
		input.Filter = filter
	}

	out, err := s.api.GetCostAndUsage(ctx, input)
	result.Metadata.ExecutionTimeMS = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = fmt.Sprintf("cost explorer query failed: %v", err)
		return result, nil
	}

	totals := make(map[string]float64)
	for _, period := range out.ResultsByTime {
		for _, group := range period.Groups {
			if len(group.Keys) == 0 {
				continue
			}
			amount, ok := group.Metrics["UnblendedCost"]
			if !ok || amount.Amount == nil {
				continue
			}
			cost, err := strconv.ParseFloat(aws.ToString(amount.Amount), 64)
			if err != nil {
				continue
			}
			totals[group.Keys[0]] += cost
		}
	}

	result.Data = make([]models.Row, 0, len(totals))
	for service, cost := range totals {
		result.Data = append(result.Data, models.Row{
			"service":  service,
			"cost_usd": cost,
		})
	}
	sort.Slice(result.Data, func(i, j int) bool {
		return models.RowCost(result.Data[i]) > models.RowCost(result.Data[j])
	})

	metrics.CostExplorerFallbacksTotal.Inc()
	logging.Ctx(ctx).Debug().Int("services", len(result.Data)).
		Msg("Cost Explorer fallback complete")
	return result, nil
}

// accountFilter scopes the call to linked accounts when the spec carries
// an allowlist.
func accountFilter(accounts []string) *cetypes.Expression {
	if len(accounts) == 0 {
		return nil
	}
	return &cetypes.Expression{
		Dimensions: &cetypes.DimensionValues{
			Key:    cetypes.DimensionLinkedAccount,
			Values: accounts,
		},
	}
}
