// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package athena

import (
	"fmt"
	"strings"

	"github.com/costlens/costlens/internal/models"
	"github.com/costlens/costlens/internal/validation"
)

// effectiveCost charges savings-plan and reservation usage at their
// effective rates, falling back to unblended cost.
const effectiveCost = `COALESCE(NULLIF(savings_plan_savings_plan_effective_cost, 0), NULLIF(reservation_effective_cost, 0), line_item_unblended_cost)`

// resourceTypeCase classifies a resource id into a human bucket for the
// related-resources rescue query.
const resourceTypeCase = `CASE
  WHEN line_item_resource_id LIKE '%:task/%' THEN 'ECS Task'
  WHEN line_item_resource_id LIKE '%:service/%' THEN 'ECS Service'
  WHEN line_item_resource_id LIKE '%:instance/%' OR line_item_resource_id LIKE 'i-%' THEN 'EC2 Instance'
  WHEN line_item_resource_id LIKE '%:db:%' THEN 'RDS Database'
  WHEN line_item_resource_id LIKE '%:loadbalancer/%' THEN 'Load Balancer'
  WHEN line_item_resource_id LIKE '%:function:%' THEN 'Lambda Function'
  WHEN line_item_resource_id LIKE '%natgateway%' THEN 'NAT Gateway'
  ELSE 'Resource'
END`

// dimensionColumns maps breakdown dimensions to CUR columns.
var dimensionColumns = map[models.Dimension]string{
	models.DimService:        "line_item_product_code",
	models.DimRegion:         "product_region_code",
	models.DimAccount:        "line_item_usage_account_id",
	models.DimUsageType:      "line_item_usage_type",
	models.DimOperation:      "line_item_operation",
	models.DimInstanceType:   "product_instance_type",
	models.DimDatabaseEngine: "product_database_engine",
	models.DimARN:            "line_item_resource_id",
}

// composeSQL builds the statement for a programmatic (non-LLM) spec.
func (d *Driver) composeSQL(spec *models.QuerySpec) (string, error) {
	tr := spec.TimeRange
	if tr.IsZero() {
		return "", fmt.Errorf("query spec has no time range")
	}

	switch {
	case spec.MetaBool(models.MetaRelatedResourcesQuery) && spec.ARN != "":
		return d.relatedResourcesSQL(spec.ARN, tr), nil
	case spec.ARN != "":
		return d.resourceCostSQL(spec.ARN, tr), nil
	}

	switch spec.Intent {
	case models.IntentTopNRanking:
		n, ok := spec.MetaInt(models.MetaTopN)
		if !ok || n <= 0 {
			n = 5
		}
		return d.topServicesSQL(tr, n), nil
	case models.IntentCostBreakdown:
		dim := models.DimService
		if len(spec.Dimensions) > 0 {
			dim = spec.Dimensions[0]
		}
		return d.breakdownSQL(spec, dim, tr)
	case models.IntentCostTrend:
		return d.trendSQL(spec.Services, tr), nil
	case models.IntentComparative:
		return d.comparisonSQL(spec, tr), nil
	case models.IntentAnomalyAnalysis:
		return d.anomalySQL(tr), nil
	default:
		return d.breakdownSQL(spec, models.DimService, tr)
	}
}

// dateFilter predicates on date-only bounds, inclusive of both ends.
func dateFilter(tr models.TimeRange) string {
	return fmt.Sprintf(`CAST(line_item_usage_start_date AS DATE) BETWEEN DATE '%s' AND DATE '%s'`,
		tr.StartDate(), tr.EndDate())
}

// serviceFilter returns an additional AND clause for a service list, or "".
func serviceFilter(services []string) string {
	valid := make([]string, 0, len(services))
	for _, s := range services {
		if validation.ValidServiceCode(s) {
			valid = append(valid, validation.QuoteSQLString(s))
		}
	}
	if len(valid) == 0 {
		return ""
	}
	return fmt.Sprintf(" AND line_item_product_code IN (%s)", strings.Join(valid, ", "))
}

func (d *Driver) topServicesSQL(tr models.TimeRange, n int) string {
	return fmt.Sprintf(`SELECT line_item_product_code AS service, SUM(%s) AS cost_usd
FROM %s
WHERE %s
GROUP BY line_item_product_code
ORDER BY cost_usd DESC
LIMIT %d`, effectiveCost, d.cfg.Table, dateFilter(tr), n)
}

func (d *Driver) breakdownSQL(spec *models.QuerySpec, dim models.Dimension, tr models.TimeRange) (string, error) {
	col, ok := dimensionColumns[dim]
	if !ok {
		return "", fmt.Errorf("unsupported breakdown dimension %q", dim)
	}
	extra := serviceFilter(spec.Services)
	if res := spec.MetaString(models.MetaResourceFilter); res != "" && validation.ValidResourceID(res) {
		extra += " AND line_item_resource_id = " + validation.QuoteSQLString(res)
	}
	return fmt.Sprintf(`SELECT %s AS dimension_value, SUM(%s) AS cost_usd
FROM %s
WHERE %s%s
GROUP BY %s
ORDER BY cost_usd DESC
LIMIT 50`, col, effectiveCost, d.cfg.Table, dateFilter(tr), extra, col), nil
}

func (d *Driver) resourceCostSQL(arn string, tr models.TimeRange) string {
	quoted := validation.QuoteSQLString(arn)
	return fmt.Sprintf(`SELECT line_item_resource_id AS resource_id, line_item_product_code AS service,
  SUM(%s) AS cost_usd, SUM(line_item_usage_amount) AS usage_amount
FROM %s
WHERE %s
  AND (line_item_resource_id = %s OR line_item_resource_id LIKE %s)
GROUP BY line_item_resource_id, line_item_product_code
ORDER BY cost_usd DESC`, effectiveCost, d.cfg.Table, dateFilter(tr), quoted,
		validation.QuoteSQLString("%"+arnSuffix(arn)))
}

// relatedResourcesSQL LIKE-matches resources sharing the ARN's service and
// name fragment or its service, region, and account, excluding the ARN
// itself. Used when the exact resource produced no rows.
func (d *Driver) relatedResourcesSQL(arn string, tr models.TimeRange) string {
	patterns := deriveARNPatterns(arn)
	likes := make([]string, len(patterns))
	for i, p := range patterns {
		likes[i] = "line_item_resource_id LIKE " + validation.QuoteSQLString(p)
	}
	return fmt.Sprintf(`SELECT %s AS resource_type,
  line_item_resource_id AS resource_id,
  SUM(%s) AS cost_usd
FROM %s
WHERE %s
  AND (%s)
  AND line_item_resource_id <> %s
GROUP BY %s, line_item_resource_id
ORDER BY cost_usd DESC
LIMIT 25`, resourceTypeCase, effectiveCost, d.cfg.Table, dateFilter(tr),
		strings.Join(likes, " OR "), validation.QuoteSQLString(arn), resourceTypeCase)
}

// comparisonSQL renders current and previous period costs side by side.
// The comparison window comes from spec metadata when the resolver derived
// one; otherwise an equal-length preceding window applies.
func (d *Driver) comparisonSQL(spec *models.QuerySpec, tr models.TimeRange) string {
	prevStart := spec.MetaString(models.MetaComparisonStart)
	prevEnd := spec.MetaString(models.MetaComparisonEnd)
	if prevStart == "" || prevEnd == "" {
		span := tr.End.Sub(tr.Start)
		prevEnd = tr.Start.AddDate(0, 0, -1).Format(models.DateFormat)
		prevStart = tr.Start.Add(-span).AddDate(0, 0, -1).Format(models.DateFormat)
	}
	return fmt.Sprintf(`SELECT line_item_product_code AS service,
  SUM(CASE WHEN %s THEN %s ELSE 0 END) AS current_period_cost,
  SUM(CASE WHEN CAST(line_item_usage_start_date AS DATE) BETWEEN DATE '%s' AND DATE '%s' THEN %s ELSE 0 END) AS previous_period_cost
FROM %s
WHERE CAST(line_item_usage_start_date AS DATE) BETWEEN DATE '%s' AND DATE '%s'%s
GROUP BY line_item_product_code
ORDER BY current_period_cost DESC
LIMIT 15`, dateFilter(tr), effectiveCost,
		prevStart, prevEnd, effectiveCost,
		d.cfg.Table, prevStart, tr.EndDate(), serviceFilter(spec.Services))
}

func (d *Driver) trendSQL(services []string, tr models.TimeRange) string {
	bucket := "month"
	if tr.Granularity == models.GranularityDaily || tr.Granularity == models.GranularityHourly {
		bucket = "day"
	}
	return fmt.Sprintf(`SELECT DATE_TRUNC('%s', line_item_usage_start_date) AS period, SUM(%s) AS cost_usd
FROM %s
WHERE %s%s
GROUP BY 1
ORDER BY 1`, bucket, effectiveCost, d.cfg.Table, dateFilter(tr), serviceFilter(services))
}

// anomalySQL computes a per-day z-score over total cost so outlier days
// surface with their deviation.
func (d *Driver) anomalySQL(tr models.TimeRange) string {
	return fmt.Sprintf(`WITH daily AS (
  SELECT CAST(line_item_usage_start_date AS DATE) AS usage_date, SUM(%s) AS cost_usd
  FROM %s
  WHERE %s
  GROUP BY 1
),
stats AS (
  SELECT AVG(cost_usd) AS mean_cost, STDDEV(cost_usd) AS stddev_cost FROM daily
)
SELECT d.usage_date, d.cost_usd,
  CASE WHEN s.stddev_cost > 0 THEN (d.cost_usd - s.mean_cost) / s.stddev_cost ELSE 0 END AS z_score
FROM daily d CROSS JOIN stats s
ORDER BY d.usage_date`, effectiveCost, d.cfg.Table, dateFilter(tr))
}

// deriveARNPatterns builds the two LIKE patterns used by the rescue query:
// service plus resource-name fragment, and service plus region plus
// account.
func deriveARNPatterns(arn string) []string {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) < 6 {
		return []string{"%" + arn + "%"}
	}
	service, region, account, resource := parts[2], parts[3], parts[4], parts[5]

	// The resource-name fragment is the last path or colon segment.
	fragment := resource
	if idx := strings.LastIndexAny(fragment, "/:"); idx >= 0 {
		fragment = fragment[idx+1:]
	}

	patterns := []string{"%:" + service + ":%" + fragment + "%"}
	if region != "" && account != "" {
		patterns = append(patterns, "%:"+service+":"+region+":"+account+":%")
	}
	return patterns
}

// arnSuffix returns the trailing resource segment of an ARN for suffix
// matching, or the whole string for bare resource ids.
func arnSuffix(arn string) string {
	if idx := strings.LastIndexAny(arn, "/:"); idx >= 0 && idx < len(arn)-1 {
		return arn[idx+1:]
	}
	return arn
}
