// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package response

import (
	"fmt"
	"time"

	"github.com/costlens/costlens/internal/models"
)

// buildSummary produces the one-sentence headline, branched on intent.
func buildSummary(spec *models.QuerySpec, result *models.QueryResult) string {
	rows := result.Data
	if len(rows) == 0 {
		return "No cost data was found for the requested scope and period."
	}
	total := result.TotalCost()
	labels := rowLabels(rows)

	switch spec.Intent {
	case models.IntentTopNRanking:
		topCost := models.RowCost(rows[0])
		pct := 0.0
		if total != 0 {
			pct = topCost / total * 100
		}
		return fmt.Sprintf("Your top %d cost drivers total %s, with %s leading at %s (%s).",
			len(rows), formatUSD(total), labels[0], formatUSD(topCost), formatPct(pct))

	case models.IntentCostBreakdown:
		if result.Metadata.ARNFallback {
			return fmt.Sprintf(
				"The resource itself shows no direct cost; %d related resources total %s over the period.",
				len(rows), formatUSD(total))
		}
		subject := "Cost"
		if len(spec.Services) > 0 {
			subject = spec.Services[0]
		}
		dim := result.Metadata.BreakdownDimensionLabel
		if dim == "" {
			dim = "item"
		}
		return fmt.Sprintf("%s breakdown across %d %ss totals %s.",
			subject, len(rows), dim, formatUSD(total))

	case models.IntentAnomalyAnalysis:
		count, largest := anomalyStats(rows)
		if count == 0 {
			return fmt.Sprintf("No significant anomalies (|z| > 2) across %d periods.", len(rows))
		}
		return fmt.Sprintf("%d of %d periods are anomalous (|z| > 2), the largest deviating by %.1f standard deviations.",
			count, len(rows), largest)

	case models.IntentCostTrend:
		first, last := models.RowCost(rows[0]), models.RowCost(rows[len(rows)-1])
		direction := "held steady"
		if last > first {
			direction = "increased"
		} else if last < first {
			direction = "decreased"
		}
		return fmt.Sprintf("Costs %s from %s to %s across %d periods (total %s).",
			direction, formatUSD(first), formatUSD(last), len(rows), formatUSD(total))

	case models.IntentComparative:
		cur, prev := comparisonTotals(rows)
		if prev == 0 && cur == 0 {
			return "Both periods show no cost."
		}
		delta := cur - prev
		direction := "up"
		if delta < 0 {
			direction = "down"
		}
		if prev != 0 {
			return fmt.Sprintf("Current period is %s vs %s previously, %s %s (%s).",
				formatUSD(cur), formatUSD(prev), direction, formatUSD(abs(delta)),
				formatPct(abs(delta)/abs(prev)*100))
		}
		return fmt.Sprintf("Current period is %s vs %s previously, %s %s.",
			formatUSD(cur), formatUSD(prev), direction, formatUSD(abs(delta)))

	case models.IntentOptimization:
		return fmt.Sprintf("Identified %s of potential savings across %d opportunities, led by %s.",
			formatUSD(total), len(rows), labels[0])

	default:
		return fmt.Sprintf("Found %d results totaling %s.", len(rows), formatUSD(total))
	}
}

// anomalyStats counts |z| > 2 rows and returns the largest deviation.
func anomalyStats(rows []models.Row) (int, float64) {
	count := 0
	largest := 0.0
	for _, row := range rows {
		z, ok := models.ToFloat(row["z_score"])
		if !ok {
			continue
		}
		if abs(z) > 2 {
			count++
			if abs(z) > largest {
				largest = abs(z)
			}
		}
	}
	return count, largest
}

// comparisonTotals sums the two period columns across rows. All-negative
// totals (credit accounts) are reported as-is.
func comparisonTotals(rows []models.Row) (current, previous float64) {
	for _, row := range rows {
		if v, ok := models.ToFloat(row["current_period_cost"]); ok {
			current += v
		}
		if v, ok := models.ToFloat(row["previous_period_cost"]); ok {
			previous += v
		}
	}
	return current, previous
}

// buildAvailabilityWarning flags results whose actual date coverage falls
// well short of the requested window: under 30% of the span, or starting
// more than 7 days late.
func buildAvailabilityWarning(spec *models.QuerySpec, result *models.QueryResult) string {
	if spec.TimeRange.IsZero() || result.IsEmpty() {
		return ""
	}
	minDate, maxDate, ok := dataDateBounds(result.Data)
	if !ok {
		return ""
	}

	requested := spec.TimeRange.End.Sub(spec.TimeRange.Start)
	if requested <= 0 {
		return ""
	}
	actual := maxDate.Sub(minDate)

	lateStart := minDate.Sub(spec.TimeRange.Start) > 7*24*time.Hour
	thinCoverage := float64(actual) < 0.3*float64(requested)
	if !lateStart && !thinCoverage {
		return ""
	}
	return fmt.Sprintf(
		"Data is only available from %s to %s, which does not fully cover the requested period (%s to %s). Totals may understate actual spend.",
		minDate.Format(models.DateFormat), maxDate.Format(models.DateFormat),
		spec.TimeRange.StartDate(), spec.TimeRange.EndDate())
}

// dataDateBounds extracts the min and max dates present in the rows from
// any period-like column.
func dataDateBounds(rows []models.Row) (time.Time, time.Time, bool) {
	var minDate, maxDate time.Time
	found := false
	for _, row := range rows {
		col := periodColumn(row)
		if col == "" {
			return time.Time{}, time.Time{}, false
		}
		raw := models.RowString(row, col)
		if len(raw) > 10 {
			raw = raw[:10]
		}
		t, err := time.Parse(models.DateFormat, raw)
		if err != nil {
			continue
		}
		if !found || t.Before(minDate) {
			minDate = t
		}
		if !found || t.After(maxDate) {
			maxDate = t
		}
		found = true
	}
	return minDate, maxDate, found
}
