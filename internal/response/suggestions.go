// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package response

import (
	"fmt"

	"github.com/costlens/costlens/internal/models"
)

// maxSuggestions caps the next-steps list.
const maxSuggestions = 2

// buildSuggestions derives up to two follow-up queries from the intent
// and the data. The plain strings double as clickable suggestions in the
// API payload.
func buildSuggestions(spec *models.QuerySpec, result *models.QueryResult, convCtx *models.ConversationContext) []string {
	var out []string
	add := func(s string) {
		if len(out) < maxSuggestions {
			out = append(out, s)
		}
	}

	if convCtx != nil && convCtx.LastChartAggregated && len(convCtx.LastHiddenItems) > 0 {
		add(fmt.Sprintf("Show me the other %d items", len(convCtx.LastHiddenItems)))
	}

	labels := rowLabels(result.Data)

	switch spec.Intent {
	case models.IntentTopNRanking:
		if len(labels) > 0 && labels[0] != "" {
			add(fmt.Sprintf("Break down %s by usage type", labels[0]))
		}
		add("How does this compare to the previous period?")
	case models.IntentCostBreakdown:
		if result.Metadata.ARNFallback {
			add("Show the cost trend for these resources")
		} else {
			add("Show the daily trend for this period")
		}
		add("Which region drives most of this cost?")
	case models.IntentCostTrend:
		add("What caused the largest change?")
		add("Compare this to the previous period")
	case models.IntentComparative:
		if len(labels) > 0 && labels[0] != "" {
			add(fmt.Sprintf("Why did %s change the most?", labels[0]))
		}
		add("Show the monthly trend for this year")
	case models.IntentAnomalyAnalysis:
		add("Break down the anomalous days by service")
		add("Show the same analysis for last month")
	case models.IntentOptimization:
		add("Show idle resources with zero usage")
		add("Which savings plan would cover this usage?")
	default:
		add("Show my top 5 services this month")
		add("How has spend trended over the last 3 months?")
	}
	return out
}
