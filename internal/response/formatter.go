// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package response renders a QueryResult into the final narrative and
// the typed envelope the API returns. Sections are emitted in a fixed
// order, each omitted when empty: Summary, availability warning,
// Insights, Results, Methodology, Scope, Next steps. The LLM narrative
// contributes insights and recommendations after placeholder
// substitution; everything else is computed from the rows.
package response

import (
	"fmt"
	"sort"
	"strings"

	"github.com/costlens/costlens/internal/models"
	"github.com/costlens/costlens/internal/scope"
)

// Input carries everything one formatting pass needs.
type Input struct {
	Spec        *models.QuerySpec
	Result      *models.QueryResult
	Explanation string
	Charts      []models.Chart
	Scope       *scope.RequestContext
	Query       string
	ConvContext *models.ConversationContext
}

// Build produces the UnifiedResponse for a successful pipeline run.
func Build(in Input) *models.UnifiedResponse {
	result := in.Result
	explanation := substitutePlaceholders(in.Explanation, result.Data)
	llmSections := splitSections(explanation)

	summary := buildSummary(in.Spec, result)

	var sections []string
	appendSection := func(name, content string) {
		if strings.TrimSpace(content) != "" {
			sections = append(sections, fmt.Sprintf("**%s:**\n%s", name, strings.TrimSpace(content)))
		}
	}

	appendSection("Summary", summary)
	appendSection("Warning", buildAvailabilityWarning(in.Spec, result))

	insightsBody := normalizeBullets(llmSections["insights"])
	if insightsBody == "" {
		insightsBody = defaultInsights(in.Spec, result)
	}
	appendSection("Insights", insightsBody)

	appendSection("Results", buildResultsSection(in.Spec, result, len(in.Charts) > 0))

	if in.Spec.MetaBool(models.MetaExplanationRequest) {
		appendSection("Methodology", buildMethodology(in.Spec, result))
	}

	if recs := normalizeNumbered(llmSections["recommendations"]); recs != "" {
		appendSection("Recommendations", recs)
	}

	appendSection("Scope", buildScopeSection(in.Spec, in.Scope))

	suggestions := buildSuggestions(in.Spec, result, in.ConvContext)
	if len(suggestions) > 0 {
		var b strings.Builder
		for _, s := range suggestions {
			b.WriteString("- " + s + "\n")
		}
		appendSection("Next steps", b.String())
	}

	message := strings.Join(sections, "\n\n")
	parsedSummary, insights, recommendations := parseStructured(message)
	if parsedSummary == "" {
		parsedSummary = summary
	}

	sqlCopy := result.Metadata.SQLQuery
	var athenaQuery *string
	if sqlCopy != "" {
		athenaQuery = &sqlCopy
	}

	resp := &models.UnifiedResponse{
		Status:          models.StatusSuccess,
		Summary:         parsedSummary,
		Message:         message,
		Insights:        insights,
		Recommendations: recommendations,
		Results:         result.Data,
		Charts:          in.Charts,
		Suggestions:     suggestions,
		AthenaQuery:     athenaQuery,
		Metadata: models.ResponseMetadata{
			QueryID:              in.Spec.QueryID,
			DataSource:           result.Metadata.DataSource,
			ExecutionTimeMS:      result.Metadata.ExecutionTimeMS,
			RowCount:             result.RowCount(),
			TotalCost:            result.TotalCost(),
			ARNFallback:          result.Metadata.ARNFallback,
			OriginalARN:          result.Metadata.OriginalARN,
			CostExplorerFallback: result.Metadata.CostExplorerFallback,
		},
	}
	if in.Spec.MetaBool(models.MetaAccountFilterEnforced) {
		resp.Metadata.AccountFilterEnforced = true
	}
	if result.Metadata.Extra != nil {
		if v, ok := result.Metadata.Extra[models.MetaDrilledDown].(bool); ok && v {
			resp.Metadata.DrilledDown = true
		}
	}
	if in.Scope != nil {
		tr := in.Spec.TimeRange
		resp.Metadata.Scope = in.Scope.ScopeMetadata(&tr)
	}
	return resp
}

// defaultInsights generates intent-specific bullets when the narrative
// supplied none.
func defaultInsights(spec *models.QuerySpec, result *models.QueryResult) string {
	rows := result.Data
	if len(rows) == 0 {
		return ""
	}
	total := result.TotalCost()
	labels := rowLabels(rows)
	var b strings.Builder

	switch spec.Intent {
	case models.IntentTopNRanking, models.IntentCostBreakdown, models.IntentOptimization:
		if total != 0 && len(rows) >= 2 {
			top2 := models.RowCost(rows[0]) + models.RowCost(rows[1])
			fmt.Fprintf(&b, "- **Concentration:** the top 2 items account for %s of total spend\n",
				formatPct(top2/total*100))
		}
		if labels[0] != "" && total != 0 {
			fmt.Fprintf(&b, "- **Leading driver:** %s at %s (%s of total)\n",
				labels[0], formatUSD(models.RowCost(rows[0])),
				formatPct(models.RowCost(rows[0])/total*100))
		}
	case models.IntentAnomalyAnalysis:
		count, largest := anomalyStats(rows)
		fmt.Fprintf(&b, "- **Outliers:** %d periods deviate by more than 2 standard deviations\n", count)
		if count > 0 {
			fmt.Fprintf(&b, "- **Largest deviation:** %.1f standard deviations from the mean\n", largest)
		}
	case models.IntentCostTrend, models.IntentComparative:
		first, last := models.RowCost(rows[0]), models.RowCost(rows[len(rows)-1])
		if first != 0 {
			fmt.Fprintf(&b, "- **Growth:** %s change from first to last period\n",
				formatPct((last-first)/abs(first)*100))
		}
		if spec.Intent == models.IntentComparative {
			cur, prev := comparisonTotals(rows)
			if prev < 0 && cur < 0 {
				b.WriteString("- **Credits:** both periods are net-negative; totals reflect credits exceeding usage\n")
			}
		}
	}
	return b.String()
}

// buildMethodology describes how the numbers were computed, for
// explanation requests only.
func buildMethodology(spec *models.QuerySpec, result *models.QueryResult) string {
	var b strings.Builder
	b.WriteString("Costs are summed from CUR line items using the effective-cost expression, " +
		"which charges savings-plan and reservation usage at effective rates and everything else unblended.\n")
	if dim := result.Metadata.BreakdownDimensionLabel; dim != "" {
		fmt.Fprintf(&b, "Rows are grouped by %s.\n", dim)
	}
	labels := rowLabels(result.Data)
	topN := min(3, len(labels))
	if topN > 0 {
		parts := make([]string, 0, topN)
		for i := 0; i < topN; i++ {
			parts = append(parts, fmt.Sprintf("%s (%s)", labels[i], formatUSD(models.RowCost(result.Data[i]))))
		}
		b.WriteString("Top contributors: " + strings.Join(parts, ", ") + ".")
	}
	return b.String()
}

// buildScopeSection reports the effective period and filters.
func buildScopeSection(spec *models.QuerySpec, rc *scope.RequestContext) string {
	var parts []string
	if !spec.TimeRange.IsZero() {
		desc := spec.TimeRange.Description
		if desc == "" {
			desc = "Period"
		}
		parts = append(parts, fmt.Sprintf("%s (%s to %s)", desc,
			spec.TimeRange.StartDate(), spec.TimeRange.EndDate()))
	}
	if len(spec.Services) > 0 {
		parts = append(parts, "services: "+strings.Join(spec.Services, ", "))
	}
	if len(spec.Regions) > 0 {
		parts = append(parts, "regions: "+strings.Join(spec.Regions, ", "))
	}
	if rc != nil && !rc.IsAdmin {
		accounts := append([]string(nil), rc.AllowedAccountIDs...)
		sort.Strings(accounts)
		parts = append(parts, fmt.Sprintf("%d account(s): %s", len(accounts), strings.Join(accounts, ", ")))
	} else if len(spec.Accounts) > 0 {
		parts = append(parts, "accounts: "+strings.Join(spec.Accounts, ", "))
	}
	return strings.Join(parts, "; ")
}

// normalizeBullets reformats free-form insight lines as dash bullets.
func normalizeBullets(body string) string {
	lines := itemLines(body)
	if len(lines) == 0 && strings.TrimSpace(body) != "" {
		// Single-paragraph insights become one bullet.
		lines = []string{strings.TrimSpace(body)}
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("- " + l + "\n")
	}
	return b.String()
}

// normalizeNumbered reformats recommendation lines as a numbered list.
func normalizeNumbered(body string) string {
	lines := itemLines(body)
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, l)
	}
	return b.String()
}
