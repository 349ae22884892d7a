// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package response

import (
	"fmt"
	"sort"
	"strings"

	"github.com/costlens/costlens/internal/models"
)

// maxTableRows bounds generic markdown tables.
const maxTableRows = 20

// buildResultsSection renders the Results content: a markdown table when
// no charts accompany the response, otherwise a short prose recap.
// Breakdown results with few items always get the ranked table, and
// month-by-service series pivot into a month-columned table.
func buildResultsSection(spec *models.QuerySpec, result *models.QueryResult, hasCharts bool) string {
	rows := result.Data
	if len(rows) == 0 {
		return ""
	}

	if pivot := monthServicePivot(rows); pivot != "" {
		return pivot
	}

	breakdown := result.Metadata.BreakdownDimension != "" ||
		(spec.Intent == models.IntentCostBreakdown && len(rows) <= maxTableRows)
	if breakdown && len(rows) <= maxTableRows {
		return rankedTable(result)
	}

	if hasCharts {
		total := result.TotalCost()
		return fmt.Sprintf("%d rows returned, totaling %s. See the charts for the distribution.",
			len(rows), formatUSD(total))
	}
	return genericTable(rows)
}

// rankedTable renders rank | dimension | cost | share rows.
func rankedTable(result *models.QueryResult) string {
	rows := result.Data
	total := result.TotalCost()
	label := result.Metadata.BreakdownDimensionLabel
	if label == "" {
		label = "Item"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "| # | %s | Cost | Share |\n|---|---|---|---|\n", label)
	labels := rowLabels(rows)
	for i, row := range rows {
		cost := models.RowCost(row)
		share := "—"
		if total != 0 {
			share = formatPct(cost / total * 100)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, labels[i], formatUSD(cost), share)
	}
	return b.String()
}

// genericTable renders all columns of up to maxTableRows rows, columns
// sorted with labels first and costs last.
func genericTable(rows []models.Row) string {
	if len(rows) == 0 {
		return ""
	}
	cols := orderedColumns(rows[0])

	var b strings.Builder
	b.WriteString("| " + strings.Join(headerNames(cols), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat("---|", len(cols)) + "\n")

	limit := min(len(rows), maxTableRows)
	for _, row := range rows[:limit] {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = renderCell(col, row[col])
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	if len(rows) > limit {
		fmt.Fprintf(&b, "\n_%d more rows not shown._\n", len(rows)-limit)
	}
	return b.String()
}

// monthServicePivot renders time-series data carrying both a month and a
// service column as one row per service with month columns. Returns ""
// when the shape does not apply.
func monthServicePivot(rows []models.Row) string {
	if len(rows) == 0 {
		return ""
	}
	monthCol := ""
	for _, c := range []string{"month", "period"} {
		if _, ok := rows[0][c]; ok {
			monthCol = c
			break
		}
	}
	if monthCol == "" {
		return ""
	}
	if _, ok := rows[0]["service"]; !ok {
		return ""
	}

	months := make([]string, 0)
	monthSet := make(map[string]bool)
	services := make([]string, 0)
	cells := make(map[string]map[string]float64)
	for _, row := range rows {
		m := models.RowString(row, monthCol)
		if m == "" {
			if v := row[monthCol]; v != nil {
				m = fmt.Sprintf("%v", v)
			}
		}
		if len(m) > 7 {
			m = m[:7] // YYYY-MM
		}
		svc := models.RowString(row, "service")
		if svc == "" {
			return ""
		}
		if !monthSet[m] {
			monthSet[m] = true
			months = append(months, m)
		}
		if cells[svc] == nil {
			cells[svc] = make(map[string]float64)
			services = append(services, svc)
		}
		cells[svc][m] += models.RowCost(row)
	}
	if len(months) < 2 || len(services) < 2 {
		return ""
	}
	sort.Strings(months)

	var b strings.Builder
	b.WriteString("| Service | " + strings.Join(months, " | ") + " |\n")
	b.WriteString("|---|" + strings.Repeat("---|", len(months)) + "\n")
	for _, svc := range services {
		row := make([]string, len(months))
		for i, m := range months {
			row[i] = formatUSD(cells[svc][m])
		}
		b.WriteString("| " + svc + " | " + strings.Join(row, " | ") + " |\n")
	}
	return b.String()
}

// orderedColumns returns label columns first, time columns next, cost
// columns last, alphabetical within each group.
func orderedColumns(row models.Row) []string {
	var labels, times, costs []string
	for col := range row {
		lower := strings.ToLower(col)
		switch {
		case strings.Contains(lower, "cost") || strings.Contains(lower, "amount") || lower == "z_score":
			costs = append(costs, col)
		case periodColumnName(lower):
			times = append(times, col)
		default:
			labels = append(labels, col)
		}
	}
	sort.Strings(labels)
	sort.Strings(times)
	sort.Strings(costs)
	return append(append(labels, times...), costs...)
}

func periodColumnName(lower string) bool {
	for _, c := range periodColumns {
		if lower == c {
			return true
		}
	}
	return false
}

func headerNames(cols []string) []string {
	out := make([]string, len(cols))
	for i, col := range cols {
		parts := strings.Split(col, "_")
		for j, p := range parts {
			if p != "" {
				parts[j] = strings.ToUpper(p[:1]) + p[1:]
			}
		}
		out[i] = strings.Join(parts, " ")
	}
	return out
}

// renderCell formats one table cell; cost-like values as USD, account-like
// integers zero-padded back to 12 digits.
func renderCell(col string, v any) string {
	lower := strings.ToLower(col)
	if f, ok := models.ToFloat(v); ok {
		if strings.Contains(lower, "cost") {
			return formatUSD(f)
		}
		if strings.Contains(lower, "account") {
			return fmt.Sprintf("%012.0f", f)
		}
	}
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
