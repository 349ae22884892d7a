// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package response

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/costlens/costlens/internal/logging"
	"github.com/costlens/costlens/internal/models"
)

// placeholderRe matches ${Var} and the double-brace ${{Var}} form some
// models emit.
var placeholderRe = regexp.MustCompile(`\$\{\{?([A-Za-z][A-Za-z0-9]*)\}?\}`)

// substitutePlaceholders replaces ${Var} tokens in the narrative with
// values computed from the final rows. Unknown variables become "N/A";
// substitution failure is never fatal.
func substitutePlaceholders(text string, rows []models.Row) string {
	if !strings.Contains(text, "${") {
		return text
	}
	values := placeholderValues(rows)
	return placeholderRe.ReplaceAllStringFunc(text, func(token string) string {
		name := placeholderRe.FindStringSubmatch(token)[1]
		if v, ok := values[name]; ok {
			return v
		}
		logging.Debug().Str("placeholder", name).Msg("Unknown narrative placeholder")
		return "N/A"
	})
}

// placeholderValues computes every supported variable from the rows.
func placeholderValues(rows []models.Row) map[string]string {
	values := make(map[string]string)
	if len(rows) == 0 {
		return values
	}

	var total float64
	costs := make([]float64, len(rows))
	for i, row := range rows {
		costs[i] = models.RowCost(row)
		total += costs[i]
	}

	values["TotalCost"] = formatUSD(total)
	values["NumItems"] = fmt.Sprintf("%d", len(rows))

	labels := rowLabels(rows)
	for i := 0; i < 3 && i < len(labels); i++ {
		values[fmt.Sprintf("Item%d", i+1)] = labels[i]
	}
	if len(labels) > 0 {
		values["TopItem"] = labels[0]
		values["TopCost"] = formatUSD(costs[0])
		if total != 0 {
			values["TopPct"] = formatPct(costs[0] / total * 100)
			values["Top2Pct"] = formatPct(sumHead(costs, 2) / total * 100)
			values["Top3Pct"] = formatPct(sumHead(costs, 3) / total * 100)
			values["Top5Pct"] = formatPct(sumHead(costs, 5) / total * 100)
		}
	}

	// Two-period comparisons get delta variables when a period-like
	// column is present.
	if len(rows) == 2 {
		if col := periodColumn(rows[0]); col != "" {
			p1, p2 := costs[0], costs[1]
			values["Period1"] = models.RowString(rows[0], col)
			values["Period2"] = models.RowString(rows[1], col)
			values["Period1Cost"] = formatUSD(p1)
			values["Period2Cost"] = formatUSD(p2)
			values["Difference"] = formatUSD(abs(p2 - p1))
			switch {
			case p2 > p1:
				values["TrendDirection"] = "increased"
			case p2 < p1:
				values["TrendDirection"] = "decreased"
			default:
				values["TrendDirection"] = "held steady"
			}
		}
	}
	return values
}

// rowLabels picks the best label column per row: the first non-cost
// string-valued column, preferring well-known names.
var labelColumns = []string{"service", "dimension_value", "resource_id", "resource_type", "usage_type", "region", "account"}

func rowLabels(rows []models.Row) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		label := ""
		for _, col := range labelColumns {
			if v := models.RowString(row, col); v != "" {
				label = v
				break
			}
		}
		if label == "" {
			for col, v := range row {
				if s, ok := v.(string); ok && s != "" && !strings.Contains(col, "cost") {
					label = s
					break
				}
			}
		}
		out = append(out, label)
	}
	return out
}

var periodColumns = []string{"period", "month", "usage_date", "date", "week"}

func periodColumn(row models.Row) string {
	for _, col := range periodColumns {
		if _, ok := row[col]; ok {
			return col
		}
	}
	return ""
}

func sumHead(vals []float64, n int) float64 {
	var s float64
	for i := 0; i < n && i < len(vals); i++ {
		s += vals[i]
	}
	return s
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// formatUSD renders a dollar amount with thousands separators, keeping
// the sign outside the symbol for credits.
func formatUSD(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + frac
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
