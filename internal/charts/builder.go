// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package charts

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/costlens/costlens/internal/models"
)

// palette cycles through series colors in legend order.
var palette = []string{
	"#4C78A8", "#F58518", "#54A24B", "#E45756", "#72B7B2",
	"#B279A2", "#FF9DA6", "#9D755D", "#BAB0AC", "#EECA3B",
}

const (
	// topLevelLimit triggers the Others aggregation on top-level charts.
	topLevelLimit = 5
	// breakdownLimit caps explicit breakdowns, which never aggregate.
	breakdownLimit = 15
	// clipLimit bounds rows considered before any aggregation.
	clipLimit = 20
	// pieLimit caps pie slices.
	pieLimit = 10
)

// Build materializes the recommended specs against the result rows,
// recording aggregation state into the conversation context so the next
// turn can expand "the others".
func Build(specs []Spec, result *models.QueryResult, qspec *models.QuerySpec, convCtx *models.ConversationContext) []models.Chart {
	if result == nil || result.IsEmpty() || len(specs) == 0 {
		return nil
	}
	charts := make([]models.Chart, 0, len(specs))
	for _, s := range specs {
		var chart *models.Chart
		switch s.Type {
		case models.ChartLine, models.ChartArea:
			if s.Series != "" {
				chart = buildMultiSeries(s, result.Data)
			} else {
				chart = buildSingleSeries(s, result.Data)
			}
		case models.ChartClusteredBar:
			chart = buildClusteredBar(s, result.Data)
		case models.ChartPie:
			chart = buildPie(s, result.Data)
		case models.ChartScatter:
			chart = buildScatter(s, result.Data)
		default:
			chart = buildBar(s, result.Data, isBreakdown(qspec, result), convCtx)
		}
		if chart != nil {
			charts = append(charts, *chart)
		}
	}
	return charts
}

// isBreakdown distinguishes explicit breakdowns (no Others aggregation,
// more items shown) from top-level rankings.
func isBreakdown(spec *models.QuerySpec, result *models.QueryResult) bool {
	if result.Metadata.BreakdownDimension != "" || result.Metadata.TopServiceBreakdown {
		return true
	}
	if spec == nil {
		return false
	}
	if spec.MetaBool(models.MetaBreakdownService) {
		return true
	}
	if spec.Intent == models.IntentCostBreakdown && len(spec.Dimensions) > 0 && spec.Dimensions[0] != models.DimService {
		return true
	}
	return false
}

// buildBar renders column/bar charts and owns the Others aggregation.
func buildBar(s Spec, rows []models.Row, breakdown bool, convCtx *models.ConversationContext) *models.Chart {
	items := extractPairs(rows, s.XField, s.YField)
	if len(items) == 0 {
		return nil
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].value > items[j].value })
	if len(items) > clipLimit {
		items = items[:clipLimit]
	}

	limit := breakdownLimit
	aggregate := false
	if !breakdown && len(items) > topLevelLimit {
		limit = topLevelLimit
		aggregate = true
	}

	shown := items
	var hidden []pair
	if len(items) > limit {
		shown, hidden = items[:limit], items[limit:]
	}

	labels := make([]string, 0, len(shown)+1)
	values := make([]any, 0, len(shown)+1)
	shownNames := make([]string, 0, len(shown))
	for _, it := range shown {
		labels = append(labels, it.label)
		values = append(values, it.value)
		shownNames = append(shownNames, it.label)
	}

	if aggregate && len(hidden) > 0 {
		var rest float64
		hiddenNames := make([]string, 0, len(hidden))
		for _, it := range hidden {
			rest += it.value
			hiddenNames = append(hiddenNames, it.label)
		}
		labels = append(labels, fmt.Sprintf("Others (%d items)", len(hidden)))
		values = append(values, rest)
		if convCtx != nil {
			convCtx.LastShownTopItems = shownNames
			convCtx.LastHiddenItems = hiddenNames
			convCtx.LastChartAggregated = true
		}
	} else if convCtx != nil {
		convCtx.LastShownTopItems = shownNames
		convCtx.LastHiddenItems = nil
		convCtx.LastChartAggregated = false
	}

	return &models.Chart{
		Type:   s.Type,
		Title:  s.Title,
		XField: s.XField,
		YField: s.YField,
		Data: models.ChartData{
			Labels: labels,
			Datasets: []models.ChartDataset{{
				Label: "Cost (USD)",
				Data:  values,
				Color: palette[0],
			}},
		},
	}
}

// buildSingleSeries sums duplicate x buckets, sorts by x, and pads both
// ends with empty buffer points so month labels clear the canvas edge.
func buildSingleSeries(s Spec, rows []models.Row) *models.Chart {
	sums := make(map[string]float64)
	for _, row := range rows {
		x := stringValue(row[s.XField])
		if y, ok := models.ToFloat(row[s.YField]); ok {
			sums[x] += y
		}
	}
	if len(sums) == 0 {
		return nil
	}
	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	labels := make([]string, 0, len(keys)+2)
	values := make([]any, 0, len(keys)+2)
	labels = append(labels, "")
	values = append(values, nil)
	for _, k := range keys {
		labels = append(labels, k)
		values = append(values, sums[k])
	}
	labels = append(labels, "")
	values = append(values, nil)

	return &models.Chart{
		Type:   s.Type,
		Title:  s.Title,
		XField: s.XField,
		YField: s.YField,
		Data: models.ChartData{
			Labels: labels,
			Datasets: []models.ChartDataset{{
				Label: "Cost (USD)",
				Data:  values,
				Color: palette[0],
			}},
		},
	}
}

// buildMultiSeries groups rows by the series column, one palette entry
// per series; missing buckets stay nil so renderers skip the connection.
func buildMultiSeries(s Spec, rows []models.Row) *models.Chart {
	bucketSet := make(map[string]bool)
	series := make(map[string]map[string]float64)
	var seriesOrder []string
	for _, row := range rows {
		x := stringValue(row[s.XField])
		name := stringValue(row[s.Series])
		y, ok := models.ToFloat(row[s.YField])
		if !ok {
			continue
		}
		bucketSet[x] = true
		if series[name] == nil {
			series[name] = make(map[string]float64)
			seriesOrder = append(seriesOrder, name)
		}
		series[name][x] += y
	}
	if len(series) == 0 {
		return nil
	}

	buckets := make([]string, 0, len(bucketSet))
	for b := range bucketSet {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)

	datasets := make([]models.ChartDataset, 0, len(seriesOrder))
	for i, name := range seriesOrder {
		data := make([]any, len(buckets))
		for j, b := range buckets {
			if v, ok := series[name][b]; ok {
				data[j] = v
			}
		}
		datasets = append(datasets, models.ChartDataset{
			Label: name,
			Data:  data,
			Color: palette[i%len(palette)],
		})
	}

	return &models.Chart{
		Type:   s.Type,
		Title:  s.Title,
		XField: s.XField,
		YField: s.YField,
		Series: s.Series,
		Data:   models.ChartData{Labels: buckets, Datasets: datasets},
	}
}

// buildClusteredBar renders period-over-period rows as two parallel
// series with period-labeled legends.
func buildClusteredBar(s Spec, rows []models.Row) *models.Chart {
	if !hasColumn(rows, "current_period_cost") || !hasColumn(rows, "previous_period_cost") {
		// Not comparison-shaped; a plain column chart serves better.
		fallback := s
		fallback.Type = models.ChartColumn
		return buildBar(fallback, rows, true, nil)
	}

	labels := make([]string, 0, len(rows))
	current := make([]any, 0, len(rows))
	previous := make([]any, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, stringValue(row[s.XField]))
		cur, _ := models.ToFloat(row["current_period_cost"])
		prev, _ := models.ToFloat(row["previous_period_cost"])
		current = append(current, cur)
		previous = append(previous, prev)
	}

	return &models.Chart{
		Type:   models.ChartClusteredBar,
		Title:  s.Title,
		XField: s.XField,
		YField: s.YField,
		Data: models.ChartData{
			Labels: labels,
			Datasets: []models.ChartDataset{
				{Label: "Current Period", Data: current, Color: palette[0]},
				{Label: "Previous Period", Data: previous, Color: palette[1]},
			},
		},
	}
}

func buildPie(s Spec, rows []models.Row) *models.Chart {
	items := extractPairs(rows, s.XField, s.YField)
	if len(items) == 0 {
		return nil
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].value > items[j].value })
	if len(items) > pieLimit {
		items = items[:pieLimit]
	}

	labels := make([]string, len(items))
	values := make([]any, len(items))
	colors := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.label
		values[i] = it.value
		colors[i] = palette[i%len(palette)]
	}
	return &models.Chart{
		Type:   models.ChartPie,
		Title:  s.Title,
		XField: s.XField,
		YField: s.YField,
		Data: models.ChartData{
			Labels: labels,
			Datasets: []models.ChartDataset{{
				Label: "Cost (USD)",
				Data:  values,
			}},
		},
		Options: map[string]any{"colors": colors},
	}
}

func buildScatter(s Spec, rows []models.Row) *models.Chart {
	points := make([]any, 0, len(rows))
	for _, row := range rows {
		if y, ok := models.ToFloat(row[s.YField]); ok {
			points = append(points, models.ChartPoint{X: row[s.XField], Y: y})
		}
	}
	if len(points) == 0 {
		return nil
	}
	return &models.Chart{
		Type:   models.ChartScatter,
		Title:  s.Title,
		XField: s.XField,
		YField: s.YField,
		Data: models.ChartData{
			Datasets: []models.ChartDataset{{
				Label: "Cost (USD)",
				Data:  points,
				Color: palette[0],
			}},
		},
	}
}

// pair is one label/value item extracted from a row.
type pair struct {
	label string
	value float64
}

func extractPairs(rows []models.Row, xField, yField string) []pair {
	out := make([]pair, 0, len(rows))
	for _, row := range rows {
		y, ok := models.ToFloat(row[yField])
		if !ok {
			continue
		}
		out = append(out, pair{label: stringValue(row[xField]), value: y})
	}
	return out
}

// stringValue renders any coerced cell as a label. Integer-valued labels
// that look like account IDs keep their digits; floats trim trailing
// zeros.
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return fmt.Sprintf("%d", t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
