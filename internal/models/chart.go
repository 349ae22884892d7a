// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package models

// ChartType enumerates the render-ready chart kinds the builder emits.
type ChartType string

const (
	ChartColumn       ChartType = "column"
	ChartBar          ChartType = "bar"
	ChartLine         ChartType = "line"
	ChartArea         ChartType = "area"
	ChartPie          ChartType = "pie"
	ChartScatter      ChartType = "scatter"
	ChartStackedBar   ChartType = "stacked_bar"
	ChartClusteredBar ChartType = "clustered_bar"
)

// ChartDataset is one series of a chart.
type ChartDataset struct {
	Label string    `json:"label"`
	Data  []any     `json:"data"`
	Color string    `json:"color,omitempty"`
	Type  ChartType `json:"type,omitempty"`
}

// ChartData carries labels and datasets in the shape chart renderers
// consume directly. Scatter charts use point datasets without labels.
type ChartData struct {
	Labels   []string       `json:"labels,omitempty"`
	Datasets []ChartDataset `json:"datasets"`
}

// ChartPoint is a raw scatter point.
type ChartPoint struct {
	X any `json:"x"`
	Y any `json:"y"`
}

// Chart is a single render-ready chart specification.
type Chart struct {
	Type    ChartType      `json:"type"`
	Title   string         `json:"title"`
	XField  string         `json:"x"`
	YField  string         `json:"y"`
	Series  string         `json:"series,omitempty"`
	Data    ChartData      `json:"data"`
	Options map[string]any `json:"options,omitempty"`
}

// ChartRecommendation names the chart types suited to an intent together
// with the reason the recommender picked them.
type ChartRecommendation struct {
	Primary     ChartType `json:"primary"`
	Alternative ChartType `json:"alternative,omitempty"`
	Rationale   string    `json:"rationale,omitempty"`
}
