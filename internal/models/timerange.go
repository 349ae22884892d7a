// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package models

import (
	"fmt"
	"time"
)

// Granularity is the time bucketing applied to a query. It is derived
// purely from the span of the time range, never set directly by callers.
type Granularity string

const (
	GranularityHourly    Granularity = "hourly"
	GranularityDaily     Granularity = "daily"
	GranularityWeekly    Granularity = "weekly"
	GranularityMonthly   Granularity = "monthly"
	GranularityQuarterly Granularity = "quarterly"
	GranularityYearly    Granularity = "yearly"
)

// TimeSource records how a time range entered the pipeline.
type TimeSource string

const (
	// TimeSourceExplicit means the range was parsed from the current utterance.
	TimeSourceExplicit TimeSource = "explicit"
	// TimeSourceInherited means the range was carried over from a prior turn.
	TimeSourceInherited TimeSource = "inherited"
	// TimeSourceDefault means no range was found and the 30-day default applied.
	TimeSourceDefault TimeSource = "default"
	// TimeSourceComparison marks a derived comparison period.
	TimeSourceComparison TimeSource = "comparison"
)

// PeriodType classifies the shape of a time range. Comparison-period
// derivation branches on it: full calendar periods compare against the
// prior calendar period, everything else against an equal-length window.
type PeriodType string

const (
	PeriodSingleDay           PeriodType = "single_day"
	PeriodRolling             PeriodType = "rolling"
	PeriodCalendarMonthFull   PeriodType = "calendar_month_full"
	PeriodCalendarMonthPart   PeriodType = "calendar_month_partial"
	PeriodCalendarQuarterFull PeriodType = "calendar_quarter_full"
	PeriodCalendarQuarterPart PeriodType = "calendar_quarter_partial"
	PeriodCalendarYearFull    PeriodType = "calendar_year_full"
	PeriodCalendarYearPart    PeriodType = "calendar_year_partial"
	PeriodSpecificDate        PeriodType = "specific_date"
	PeriodSpecificRange       PeriodType = "specific_range"
	PeriodComparison          PeriodType = "comparison"
)

// DefaultWindowDays is the rolling default window applied when no time
// expression is found and no prior context exists.
const DefaultWindowDays = 30

// DateFormat is the wire format for all CUR-facing dates.
const DateFormat = "2006-01-02"

// TimeRange is an absolute time window with presentation metadata.
// Invariant: Start <= End. Dates crossing into SQL use date-only bounds.
type TimeRange struct {
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Granularity Granularity `json:"granularity"`
	Description string      `json:"description"`
	Source      TimeSource  `json:"source"`
	PeriodType  PeriodType  `json:"period_type"`
}

// StartDate returns the start bound formatted as YYYY-MM-DD.
func (tr TimeRange) StartDate() string { return tr.Start.Format(DateFormat) }

// EndDate returns the end bound formatted as YYYY-MM-DD.
func (tr TimeRange) EndDate() string { return tr.End.Format(DateFormat) }

// Span returns the window length. A single day has a span of zero when
// both bounds carry the same date; SpanDays treats it as one day.
func (tr TimeRange) Span() time.Duration { return tr.End.Sub(tr.Start) }

// SpanDays returns the inclusive number of days the range covers.
func (tr TimeRange) SpanDays() int {
	return int(tr.End.Sub(tr.Start).Hours()/24) + 1
}

// IsZero reports whether the range is unset.
func (tr TimeRange) IsZero() bool { return tr.Start.IsZero() && tr.End.IsZero() }

// GranularityForSpan derives the bucketing from the window length:
// up to 2 days hourly, up to 90 days daily, monthly beyond that.
func GranularityForSpan(span time.Duration) Granularity {
	switch {
	case span <= 48*time.Hour:
		return GranularityHourly
	case span <= 90*24*time.Hour:
		return GranularityDaily
	default:
		return GranularityMonthly
	}
}

// WithDerivedGranularity returns a copy of the range with Granularity
// recomputed from its span.
func (tr TimeRange) WithDerivedGranularity() TimeRange {
	tr.Granularity = GranularityForSpan(tr.Span())
	return tr
}

// DefaultTimeRange returns the rolling last-30-days window anchored at now.
// The description advertises the default so users know no time expression
// was recognized.
func DefaultTimeRange(now time.Time) TimeRange {
	start := now.AddDate(0, 0, -DefaultWindowDays)
	return TimeRange{
		Start:       start,
		End:         now,
		Granularity: GranularityDaily,
		Description: fmt.Sprintf("Last %d days", DefaultWindowDays),
		Source:      TimeSourceDefault,
		PeriodType:  PeriodRolling,
	}
}

// TimeRangeResult bundles the primary window with an optional derived
// comparison period.
type TimeRangeResult struct {
	Primary             TimeRange  `json:"primary"`
	Comparison          *TimeRange `json:"comparison,omitempty"`
	IsComparisonRequest bool       `json:"is_comparison_request"`
}
