// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package timerange resolves natural-language time expressions into
// absolute windows and merges them with prior conversation context.
//
// Parsing scans the lowercased text against an ordered table of
// (pattern, handler) pairs. The ordering is semantically significant:
// explicit date ranges match before single dates, month-day-year before
// month-year, and calendar phrases before relative phrases, so that
// "November 5, 2025" never half-matches as "November 2025".
package timerange

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/costlens/costlens/internal/models"
)

// Resolver parses and merges time expressions. The zero value is not
// usable; construct with New. Now is injectable for tests.
type Resolver struct {
	now func() time.Time
}

// New returns a Resolver anchored at the real clock.
func New() *Resolver {
	return &Resolver{now: time.Now}
}

// NewAt returns a Resolver with a fixed clock, for tests.
func NewAt(now func() time.Time) *Resolver {
	return &Resolver{now: now}
}

// patternHandler binds one compiled regex to the function that turns its
// submatches into a fully populated TimeRange.
type patternHandler struct {
	re      *regexp.Regexp
	handler func(m []string, now time.Time) (models.TimeRange, bool)
}

var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

const monthAlt = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

// patterns is the ordered resolution table. Earlier entries win.
var patterns = []patternHandler{
	// Explicit ISO range: "2025-11-01 to 2025-11-30"
	{
		re: regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s*(?:to|through|until|-)\s*(\d{4}-\d{2}-\d{2})`),
		handler: func(m []string, now time.Time) (models.TimeRange, bool) {
			start, err1 := time.Parse(models.DateFormat, m[1])
			end, err2 := time.Parse(models.DateFormat, m[2])
			if err1 != nil || err2 != nil || end.Before(start) {
				return models.TimeRange{}, false
			}
			return finish(models.TimeRange{
				Start:       start,
				End:         end,
				Description: fmt.Sprintf("%s to %s", m[1], m[2]),
				PeriodType:  models.PeriodSpecificRange,
			}), true
		},
	},
	// Single ISO date: "2025-11-05"
	{
		re: regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
		handler: func(m []string, now time.Time) (models.TimeRange, bool) {
			day, err := time.Parse(models.DateFormat, m[1])
			if err != nil {
				return models.TimeRange{}, false
			}
			return finish(models.TimeRange{
				Start:       day,
				End:         day,
				Description: m[1],
				PeriodType:  models.PeriodSpecificDate,
			}), true
		},
	},
	// Month day, year: "november 5, 2025" / "nov 5 2025"
	{
		re: regexp.MustCompile(`\b(` + monthAlt + `)\s+(\d{1,2})(?:st|nd|rd|th)?\s*,?\s+(\d{4})\b`),
		handler: func(m []string, now time.Time) (models.TimeRange, bool) {
			month := monthsByName[m[1]]
			dayNum, _ := strconv.Atoi(m[2])
			year, _ := strconv.Atoi(m[3])
			if dayNum < 1 || dayNum > 31 {
				return models.TimeRange{}, false
			}
			day := time.Date(year, month, dayNum, 0, 0, 0, 0, now.Location())
			return finish(models.TimeRange{
				Start:       day,
				End:         day,
				Description: day.Format("January 2, 2006"),
				PeriodType:  models.PeriodSpecificDate,
			}), true
		},
	},
	// Month year: "november 2025"
	{
		re: regexp.MustCompile(`\b(` + monthAlt + `)\s+(\d{4})\b`),
		handler: func(m []string, now time.Time) (models.TimeRange, bool) {
			month := monthsByName[m[1]]
			year, _ := strconv.Atoi(m[2])
			return calendarMonth(year, month, now), true
		},
	},
	// Quarter: "q3 2025", "q2"
	{
		re: regexp.MustCompile(`\bq([1-4])(?:\s+(\d{4}))?\b`),
		handler: func(m []string, now time.Time) (models.TimeRange, bool) {
			q, _ := strconv.Atoi(m[1])
			year := now.Year()
			if m[2] != "" {
				year, _ = strconv.Atoi(m[2])
			}
			return calendarQuarter(year, q, now), true
		},
	},
	// Full year: "full year 2025", "year 2025"
	{
		re: regexp.MustCompile(`\b(?:full\s+year|year)\s+(\d{4})\b`),
		handler: func(m []string, now time.Time) (models.TimeRange, bool) {
			year, _ := strconv.Atoi(m[1])
			return calendarYear(year, now), true
		},
	},
	// Year to date / month to date / week to date
	{
		re: regexp.MustCompile(`\b(ytd|year\s+to\s+date)\b`),
		handler: func(m []string, now time.Time) (models.TimeRange, bool) {
			start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
			return finish(models.TimeRange{
				Start:       start,
				End:         now,
				Description: fmt.Sprintf("%d year to date", now.Year()),
				PeriodType:  models.PeriodCalendarYearPart,
			}), true
		},
	},
	{
		re: regexp.MustCompile(`\b(mtd|month\s+to\s+date)\b`),
		handler: func(m []string, now time.Time) (models.TimeRange, bool) {
			start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
			return finish(models.TimeRange{
				Start:       start,
				End:         now,
				Description: now.Format("January 2006") + " month to date",
				PeriodType:  models.PeriodCalendarMonthPart,
			}), true
		},
	},
	{
		re: regexp.MustCompile(`\b(wtd|week\s+to\s+date)\b`),
		handler: func(m []string, now time.Time) (models.TimeRange, bool) {
			start := startOfWeek(now)
			return finish(models.TimeRange{
				Start:       start,
				End:         now,
				Description: "week to date",
				PeriodType:  models.PeriodRolling,
			}), true
		},
	},
	// "today"
	{
		re: regexp.MustCompile(`\btoday\b`),
		handler: func(m []string, now time.Time) (models.TimeRange, bool) {
			day := truncateDay(now)
			return finish(models.TimeRange{
				Start:       day,
				End:         day,
				Description: "Today (" + day.Format(models.DateFormat) + ")",
				PeriodType:  models.PeriodSingleDay,
			}), true
		},
	},
	// "yesterday"
	{
		re: regexp.MustCompile(`\byesterday\b`),
		handler: func(m []string, now time.Time) (models.TimeRange, bool) {
			day := truncateDay(now).AddDate(0, 0, -1)
			return finish(models.TimeRange{
				Start:       day,
				End:         day,
				Description: "Yesterday (" + day.Format(models.DateFormat) + ")",
				PeriodType:  models.PeriodSingleDay,
			}), true
		},
	},
	// "last/past N days|weeks|months|years"
	{
		re: regexp.MustCompile(`\b(?:last|past|previous)\s+(\d+)\s+(day|week|month|year)s?\b`),
		handler: func(m []string, now time.Time) (models.TimeRange, bool) {
			n, _ := strconv.Atoi(m[1])
			if n < 1 {
				return models.TimeRange{}, false
			}
			switch m[2] {
			case "day":
				start := truncateDay(now).AddDate(0, 0, -n)
				return finish(models.TimeRange{
					Start:       start,
					End:         now,
					Description: fmt.Sprintf("Last %d days", n),
					PeriodType:  models.PeriodRolling,
				}), true
			case "week":
				start := truncateDay(now).AddDate(0, 0, -7*n)
				return finish(models.TimeRange{
					Start:       start,
					End:         now,
					Description: fmt.Sprintf("Last %d weeks", n),
					PeriodType:  models.PeriodRolling,
				}), true
			case "month":
				// Exactly N complete prior calendar months; the current
				// partial month is excluded.
				firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
				start := firstOfCurrent.AddDate(0, -n, 0)
				end := firstOfCurrent.AddDate(0, 0, -1)
				return finish(models.TimeRange{
					Start:       start,
					End:         end,
					Description: fmt.Sprintf("Last %d complete months", n),
					PeriodType:  models.PeriodSpecificRange,
				}), true
			default: // year
				start := truncateDay(now).AddDate(-n, 0, 0)
				return finish(models.TimeRange{
					Start:       start,
					End:         now,
					Description: fmt.Sprintf("Last %d years", n),
					PeriodType:  models.PeriodRolling,
				}), true
			}
		},
	},
	// "this month|week|quarter|year"
	{
		re: regexp.MustCompile(`\bthis\s+(month|week|quarter|year)\b`),
		handler: func(m []string, now time.Time) (models.TimeRange, bool) {
			switch m[1] {
			case "month":
				start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
				return finish(models.TimeRange{
					Start:       start,
					End:         now,
					Description: now.Format("January 2006") + " (month to date)",
					PeriodType:  models.PeriodCalendarMonthPart,
				}), true
			case "week":
				return finish(models.TimeRange{
					Start:       startOfWeek(now),
					End:         now,
					Description: "This week",
					PeriodType:  models.PeriodRolling,
				}), true
			case "quarter":
				q := (int(now.Month())-1)/3 + 1
				start := time.Date(now.Year(), time.Month((q-1)*3+1), 1, 0, 0, 0, 0, now.Location())
				return finish(models.TimeRange{
					Start:       start,
					End:         now,
					Description: fmt.Sprintf("Q%d %d (quarter to date)", q, now.Year()),
					PeriodType:  models.PeriodCalendarQuarterPart,
				}), true
			default: // year
				start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
				return finish(models.TimeRange{
					Start:       start,
					End:         now,
					Description: fmt.Sprintf("%d (year to date)", now.Year()),
					PeriodType:  models.PeriodCalendarYearPart,
				}), true
			}
		},
	},
	// "last month|week|quarter|year"
	{
		re: regexp.MustCompile(`\b(?:last|previous)\s+(month|week|quarter|year)\b`),
		handler: func(m []string, now time.Time) (models.TimeRange, bool) {
			switch m[1] {
			case "month":
				firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
				prev := firstOfCurrent.AddDate(0, -1, 0)
				return calendarMonth(prev.Year(), prev.Month(), now), true
			case "week":
				thisWeek := startOfWeek(now)
				return finish(models.TimeRange{
					Start:       thisWeek.AddDate(0, 0, -7),
					End:         thisWeek.AddDate(0, 0, -1),
					Description: "Last week",
					PeriodType:  models.PeriodSpecificRange,
				}), true
			case "quarter":
				q := (int(now.Month())-1)/3 + 1
				year := now.Year()
				q--
				if q == 0 {
					q = 4
					year--
				}
				return calendarQuarter(year, q, now), true
			default: // year
				return calendarYear(now.Year()-1, now), true
			}
		},
	},
}

// comparisonRe detects comparison requests in a separate pass so that
// "compare November to previous month" still parses November as the
// primary window.
var comparisonRe = regexp.MustCompile(
	`\b(compared?|comparison|vs\.?|versus|m[\-\s]?o[\-\s]?m|month[\-\s]over[\-\s]month|yoy|y[\-\s]o[\-\s]y|year[\-\s]over[\-\s]year|period[\-\s]over[\-\s]period|than\s+(?:last|previous))\b`)

// Parse scans text for a time expression and returns the resolved range.
// When nothing matches, the default 30-day rolling window is returned
// with Source set to default.
func (r *Resolver) Parse(text string, loc *time.Location) models.TimeRange {
	if loc == nil {
		loc = time.UTC
	}
	now := r.now().In(loc)
	lowered := strings.ToLower(text)

	for _, ph := range patterns {
		if m := ph.re.FindStringSubmatch(lowered); m != nil {
			if tr, ok := ph.handler(m, now); ok {
				tr.Source = models.TimeSourceExplicit
				return tr
			}
		}
	}
	return models.DefaultTimeRange(now)
}

// HasTimeExpression reports whether the text contains any parseable time
// expression, without resolving it.
func (r *Resolver) HasTimeExpression(text string) bool {
	lowered := strings.ToLower(text)
	for _, ph := range patterns {
		if m := ph.re.FindStringSubmatch(lowered); m != nil {
			if _, ok := ph.handler(m, r.now()); ok {
				return true
			}
		}
	}
	return false
}

// Merge resolves the effective window for a new utterance. Precedence:
// an explicit expression in the new text wins; otherwise a prior context
// range is inherited; otherwise the default window applies. A separate
// comparison pass derives the comparison period when requested.
func (r *Resolver) Merge(prev *models.TimeRange, text string, loc *time.Location) models.TimeRangeResult {
	if loc == nil {
		loc = time.UTC
	}
	now := r.now().In(loc)

	var primary models.TimeRange
	switch {
	case r.HasTimeExpression(text):
		primary = r.Parse(text, loc)
	case prev != nil && !prev.IsZero():
		primary = *prev
		primary.Source = models.TimeSourceInherited
	default:
		primary = models.DefaultTimeRange(now)
	}

	result := models.TimeRangeResult{Primary: primary}
	if comparisonRe.MatchString(strings.ToLower(text)) {
		cmp := DeriveComparison(primary)
		result.Comparison = &cmp
		result.IsComparisonRequest = true
	}
	return result
}

// DeriveComparison returns the deterministic comparison period for a
// primary window: the prior calendar month/quarter/year for full calendar
// periods, otherwise an equal-length immediately preceding window.
func DeriveComparison(primary models.TimeRange) models.TimeRange {
	switch primary.PeriodType {
	case models.PeriodCalendarMonthFull:
		prevStart := primary.Start.AddDate(0, -1, 0)
		prevEnd := primary.Start.AddDate(0, 0, -1)
		return finishComparison(models.TimeRange{
			Start:       prevStart,
			End:         prevEnd,
			Description: prevStart.Format("January 2006"),
		})
	case models.PeriodCalendarQuarterFull:
		prevStart := primary.Start.AddDate(0, -3, 0)
		prevEnd := primary.Start.AddDate(0, 0, -1)
		q := (int(prevStart.Month())-1)/3 + 1
		return finishComparison(models.TimeRange{
			Start:       prevStart,
			End:         prevEnd,
			Description: fmt.Sprintf("Q%d %d", q, prevStart.Year()),
		})
	case models.PeriodCalendarYearFull:
		prevStart := primary.Start.AddDate(-1, 0, 0)
		prevEnd := primary.Start.AddDate(0, 0, -1)
		return finishComparison(models.TimeRange{
			Start:       prevStart,
			End:         prevEnd,
			Description: strconv.Itoa(prevStart.Year()),
		})
	default:
		spanDays := primary.SpanDays()
		prevEnd := primary.Start.AddDate(0, 0, -1)
		prevStart := prevEnd.AddDate(0, 0, -(spanDays - 1))
		return finishComparison(models.TimeRange{
			Start:       prevStart,
			End:         prevEnd,
			Description: fmt.Sprintf("Preceding %d days", spanDays),
		})
	}
}

func finishComparison(tr models.TimeRange) models.TimeRange {
	tr = tr.WithDerivedGranularity()
	tr.Source = models.TimeSourceComparison
	tr.PeriodType = models.PeriodComparison
	return tr
}

// finish derives granularity from the span.
func finish(tr models.TimeRange) models.TimeRange {
	return tr.WithDerivedGranularity()
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the preceding Monday (or t itself on Mondays).
func startOfWeek(t time.Time) time.Time {
	day := truncateDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// calendarMonth builds a full or partial calendar month window. Months
// ending in the future are clamped to now and marked partial.
func calendarMonth(year int, month time.Month, now time.Time) models.TimeRange {
	start := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, -1)
	periodType := models.PeriodCalendarMonthFull
	desc := start.Format("January 2006") + " (full month)"
	if end.After(now) {
		end = now
		periodType = models.PeriodCalendarMonthPart
		desc = start.Format("January 2006") + " (month to date)"
	}
	return finish(models.TimeRange{
		Start:       start,
		End:         end,
		Description: desc,
		PeriodType:  periodType,
	})
}

func calendarQuarter(year, q int, now time.Time) models.TimeRange {
	start := time.Date(year, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 3, -1)
	periodType := models.PeriodCalendarQuarterFull
	desc := fmt.Sprintf("Q%d %d", q, year)
	if end.After(now) {
		end = now
		periodType = models.PeriodCalendarQuarterPart
		desc = fmt.Sprintf("Q%d %d (quarter to date)", q, year)
	}
	return finish(models.TimeRange{
		Start:       start,
		End:         end,
		Description: desc,
		PeriodType:  periodType,
	})
}

func calendarYear(year int, now time.Time) models.TimeRange {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, now.Location())
	periodType := models.PeriodCalendarYearFull
	desc := strconv.Itoa(year)
	if end.After(now) {
		end = now
		periodType = models.PeriodCalendarYearPart
		desc = fmt.Sprintf("%d (year to date)", year)
	}
	return finish(models.TimeRange{
		Start:       start,
		End:         end,
		Description: desc,
		PeriodType:  periodType,
	})
}
