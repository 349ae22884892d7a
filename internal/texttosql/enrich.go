// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package texttosql

import (
	"regexp"
	"strings"
)

var (
	dateLiteralRe = regexp.MustCompile(`(?i)DATE\s+'(\d{4}-\d{2}-\d{2})'`)
	intervalRe    = regexp.MustCompile(`(?i)INTERVAL\s+'(\d+)'\s+(MONTH|DAY|YEAR)`)

	serviceEqRe = regexp.MustCompile(`(?i)line_item_product_code\s*=\s*'([^']+)'`)
	regionEqRe  = regexp.MustCompile(`(?i)product_region_code\s*=\s*'([^']+)'`)
	accountEqRe = regexp.MustCompile(`(?i)line_item_usage_account_id\s*=\s*'(\d{12})'`)
)

// enrichMetadata adds best-effort time-period, scope, and filter
// annotations derived from the final SQL. These feed response metadata
// and conversation context; they are advisory, never authoritative.
func enrichMetadata(meta map[string]any, sql string) {
	if period := extractTimePeriod(sql); period != "" {
		meta["time_period"] = period
	}
	meta["query_scope"] = inferScope(sql)
	if filters := inferFilters(sql); len(filters) > 0 {
		meta["filters"] = filters
	}
}

// extractTimePeriod reads the date bounds out of the SQL's literals.
func extractTimePeriod(sql string) string {
	dates := dateLiteralRe.FindAllStringSubmatch(sql, -1)
	if len(dates) >= 2 {
		return dates[0][1] + " to " + dates[len(dates)-1][1]
	}
	if len(dates) == 1 {
		return "since " + dates[0][1]
	}
	if m := intervalRe.FindStringSubmatch(sql); m != nil {
		return "last " + m[1] + " " + strings.ToLower(m[2]) + "s"
	}
	return ""
}

// inferScope classifies what the query is grouped or filtered on.
func inferScope(sql string) string {
	lower := strings.ToLower(sql)
	switch {
	case strings.Contains(lower, "line_item_resource_id"):
		return "resource"
	case serviceEqRe.MatchString(sql):
		return "service"
	case regionEqRe.MatchString(sql):
		return "region"
	case accountEqRe.MatchString(sql):
		return "account"
	default:
		return "general"
	}
}

// inferFilters captures single-value equality filters for context
// inheritance on the next turn.
func inferFilters(sql string) map[string]string {
	filters := make(map[string]string)
	if m := serviceEqRe.FindStringSubmatch(sql); m != nil {
		filters["service"] = m[1]
	}
	if m := regionEqRe.FindStringSubmatch(sql); m != nil {
		filters["region"] = m[1]
	}
	if m := accountEqRe.FindStringSubmatch(sql); m != nil {
		filters["account"] = m[1]
	}
	return filters
}
