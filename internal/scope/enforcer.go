// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package scope

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/costlens/costlens/internal/logging"
	"github.com/costlens/costlens/internal/metrics"
	"github.com/costlens/costlens/internal/validation"
)

var (
	accountColumnRe = regexp.MustCompile(`(?i)` + AccountColumn)

	// quotedAccountRe extracts 12-digit literals in single quotes.
	quotedAccountRe = regexp.MustCompile(`'(\d{12})'`)

	// whereRe locates the first WHERE keyword.
	whereRe = regexp.MustCompile(`(?i)\bWHERE\b`)

	// fromTableRe locates the first FROM <table> reference, including a
	// schema-qualified or quoted name.
	fromTableRe = regexp.MustCompile(`(?i)\bFROM\s+"?[A-Za-z_][\w$]*"?(?:\."?[A-Za-z_][\w$]*"?)*`)
)

// Enforce injects the tenant account filter into sql unless one is
// already present. Returns the possibly rewritten SQL and whether it was
// modified. Calling Enforce twice is idempotent: the injected filter
// references the account column, so the second call trusts it.
//
// Behavior:
//   - If the account column already appears anywhere (case-insensitive),
//     the upstream filter is trusted and sql is returned unchanged.
//   - Allowlist entries that are not 12-digit IDs are discarded; if none
//     survive, sql is returned unchanged and the condition is logged.
//   - Otherwise the IN clause is inserted right after the first WHERE,
//     or a new WHERE is added right after the first FROM <table>.
func Enforce(sql string, allowed []string) (string, bool) {
	if accountColumnRe.MatchString(sql) {
		metrics.ScopeEnforcementTotal.WithLabelValues("already_scoped").Inc()
		return sql, false
	}

	valid := validation.FilterAccountIDs(allowed)
	if len(valid) == 0 {
		metrics.ScopeEnforcementTotal.WithLabelValues("empty_allowlist").Inc()
		logging.Warn().Int("supplied", len(allowed)).
			Msg("Account scope enforcement skipped: no valid account IDs in allowlist")
		return sql, false
	}

	quoted := make([]string, len(valid))
	for i, id := range valid {
		quoted[i] = "'" + id + "'"
	}
	clause := fmt.Sprintf("%s IN (%s)", AccountColumn, strings.Join(quoted, ", "))

	if loc := whereRe.FindStringIndex(sql); loc != nil {
		out := sql[:loc[1]] + " " + clause + " AND" + sql[loc[1]:]
		metrics.ScopeEnforcementTotal.WithLabelValues("injected").Inc()
		return out, true
	}

	if loc := fromTableRe.FindStringIndex(sql); loc != nil {
		out := sql[:loc[1]] + " WHERE " + clause + sql[loc[1]:]
		metrics.ScopeEnforcementTotal.WithLabelValues("injected").Inc()
		return out, true
	}

	logging.Warn().Msg("Account scope enforcement found no insertion point")
	return sql, false
}

// IsDenialMessage reports whether a QueryResult error string originated
// from a ValidateScope rejection. Result errors travel as plain strings
// through the data-source boundary, so the pipeline classifies them by
// message to pick the denied response status.
func IsDenialMessage(msg string) bool {
	return strings.Contains(msg, "Access denied to accounts") ||
		strings.Contains(msg, "missing the account scope filter")
}

// ValidateScope verifies that sql does not reference accounts outside the
// allowlist. It extracts every quoted 12-digit literal; when none exist,
// it requires the account column to appear (meaning Enforce injected or
// the generator scoped it). Admin contexts should skip this check.
func ValidateScope(sql string, allowed []string) (bool, error) {
	allowedSet := make(map[string]bool, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = true
	}

	matches := quotedAccountRe.FindAllStringSubmatch(sql, -1)
	if len(matches) == 0 {
		if !accountColumnRe.MatchString(sql) {
			metrics.ScopeEnforcementTotal.WithLabelValues("denied").Inc()
			return false, fmt.Errorf("query is missing the account scope filter")
		}
		return true, nil
	}

	var denied []string
	seen := make(map[string]bool)
	for _, m := range matches {
		id := m[1]
		if !allowedSet[id] && !seen[id] {
			denied = append(denied, id)
			seen[id] = true
		}
	}
	if len(denied) > 0 {
		sort.Strings(denied)
		metrics.ScopeEnforcementTotal.WithLabelValues("denied").Inc()
		return false, fmt.Errorf("Access denied to accounts: %s", strings.Join(denied, ", "))
	}
	return true, nil
}
