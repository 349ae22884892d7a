// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package sqlguard validates LLM-generated SQL before execution.
//
// Athena has no end-to-end parameter binding and the generating model may
// have been influenced by prompt injection, so this validator is the sole
// guarantee that only a benign read is executed. The policy is strict:
// one statement, SELECT/WITH only, no DDL/DML/system keywords, and no
// table other than the configured CUR table plus declared CTEs.
//
// Rejected SQL must never be echoed back to users or stored in full; the
// typed error carries only the rule and a short message.
package sqlguard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/costlens/costlens/internal/logging"
	"github.com/costlens/costlens/internal/metrics"
)

// Rule identifies which validation rule rejected a statement.
type Rule string

const (
	RuleMultiStatement   Rule = "multi_statement"
	RuleForbiddenKeyword Rule = "forbidden_keyword"
	RuleSchemaInspection Rule = "schema_inspection"
	RuleNotSelect        Rule = "not_select"
	RuleSystemTable      Rule = "system_table"
	RuleTableNotAllowed  Rule = "table_not_allowed"
)

// ValidationError is the typed rejection returned by Validate.
type ValidationError struct {
	Rule    Rule
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sql validation failed (%s): %s", e.Rule, e.Message)
}

// forbiddenKeywords are rejected at a word boundary, case-insensitive.
var forbiddenKeywords = []string{
	"DROP", "DELETE", "INSERT", "UPDATE", "ALTER", "TRUNCATE", "CREATE",
	"REPLACE", "GRANT", "REVOKE", "EXEC", "EXECUTE", "MERGE", "CALL",
}

// schemaKeywords expose schema metadata and are rejected outright.
var schemaKeywords = []string{"EXPLAIN", "DESCRIBE", "SHOW"}

// systemSchemas are rejected with a dedicated message regardless of the
// table allowlist outcome.
var systemSchemas = []string{"information_schema", "pg_catalog", "sys", "mysql"}

var (
	forbiddenRe = compileKeywordRe(forbiddenKeywords)
	schemaRe    = compileKeywordRe(schemaKeywords)

	// standaloneDescRe matches DESC used as a statement keyword, not as
	// the ORDER BY sort direction.
	standaloneDescRe = regexp.MustCompile(`(?i)(?:^|;)\s*DESC\b`)

	// tableRefRe captures identifiers following FROM or JOIN, optionally
	// schema-qualified and optionally double-quoted.
	tableRefRe = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+("?[A-Za-z_][\w$]*"?(?:\."?[A-Za-z_][\w$]*"?)*)`)

	// cteRe captures CTE names introduced by WITH <name> AS ( and
	// subsequent ", <name> AS (".
	cteRe = regexp.MustCompile(`(?i)(?:\bWITH\s+|,\s*)([A-Za-z_][\w$]*)\s+AS\s*\(`)

	// Suspicious patterns are logged for audit but not blocked; stacked
	// SELECTs inside CTEs and comments are legitimate in generated SQL.
	suspiciousPatterns = map[string]*regexp.Regexp{
		"stacked_select": regexp.MustCompile(`(?is)\bSELECT\b.*;\s*\bSELECT\b`),
		"union_select":   regexp.MustCompile(`(?is)\bUNION\b\s+(?:ALL\s+)?\bSELECT\b`),
		"line_comment":   regexp.MustCompile(`--`),
		"block_comment":  regexp.MustCompile(`/\*`),
	}
)

func compileKeywordRe(words []string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`)
}

// Validator enforces the read-only single-table policy against a
// configured CUR table name.
type Validator struct {
	curTable string
}

// New returns a Validator bound to the given CUR table. The table name
// may be schema-qualified; comparisons use the final path element too.
func New(curTable string) *Validator {
	return &Validator{curTable: strings.ToLower(strings.Trim(curTable, `"`))}
}

// Validate checks one SQL statement against the full rule set, returning
// a *ValidationError naming the failed rule on rejection. Running it
// twice on the same string always yields the same verdict.
func (v *Validator) Validate(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return reject(RuleNotSelect, "empty statement")
	}

	// Rule 1: single statement. Strip one trailing semicolon first.
	trimmed = strings.TrimSuffix(trimmed, ";")
	if strings.Contains(trimmed, ";") {
		return reject(RuleMultiStatement, "multiple statements are not allowed")
	}

	// Rule 2: DDL/DML denylist.
	if kw := forbiddenRe.FindString(trimmed); kw != "" {
		return reject(RuleForbiddenKeyword, fmt.Sprintf("keyword %s is not allowed", strings.ToUpper(kw)))
	}

	// Rule 3: schema inspection, including standalone DESC.
	if kw := schemaRe.FindString(trimmed); kw != "" {
		return reject(RuleSchemaInspection, fmt.Sprintf("schema inspection via %s is not allowed", strings.ToUpper(kw)))
	}
	if standaloneDescRe.MatchString(trimmed) {
		return reject(RuleSchemaInspection, "standalone DESC is not allowed")
	}

	// Rule 4: must start with SELECT or WITH after comment stripping.
	head := strings.ToUpper(stripLeadingComments(trimmed))
	if !strings.HasPrefix(head, "SELECT") && !strings.HasPrefix(head, "WITH") {
		return reject(RuleNotSelect, "only SELECT and WITH statements are allowed")
	}

	// Rule 5: table allowlist.
	if err := v.checkTables(trimmed); err != nil {
		return err
	}

	// Rule 6: suspicious patterns are logged, never blocked.
	for name, re := range suspiciousPatterns {
		if re.MatchString(trimmed) {
			logging.Warn().Str("pattern", name).Msg("Suspicious pattern in validated SQL")
		}
	}
	return nil
}

// checkTables extracts every FROM/JOIN target and verifies the set of
// real tables referenced is exactly {CUR table} plus declared CTE names.
func (v *Validator) checkTables(sql string) error {
	ctes := make(map[string]bool)
	for _, m := range cteRe.FindAllStringSubmatch(sql, -1) {
		ctes[strings.ToLower(m[1])] = true
	}

	for _, m := range tableRefRe.FindAllStringSubmatch(sql, -1) {
		ref := strings.ToLower(strings.ReplaceAll(m[1], `"`, ""))

		for _, sys := range systemSchemas {
			if ref == sys || strings.HasPrefix(ref, sys+".") {
				return reject(RuleSystemTable, "access to system tables is not allowed")
			}
		}

		base := ref
		if idx := strings.LastIndex(ref, "."); idx >= 0 {
			base = ref[idx+1:]
		}
		if ctes[base] {
			continue
		}
		if base == v.curTable || ref == v.curTable {
			continue
		}
		return reject(RuleTableNotAllowed, fmt.Sprintf("table %q is not in the allowed set", base))
	}
	return nil
}

// stripLeadingComments removes leading whitespace, line comments, and
// block comments so the first keyword can be inspected.
func stripLeadingComments(sql string) string {
	s := strings.TrimSpace(sql)
	for {
		switch {
		case strings.HasPrefix(s, "--"):
			idx := strings.IndexByte(s, '\n')
			if idx < 0 {
				return ""
			}
			s = strings.TrimSpace(s[idx+1:])
		case strings.HasPrefix(s, "/*"):
			idx := strings.Index(s, "*/")
			if idx < 0 {
				return ""
			}
			s = strings.TrimSpace(s[idx+2:])
		default:
			return s
		}
	}
}

func reject(rule Rule, msg string) *ValidationError {
	metrics.SQLValidationRejections.WithLabelValues(string(rule)).Inc()
	return &ValidationError{Rule: rule, Message: msg}
}
