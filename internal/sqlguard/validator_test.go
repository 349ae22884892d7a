// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package sqlguard

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAccepts(t *testing.T) {
	t.Parallel()
	v := New("cur_daily")

	valid := []string{
		`SELECT line_item_product_code AS service, SUM(line_item_unblended_cost) AS cost_usd FROM cur_daily WHERE CAST(line_item_usage_start_date AS DATE) BETWEEN DATE '2025-10-01' AND DATE '2025-10-31' GROUP BY 1 ORDER BY cost_usd DESC LIMIT 5`,
		// Trailing semicolon is tolerated.
		`SELECT 1 FROM cur_daily;`,
		// ORDER BY ... DESC is not the DESC statement.
		`SELECT service FROM cur_daily ORDER BY cost_usd DESC`,
		// Schema-qualified CUR table.
		`SELECT 1 FROM cur_database.cur_daily`,
		// CTEs referencing only the CUR table and each other.
		`WITH daily AS (SELECT CAST(line_item_usage_start_date AS DATE) AS d, SUM(line_item_unblended_cost) AS c FROM cur_daily GROUP BY 1),
stats AS (SELECT AVG(c) AS mean_c FROM daily)
SELECT d.d, d.c FROM daily d CROSS JOIN stats s`,
		// Leading comment before SELECT.
		"-- top services\nSELECT 1 FROM cur_daily",
	}
	for _, sql := range valid {
		if err := v.Validate(sql); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", sql, err)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()
	v := New("cur_daily")

	tests := []struct {
		name string
		sql  string
		rule Rule
	}{
		{"empty", "   ", RuleNotSelect},
		{"multi statement", "SELECT 1 FROM cur_daily; SELECT 2 FROM cur_daily", RuleMultiStatement},
		{"drop", "DROP TABLE cur_daily", RuleForbiddenKeyword},
		{"delete", "DELETE FROM cur_daily", RuleForbiddenKeyword},
		{"insert", "INSERT INTO cur_daily VALUES (1)", RuleForbiddenKeyword},
		{"update", "UPDATE cur_daily SET x = 1", RuleForbiddenKeyword},
		{"create", "CREATE TABLE t AS SELECT 1 FROM cur_daily", RuleForbiddenKeyword},
		{"show", "SHOW TABLES", RuleSchemaInspection},
		{"describe", "DESCRIBE cur_daily", RuleSchemaInspection},
		{"standalone desc", "DESC cur_daily", RuleSchemaInspection},
		{"not select", "VACUUM cur_daily", RuleNotSelect},
		{"foreign table", "SELECT 1 FROM other_table", RuleTableNotAllowed},
		{"join to foreign table", "SELECT 1 FROM cur_daily JOIN users ON 1=1", RuleTableNotAllowed},
		{"system table", "SELECT 1 FROM information_schema.tables", RuleSystemTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.sql)
			if err == nil {
				t.Fatalf("Validate(%q) = nil, want rejection", tt.sql)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate(%q) returned %T, want *ValidationError", tt.sql, err)
			}
			if verr.Rule != tt.rule {
				t.Errorf("Validate(%q) rule = %s, want %s", tt.sql, verr.Rule, tt.rule)
			}
		})
	}
}

func TestValidateDeterministic(t *testing.T) {
	t.Parallel()
	v := New("cur_daily")
	sql := "SELECT 1 FROM forbidden_table"
	first := v.Validate(sql)
	second := v.Validate(sql)
	if first == nil || second == nil {
		t.Fatal("expected rejection on both runs")
	}
	if first.Error() != second.Error() {
		t.Errorf("verdicts differ: %q vs %q", first.Error(), second.Error())
	}
}

func TestValidationErrorOmitsSQL(t *testing.T) {
	t.Parallel()
	v := New("cur_daily")
	secret := "SELECT password FROM users"
	err := v.Validate(secret)
	if err == nil {
		t.Fatal("expected rejection")
	}
	// The error may name the offending table, never the statement text.
	if msg := err.Error(); strings.Contains(msg, secret) {
		t.Errorf("error message echoes the rejected SQL: %q", msg)
	}
}
