// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package texttosql

import (
	"fmt"
	"strings"

	"github.com/costlens/costlens/internal/models"
	"github.com/costlens/costlens/internal/scope"
)

// Message is one prior conversation turn included in the prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// maxHistoryMessages bounds the conversation excerpt in the prompt.
const maxHistoryMessages = 6

// effectiveCostExpr charges savings-plan and reservation usage at their
// effective rates, falling back to the unblended cost for on-demand lines.
const effectiveCostExpr = `COALESCE(NULLIF(savings_plan_savings_plan_effective_cost, 0), NULLIF(reservation_effective_cost, 0), line_item_unblended_cost)`

// schemaBlob enumerates the CUR columns and the query rules the model must
// follow. It is static; per-request facts (dates, accounts, history) are
// appended by buildPrompt.
const schemaBlob = `You are a FinOps analyst writing Presto SQL for AWS Cost and Usage Report (CUR) data in Amazon Athena.

TABLE: %s (one row per line item)

KEY COLUMNS:
- line_item_usage_start_date (timestamp), line_item_usage_end_date (timestamp)
- line_item_product_code (string, canonical service code, e.g. AmazonEC2, AmazonS3, AWSLambda, AmazonRDS)
- product_product_name (string, human service name)
- line_item_usage_account_id (string, 12-digit account)
- line_item_resource_id (string, resource ID or full ARN; empty for unaddressable usage)
- line_item_usage_type (string), line_item_operation (string), line_item_line_item_type (string)
- line_item_unblended_cost (double), line_item_usage_amount (double)
- savings_plan_savings_plan_effective_cost (double), reservation_effective_cost (double)
- product_region_code (string), product_instance_type (string), product_database_engine (string), product_operating_system (string)
- resource_tags_user_name (string) and other resource_tags_user_* columns

COST EXPRESSION (always use this, aliased cost_usd):
SUM(%s) AS cost_usd

SERVICE NAME MAPPING: filter services with line_item_product_code, never with free-text names. EC2 is 'AmazonEC2', S3 is 'AmazonS3', Lambda is 'AWSLambda', RDS is 'AmazonRDS', DynamoDB is 'AmazonDynamoDB', CloudWatch is 'AmazonCloudWatch', CloudFront is 'AmazonCloudFront', ECS is 'AmazonECS', EKS is 'AmazonEKS'.

QUERY PATTERNS:
- Top N services: GROUP BY line_item_product_code ORDER BY cost_usd DESC LIMIT N
- Breakdown within a service: filter line_item_product_code, GROUP BY the requested dimension
- Daily series: DATE_TRUNC('day', line_item_usage_start_date) AS usage_date with GROUP BY 1
- Per-resource: GROUP BY line_item_resource_id, exclude empty resource IDs
- ARN filter: line_item_resource_id = '<arn>' OR line_item_resource_id LIKE '%%<suffix>'
- CASE expressions used in SELECT must be repeated verbatim in GROUP BY, never referenced by alias
- ECS/EKS container questions: query AmazonECS/AmazonEKS product codes and group by line_item_usage_type

DATE RULES:
- Compare with date literals: line_item_usage_start_date >= DATE 'YYYY-MM-DD' AND line_item_usage_start_date < DATE 'YYYY-MM-DD'
- The end bound is exclusive. Never use BETWEEN for timestamps.
- When the user names no period, use the last 30 days.

GROUPING RULES:
- Always alias the cost aggregate as cost_usd.
- Order cost rankings descending.
- For multi-service comparison, GROUP BY line_item_product_code with an IN filter.

CONTEXT INHERITANCE: inherit the previous service or time filter only when the new question is implicitly relational ("break that down", "what about last month"); a fully specified new question starts fresh.

If the request is ambiguous or is not answerable from CUR data, return an empty "sql" and use "explanation" to ask one clarifying question.

RESPONSE FORMAT: respond with a single JSON object and nothing else:
{"sql": "<query or empty>", "explanation": "<narrative>", "result_columns": ["col", ...], "query_type": "<top_services|breakdown|time_series|comparison|resource|other>"}

The explanation must use this structure: a "**Summary:**" line, a "**Insights:**" section with bullet points, and optionally a "**Recommendations:**" section with numbered items. You may reference computed values with placeholders like ${TotalCost}, ${TopItem}, ${TopCost}, ${TopPct}, ${NumItems}; they are substituted after the query runs.`

// buildPrompt assembles the full user prompt for one generation call.
func (g *Generator) buildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, schemaBlob, g.curTable, effectiveCostExpr)

	now := g.now()
	b.WriteString("\n\nTODAY: ")
	b.WriteString(now.Format(models.DateFormat))
	b.WriteString("\n30 DAYS AGO: ")
	b.WriteString(now.AddDate(0, 0, -models.DefaultWindowDays).Format(models.DateFormat))

	if len(req.History) > 0 {
		b.WriteString("\n\nRECENT CONVERSATION:\n")
		history := req.History
		if len(history) > maxHistoryMessages {
			history = history[len(history)-maxHistoryMessages:]
		}
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, truncate(m.Content, 500))
		}
	}

	if req.Context != nil {
		var facts []string
		if req.Context.LastService != "" {
			facts = append(facts, "last service discussed: "+req.Context.LastService)
		}
		if tr := req.Context.TimeRange; tr != nil && !tr.IsZero() {
			facts = append(facts, fmt.Sprintf("last time range: %s to %s",
				tr.StartDate(), tr.EndDate()))
		}
		if len(facts) > 0 {
			b.WriteString("\nPREVIOUS CONTEXT: ")
			b.WriteString(strings.Join(facts, "; "))
			b.WriteString("\n")
		}
	}

	if accounts := tenantAccounts(req.Scope); len(accounts) > 0 {
		b.WriteString("\nACCOUNT SCOPE: the user may only see accounts ")
		b.WriteString(strings.Join(accounts, ", "))
		b.WriteString(". Every query MUST include line_item_usage_account_id IN (")
		quoted := make([]string, len(accounts))
		for i, id := range accounts {
			quoted[i] = "'" + id + "'"
		}
		b.WriteString(strings.Join(quoted, ", "))
		b.WriteString(").\n")
	}

	b.WriteString("\nUSER QUESTION: ")
	b.WriteString(req.Query)
	return b.String()
}

// tenantAccounts returns the allowlist for non-admin contexts, nil
// otherwise.
func tenantAccounts(rc *scope.RequestContext) []string {
	if rc == nil || rc.IsAdmin {
		return nil
	}
	return rc.AllowedAccountIDs
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
