// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package texttosql

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/costlens/costlens/internal/logging"
	"github.com/costlens/costlens/internal/metrics"
)

// llmResponse is the strict schema the model is asked to produce.
type llmResponse struct {
	SQL           string   `json:"sql"`
	Explanation   string   `json:"explanation"`
	ResultColumns []string `json:"result_columns"`
	QueryType     string   `json:"query_type"`
}

// parsedResponse adds the provenance of the parse.
type parsedResponse struct {
	llmResponse
	Via string
}

var (
	codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

	// Salvage extractors honor \" \n \t escapes inside the string body.
	salvageSQLRe         = regexp.MustCompile(`"sql"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	salvageExplanationRe = regexp.MustCompile(`"explanation"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	salvageQueryTypeRe   = regexp.MustCompile(`"query_type"\s*:\s*"((?:[^"\\]|\\.)*)"`)

	dateTruncRe = regexp.MustCompile(`(?i)\bDATE_TRUNC\b`)
	groupByRe   = regexp.MustCompile(`(?i)\bGROUP\s+BY\b`)
	limitRe     = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)
)

// parseResponse recovers the structured response from raw model output in
// three passes of decreasing strictness. The returned bool is false only
// when no SQL or explanation could be recovered at all.
func parseResponse(ctx context.Context, raw string) (parsedResponse, bool) {
	cleaned := stripCodeFences(strings.TrimSpace(raw))

	// Pass 1: direct parse.
	var direct llmResponse
	if err := json.Unmarshal([]byte(cleaned), &direct); err == nil {
		metrics.LLMParseOutcomes.WithLabelValues("direct").Inc()
		return parsedResponse{llmResponse: direct, Via: ViaLLM}, true
	}

	// Pass 2: sanitize control characters and retry. Models occasionally
	// emit raw newlines or stray control bytes inside string values.
	sanitized := sanitizeControlChars(cleaned)
	var second llmResponse
	if err := json.Unmarshal([]byte(sanitized), &second); err == nil {
		metrics.LLMParseOutcomes.WithLabelValues("sanitized").Inc()
		return parsedResponse{llmResponse: second, Via: ViaLLM}, true
	}

	// Pass 3: regex salvage of the individual fields.
	salvaged := llmResponse{
		SQL:         salvageField(salvageSQLRe, sanitized),
		Explanation: salvageField(salvageExplanationRe, sanitized),
		QueryType:   salvageField(salvageQueryTypeRe, sanitized),
	}
	if salvaged.SQL == "" && salvaged.Explanation == "" {
		metrics.LLMParseOutcomes.WithLabelValues("failed").Inc()
		logging.Ctx(ctx).Warn().Int("response_len", len(raw)).
			Msg("Text-to-SQL response unparseable after all passes")
		return parsedResponse{}, false
	}
	if salvaged.SQL != "" && salvaged.QueryType == "" {
		salvaged.QueryType = inferQueryType(salvaged.SQL)
	}
	metrics.LLMParseOutcomes.WithLabelValues("salvaged").Inc()
	return parsedResponse{llmResponse: salvaged, Via: ViaLLMPartial}, true
}

// stripCodeFences unwraps a fenced block when the whole payload is one.
func stripCodeFences(s string) string {
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// sanitizeControlChars normalizes line endings and drops control bytes
// outside \t and \n, which break strict JSON parsing when they appear
// unescaped inside string values.
func sanitizeControlChars(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\t' || r == '\n' || r >= 0x20 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// salvageField extracts and unescapes one quoted JSON string value.
func salvageField(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	// Re-quote and let the JSON decoder resolve the escapes.
	var out string
	if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &out); err != nil {
		return m[1]
	}
	return out
}

// inferQueryType classifies salvaged SQL by its shape when the model's own
// query_type was lost.
func inferQueryType(sql string) string {
	hasGroupBy := groupByRe.MatchString(sql)
	if dateTruncRe.MatchString(sql) && hasGroupBy {
		if strings.Contains(strings.ToLower(sql), "previous") {
			return "comparison"
		}
		return "time_series"
	}
	if m := limitRe.FindStringSubmatch(sql); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n <= 20 {
			return "top_services"
		}
	}
	if hasGroupBy {
		return "breakdown"
	}
	return "other"
}
