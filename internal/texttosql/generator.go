// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package texttosql turns a natural-language cost question into validated
// Athena SQL via the LLM, with tolerant response parsing and mandatory
// guard rails: every generated statement passes the SQL validator, and
// non-admin requests get the tenant account filter injected before the
// SQL leaves this package.
package texttosql

import (
	"context"
	"time"

	"github.com/costlens/costlens/internal/llm"
	"github.com/costlens/costlens/internal/logging"
	"github.com/costlens/costlens/internal/models"
	"github.com/costlens/costlens/internal/scope"
	"github.com/costlens/costlens/internal/sqlguard"
)

// Request carries everything one generation call needs.
type Request struct {
	Query   string
	History []Message
	Context *models.ConversationContext
	// Scope is nil for unauthenticated internal calls; a non-admin scope
	// triggers prompt-level and post-generation account filtering.
	Scope *scope.RequestContext
}

// Generation is the outcome of one call. SQL is empty unless Status is
// StatusSuccess; rejected SQL is never surfaced.
type Generation struct {
	SQL           string
	Explanation   string
	ResultColumns []string
	QueryType     string
	Status        models.ResponseStatus
	Clarification []string
	Metadata      map[string]any
}

// GeneratedVia values recorded under models.MetaGeneratedVia.
const (
	ViaLLM        = "text_to_sql_llm"
	ViaLLMPartial = "text_to_sql_llm_partial"
)

// Generator is the text-to-SQL front of the pipeline. Safe for concurrent
// use.
type Generator struct {
	llm       llm.Client
	guard     *sqlguard.Validator
	curTable  string
	maxTokens int
	now       func() time.Time
}

// New constructs a Generator bound to the CUR table name used in prompts
// and validation.
func New(client llm.Client, guard *sqlguard.Validator, curTable string, maxTokens int) *Generator {
	if maxTokens == 0 {
		maxTokens = 12000
	}
	return &Generator{
		llm:       client,
		guard:     guard,
		curTable:  curTable,
		maxTokens: maxTokens,
		now:       time.Now,
	}
}

// Generate runs one text-to-SQL pass. It never returns a Go error for
// model or validation failures; those are expressed in the Generation
// status so the pipeline can degrade to a clarification response.
func (g *Generator) Generate(ctx context.Context, req Request) Generation {
	prompt := g.buildPrompt(req)

	raw, err := g.llm.Call(ctx, prompt, llm.CallOptions{
		MaxTokens:  g.maxTokens,
		ExpectJSON: true,
		Purpose:    "text_to_sql",
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Text-to-SQL call failed")
		return Generation{
			Status: models.StatusLLMError,
			Clarification: []string{
				"The analysis engine is temporarily unavailable. Please try again shortly.",
			},
			Metadata: map[string]any{},
		}
	}

	parsed, ok := parseResponse(ctx, raw)
	if !ok {
		return Generation{
			Status: models.StatusLLMError,
			Clarification: []string{
				"I couldn't interpret the analysis for that question. Could you rephrase it?",
			},
			Metadata: map[string]any{},
		}
	}

	out := Generation{
		Explanation:   parsed.Explanation,
		ResultColumns: parsed.ResultColumns,
		QueryType:     parsed.QueryType,
		Status:        models.StatusSuccess,
		Metadata:      map[string]any{models.MetaGeneratedVia: parsed.Via},
	}

	// An empty sql with an explanation is the model's clarifying question.
	if parsed.SQL == "" {
		if parsed.Explanation != "" {
			out.Clarification = []string{parsed.Explanation}
		}
		return out
	}

	if err := g.guard.Validate(parsed.SQL); err != nil {
		// Rejected SQL must not reach the caller, not even for display.
		logging.Ctx(ctx).Warn().Err(err).Msg("Generated SQL rejected by validator")
		return Generation{
			Status: models.StatusValidationFailed,
			Clarification: []string{
				"The generated query was rejected by the safety checks. Try asking in a different way.",
			},
			Metadata: map[string]any{models.MetaGeneratedVia: parsed.Via},
		}
	}

	sql := parsed.SQL
	if rc := req.Scope; rc != nil && !rc.IsAdmin {
		enforced, modified := scope.Enforce(sql, rc.AllowedAccountIDs)
		sql = enforced
		out.Metadata[models.MetaAccountFilterEnforced] = modified
	}
	out.SQL = sql

	enrichMetadata(out.Metadata, sql)
	return out
}
