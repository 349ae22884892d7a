// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package pipeline is the entrypoint tying the stages together: time
// range merge, SQL generation, orchestrated fetch, auto drill-down,
// chart building, and response formatting. One Execute call is one
// strictly sequential pipeline; concurrent requests run independent
// pipelines.
package pipeline

import (
	"context"
	"regexp"
	"time"

	"github.com/costlens/costlens/internal/charts"
	"github.com/costlens/costlens/internal/logging"
	"github.com/costlens/costlens/internal/metrics"
	"github.com/costlens/costlens/internal/models"
	"github.com/costlens/costlens/internal/orchestrator"
	"github.com/costlens/costlens/internal/resolver"
	"github.com/costlens/costlens/internal/response"
	"github.com/costlens/costlens/internal/scope"
	"github.com/costlens/costlens/internal/texttosql"
	"github.com/costlens/costlens/internal/timerange"
	"github.com/costlens/costlens/internal/validation"
)

// Request is one natural-language query turn.
type Request struct {
	Query          string
	ConversationID string
	History        []texttosql.Message
	PrevContext    *models.ConversationContext
	Scope          *scope.RequestContext
	Timezone       *time.Location
}

// Engine wires the pipeline stages. Construct once, share across
// requests.
type Engine struct {
	generator *texttosql.Generator
	orch      *orchestrator.Orchestrator
	drill     *orchestrator.DrillDown
	times     *timerange.Resolver
	services  *resolver.Resolver
}

// New assembles an Engine from its stages. drill and services may be nil
// to disable auto drill-down and service canonicalization.
func New(generator *texttosql.Generator, orch *orchestrator.Orchestrator, drill *orchestrator.DrillDown, times *timerange.Resolver, services *resolver.Resolver) *Engine {
	return &Engine{generator: generator, orch: orch, drill: drill, times: times, services: services}
}

var arnInQueryRe = regexp.MustCompile(`arn:aws[a-z\-]*:[a-z0-9\-]+:[a-z0-9\-]*:\d{0,12}:[A-Za-z0-9\-_:/\.\*]+`)

// queryTypeIntents maps the generator's query_type to a spec intent.
var queryTypeIntents = map[string]models.Intent{
	"top_services": models.IntentTopNRanking,
	"breakdown":    models.IntentCostBreakdown,
	"time_series":  models.IntentCostTrend,
	"comparison":   models.IntentComparative,
	"resource":     models.IntentCostBreakdown,
	"other":        models.IntentOther,
}

// Execute runs one turn end to end and always returns a response; every
// failure mode degrades to a structured error response with
// clarifications.
func (e *Engine) Execute(ctx context.Context, req Request) *models.UnifiedResponse {
	start := time.Now()

	// A non-admin whose allowlist holds no valid account IDs has access
	// to no account at all; fail closed before any LLM or warehouse call.
	if rc := req.Scope; rc != nil && !rc.IsAdmin && len(validation.FilterAccountIDs(rc.AllowedAccountIDs)) == 0 {
		logging.Ctx(ctx).Warn().Fields(rc.AuditFields()).Msg("Denied request: no valid accounts in allowlist")
		metrics.ObservePipeline("unknown", string(models.StatusDenied), start)
		return deniedResponse(rc)
	}

	var prevRange *models.TimeRange
	if req.PrevContext != nil {
		prevRange = req.PrevContext.TimeRange
	}
	trResult := e.times.Merge(prevRange, req.Query, req.Timezone)

	gen := e.generator.Generate(ctx, texttosql.Request{
		Query:   req.Query,
		History: req.History,
		Context: req.PrevContext,
		Scope:   req.Scope,
	})
	if gen.Status != models.StatusSuccess {
		metrics.ObservePipeline("unknown", string(gen.Status), start)
		return errorResponse(gen.Status, gen.Clarification)
	}

	// An empty SQL with an explanation is the model asking for
	// clarification; surface it without touching Athena.
	if gen.SQL == "" {
		metrics.ObservePipeline("unknown", "clarification", start)
		resp := errorResponse(models.StatusSuccess, gen.Clarification)
		resp.Summary = "I need a little more detail to answer that."
		return resp
	}

	spec := e.buildSpec(ctx, req, gen, trResult)

	result, err := e.orch.Execute(ctx, spec)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Orchestrated fetch failed")
		metrics.ObservePipeline(string(spec.Intent), string(models.StatusError), start)
		return errorResponse(models.StatusError, clarificationsFor(err.Error()))
	}
	if !result.Succeeded() {
		status := models.StatusError
		if scope.IsDenialMessage(result.Error) {
			status = models.StatusDenied
		}
		logging.Ctx(ctx).Warn().Str("error", result.Error).Str("status", string(status)).Msg("Query completed with error")
		metrics.ObservePipeline(string(spec.Intent), string(status), start)
		resp := errorResponse(status, clarificationsFor(result.Error))
		resp.Metadata.Error = result.Error
		if status == models.StatusDenied && req.Scope != nil {
			tr := spec.TimeRange
			resp.Metadata.Scope = req.Scope.ScopeMetadata(&tr)
		}
		return resp
	}

	explanation := gen.Explanation
	if e.drill != nil {
		var subject string
		result, subject = e.drill.Apply(ctx, spec, result)
		if subject != "" {
			explanation = "Breakdown by Usage Type for " + subject + "\n\n" + explanation
		}
	}

	newCtx := e.nextContext(req, gen, spec)
	chartSpecs := charts.Recommend(spec, result, req.Query)
	built := charts.Build(chartSpecs, result, spec, newCtx)

	resp := response.Build(response.Input{
		Spec:        spec,
		Result:      result,
		Explanation: explanation,
		Charts:      built,
		Scope:       req.Scope,
		Query:       req.Query,
		ConvContext: newCtx,
	})
	resp.Context = newCtx

	metrics.ObservePipeline(string(spec.Intent), string(models.StatusSuccess), start)
	return resp
}

// buildSpec assembles the typed QuerySpec from the generation and the
// merged time range.
func (e *Engine) buildSpec(ctx context.Context, req Request, gen texttosql.Generation, trResult models.TimeRangeResult) *models.QuerySpec {
	intent, ok := queryTypeIntents[gen.QueryType]
	if !ok {
		intent = models.IntentOther
	}
	if trResult.IsComparisonRequest {
		intent = models.IntentComparative
	}

	spec := models.NewQuerySpec(intent)
	spec.SQL = gen.SQL
	spec.TimeRange = trResult.Primary
	for k, v := range gen.Metadata {
		spec.Metadata[k] = v
	}
	if cmp := trResult.Comparison; cmp != nil {
		spec.Metadata[models.MetaComparisonStart] = cmp.StartDate()
		spec.Metadata[models.MetaComparisonEnd] = cmp.EndDate()
	}
	if arn := arnInQueryRe.FindString(req.Query); arn != "" {
		spec.ARN = arn
	}
	if rc := req.Scope; rc != nil && !rc.IsAdmin {
		spec.Accounts = validation.FilterAccountIDs(rc.AllowedAccountIDs)
	}
	if filters, ok := gen.Metadata["filters"].(map[string]string); ok {
		if svc := filters["service"]; svc != "" {
			spec.Services = []string{e.canonicalService(ctx, svc)}
		}
		if region := filters["region"]; region != "" {
			spec.Regions = []string{region}
		}
	}
	return spec
}

// canonicalService maps a service value to its CUR product code when the
// resolver recognizes it; unrecognized values pass through unchanged.
func (e *Engine) canonicalService(ctx context.Context, svc string) string {
	if e.services == nil {
		return svc
	}
	if res := e.services.Resolve(ctx, svc); res.ProductCode != "" {
		return res.ProductCode
	}
	return svc
}

// nextContext is the conversation state handed back to the caller for
// the following turn. ChartBuilder mutates its aggregation fields before
// the response returns.
func (e *Engine) nextContext(req Request, gen texttosql.Generation, spec *models.QuerySpec) *models.ConversationContext {
	tr := spec.TimeRange
	next := &models.ConversationContext{
		LastQuery:     req.Query,
		LastSQL:       gen.SQL,
		LastQueryType: gen.QueryType,
		TimeRange:     &tr,
	}
	if len(spec.Services) > 0 {
		next.LastService = spec.Services[0]
	} else if req.PrevContext != nil {
		next.LastService = req.PrevContext.LastService
	}
	return next
}

// deniedResponse fails the request closed: denied status, no data, and
// the perimeter the decision was made under.
func deniedResponse(rc *scope.RequestContext) *models.UnifiedResponse {
	resp := errorResponse(models.StatusDenied, []string{
		"Ask an administrator to grant your user access to at least one AWS account.",
	})
	resp.Summary = "Access denied: no AWS accounts are authorized for this user."
	resp.Message = resp.Summary
	resp.Metadata.Scope = rc.ScopeMetadata(nil)
	return resp
}

// errorResponse is the structured degradation for every failure mode.
func errorResponse(status models.ResponseStatus, clarifications []string) *models.UnifiedResponse {
	message := ""
	if len(clarifications) > 0 {
		message = clarifications[0]
	}
	return &models.UnifiedResponse{
		Status:          status,
		Summary:         message,
		Message:         message,
		Insights:        []models.Insight{},
		Recommendations: []models.Recommendation{},
		Results:         []models.Row{},
		Charts:          []models.Chart{},
		Suggestions:     clarifications,
	}
}
