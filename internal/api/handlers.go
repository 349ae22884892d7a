// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package api exposes the HTTP surface: the natural-language query
// endpoint, saved-view management, health, and Prometheus metrics.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/costlens/costlens/internal/cache"
	"github.com/costlens/costlens/internal/config"
	"github.com/costlens/costlens/internal/logging"
	"github.com/costlens/costlens/internal/models"
	"github.com/costlens/costlens/internal/pipeline"
	"github.com/costlens/costlens/internal/resolver"
	"github.com/costlens/costlens/internal/scope"
	"github.com/costlens/costlens/internal/texttosql"
	"github.com/costlens/costlens/internal/validation"
)

// maxQueryBody bounds the request body size.
const maxQueryBody = 1 << 20

// Handler carries the API dependencies.
type Handler struct {
	engine   *pipeline.Engine
	services *resolver.Resolver
	cfg      *config.Config
	views    *cache.Cache
}

// NewHandler constructs the API handler. The views cache stores saved
// views per user with the configured session TTL.
func NewHandler(engine *pipeline.Engine, services *resolver.Resolver, cfg *config.Config) *Handler {
	return &Handler{
		engine:   engine,
		services: services,
		cfg:      cfg,
		views:    cache.New(cfg.Security.SessionTimeout),
	}
}

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	Query          string                      `json:"query" validate:"required,min=2,max=2000"`
	ConversationID string                      `json:"conversation_id" validate:"omitempty,max=128"`
	ChatHistory    []texttosql.Message         `json:"chat_history" validate:"omitempty,max=50"`
	Context        *models.ConversationContext `json:"context"`
	Timezone       string                      `json:"timezone" validate:"omitempty,max=64"`
}

// HandleQuery runs one natural-language query turn.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req QueryRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxQueryBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message)
		return
	}

	loc := time.UTC
	if req.Timezone != "" {
		parsed, err := time.LoadLocation(req.Timezone)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unknown timezone")
			return
		}
		loc = parsed
	}

	rc := scopeFromContext(r.Context())
	if rc == nil {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "missing or invalid token")
		return
	}
	h.attachSavedView(rc)

	logging.Ctx(r.Context()).Info().
		Str("conversation_id", req.ConversationID).
		Fields(rc.AuditFields()).
		Msg("Query received")

	resp := h.engine.Execute(r.Context(), pipeline.Request{
		Query:          req.Query,
		ConversationID: req.ConversationID,
		History:        req.ChatHistory,
		PrevContext:    req.Context,
		Scope:          rc,
		Timezone:       loc,
	})

	logging.Ctx(r.Context()).Info().
		Str("status", string(resp.Status)).
		Int("rows", len(resp.Results)).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("Query completed")

	respondRaw(w, http.StatusOK, resp)
}

// SavedViewRequest is the body of PUT /api/v1/views/active.
type SavedViewRequest struct {
	Name             string            `json:"name" validate:"required,max=128"`
	AccountIDs       []string          `json:"account_ids" validate:"omitempty,max=200"`
	DefaultTimeRange *models.TimeRange `json:"default_time_range"`
	Filters          map[string]any    `json:"filters"`
}

// HandleSetActiveView stores the caller's active saved view. Non-admin
// views may only narrow the token's allowlist, never widen it.
func (h *Handler) HandleSetActiveView(w http.ResponseWriter, r *http.Request) {
	rc := scopeFromContext(r.Context())
	if rc == nil {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "missing or invalid token")
		return
	}

	var req SavedViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message)
		return
	}

	accounts := validation.FilterAccountIDs(req.AccountIDs)
	if !rc.IsAdmin {
		accounts = rc.FilterAccounts(accounts)
	}

	view := &scope.SavedView{
		ID:               rc.UserID + ":" + req.Name,
		Name:             req.Name,
		AccountIDs:       accounts,
		DefaultTimeRange: req.DefaultTimeRange,
		Filters:          req.Filters,
		IsPersonal:       true,
	}
	h.views.Set(viewKey(rc.UserID), view)
	respondJSON(w, http.StatusOK, view)
}

// HandleGetActiveView returns the caller's active saved view, if any.
func (h *Handler) HandleGetActiveView(w http.ResponseWriter, r *http.Request) {
	rc := scopeFromContext(r.Context())
	if rc == nil {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "missing or invalid token")
		return
	}
	if v, ok := h.views.Get(viewKey(rc.UserID)); ok {
		respondJSON(w, http.StatusOK, v)
		return
	}
	respondError(w, http.StatusNotFound, "NOT_FOUND", "no active saved view")
}

// HandleClearActiveView removes the caller's active saved view.
func (h *Handler) HandleClearActiveView(w http.ResponseWriter, r *http.Request) {
	rc := scopeFromContext(r.Context())
	if rc == nil {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "missing or invalid token")
		return
	}
	h.views.Delete(viewKey(rc.UserID))
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// HandleResolveService resolves a free-text service phrase to its CUR
// product code. The frontend uses it for filter autocomplete.
func (h *Handler) HandleResolveService(w http.ResponseWriter, r *http.Request) {
	phrase := r.URL.Query().Get("phrase")
	if phrase == "" || len(phrase) > 128 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "phrase must be 1-128 characters")
		return
	}
	respondJSON(w, http.StatusOK, h.services.Resolve(r.Context(), phrase))
}

// HandleHealth is the liveness probe.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "costlens",
	})
}

// attachSavedView loads the caller's stored view onto the request scope.
func (h *Handler) attachSavedView(rc *scope.RequestContext) {
	if v, ok := h.views.Get(viewKey(rc.UserID)); ok {
		if view, ok := v.(*scope.SavedView); ok {
			rc.ActiveSavedView = view
			if len(view.AccountIDs) > 0 && !rc.IsAdmin {
				rc.AllowedAccountIDs = view.AccountIDs
			}
		}
	}
}

func viewKey(userID string) string {
	return cache.GenerateKey("active_view", userID)
}
