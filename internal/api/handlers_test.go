// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/costlens/costlens/internal/auth"
	"github.com/costlens/costlens/internal/config"
	"github.com/costlens/costlens/internal/llm"
	"github.com/costlens/costlens/internal/models"
	"github.com/costlens/costlens/internal/orchestrator"
	"github.com/costlens/costlens/internal/pipeline"
	"github.com/costlens/costlens/internal/resolver"
	"github.com/costlens/costlens/internal/scope"
	"github.com/costlens/costlens/internal/sqlguard"
	"github.com/costlens/costlens/internal/texttosql"
	"github.com/costlens/costlens/internal/timerange"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// MockLLM returns a canned generation payload.
type MockLLM struct{ response string }

func (m *MockLLM) Call(ctx context.Context, prompt string, opts llm.CallOptions) (string, error) {
	return m.response, nil
}

// MockSource serves a fixed two-row ranking.
type MockSource struct{}

func (MockSource) Name() models.DataSourceName { return models.DataSourceAthena }

func (MockSource) Fetch(ctx context.Context, spec *models.QuerySpec) (*models.QueryResult, error) {
	return &models.QueryResult{
		Data: []models.Row{
			{"service": "AmazonEC2", "cost_usd": 900.0},
			{"service": "AmazonS3", "cost_usd": 100.0},
		},
		Metadata: models.ResultMetadata{DataSource: models.DataSourceAthena},
	}, nil
}

const cannedGeneration = `{"sql": "SELECT line_item_product_code AS service, SUM(line_item_unblended_cost) AS cost_usd FROM cur_daily GROUP BY 1 ORDER BY 2 DESC LIMIT 5", "explanation": "Top services.", "query_type": "top_services"}`

func newTestHandler(t *testing.T) (*Handler, *auth.JWTManager) {
	t.Helper()
	jwtManager, err := auth.NewJWTManager(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	generator := texttosql.New(&MockLLM{response: cannedGeneration}, sqlguard.New("cur_daily"), "cur_daily", 0)
	orch := orchestrator.New(MockSource{}, nil)
	engine := pipeline.New(generator, orch, nil, timerange.New(), nil)
	services := resolver.New(resolver.Config{}, nil, nil)

	cfg := &config.Config{}
	cfg.Security.SessionTimeout = time.Hour
	return NewHandler(engine, services, cfg), jwtManager
}

func bearerToken(t *testing.T, m *auth.JWTManager, admin bool, accounts []string) string {
	t.Helper()
	token, err := m.GenerateToken("user-1", "dev@example.com", "org-1", "Acme", "analyst", admin, accounts)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + token
}

func authed(h http.HandlerFunc, m *auth.JWTManager) http.Handler {
	return AuthMiddleware(m)(h)
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()
	_, jwtManager := newTestHandler(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := scopeFromContext(r.Context())
		if rc == nil || rc.UserID != "user-1" {
			t.Errorf("scope = %+v", rc)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	wrapped := AuthMiddleware(jwtManager)(inner)

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", bearerToken(t, jwtManager, false, []string{"123456789012"}))
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})
}

func TestHandleQuery(t *testing.T) {
	t.Parallel()
	h, jwtManager := newTestHandler(t)
	endpoint := authed(h.HandleQuery, jwtManager)
	token := bearerToken(t, jwtManager, true, nil)

	t.Run("success", func(t *testing.T) {
		body := strings.NewReader(`{"query": "top 5 services this month"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/query", body)
		req.Header.Set("Authorization", token)
		rec := httptest.NewRecorder()
		endpoint.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var resp models.UnifiedResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Status != models.StatusSuccess || len(resp.Results) != 2 {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader("{"))
		req.Header.Set("Authorization", token)
		rec := httptest.NewRecorder()
		endpoint.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("query too short", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(`{"query": "x"}`))
		req.Header.Set("Authorization", token)
		rec := httptest.NewRecorder()
		endpoint.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("unknown timezone", func(t *testing.T) {
		body := strings.NewReader(`{"query": "top services", "timezone": "Mars/Olympus"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/query", body)
		req.Header.Set("Authorization", token)
		rec := httptest.NewRecorder()
		endpoint.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestSavedViewLifecycle(t *testing.T) {
	t.Parallel()
	h, jwtManager := newTestHandler(t)
	token := bearerToken(t, jwtManager, false, []string{"123456789012", "210987654321"})

	// A non-admin view may narrow the allowlist but never widen it; the
	// foreign account must be dropped.
	setBody := `{"name": "prod", "account_ids": ["123456789012", "999999999999"]}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/views/active", strings.NewReader(setBody))
	req.Header.Set("Authorization", token)
	rec := httptest.NewRecorder()
	authed(h.HandleSetActiveView, jwtManager).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("set status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data scope.SavedView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatal(err)
	}
	if len(envelope.Data.AccountIDs) != 1 || envelope.Data.AccountIDs[0] != "123456789012" {
		t.Errorf("stored accounts = %v", envelope.Data.AccountIDs)
	}

	// The stored view narrows subsequent query scopes.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/views/active", nil)
	req.Header.Set("Authorization", token)
	rec = httptest.NewRecorder()
	authed(h.HandleGetActiveView, jwtManager).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/views/active", nil)
	req.Header.Set("Authorization", token)
	rec = httptest.NewRecorder()
	authed(h.HandleClearActiveView, jwtManager).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("clear status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/views/active", nil)
	req.Header.Set("Authorization", token)
	rec = httptest.NewRecorder()
	authed(h.HandleGetActiveView, jwtManager).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after clear = %d", rec.Code)
	}
}

func TestHandleResolveService(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.HandleResolveService(rec, httptest.NewRequest(http.MethodGet, "/api/v1/services/resolve?phrase=ec2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "AmazonEC2") {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.HandleResolveService(rec, httptest.NewRequest(http.MethodGet, "/api/v1/services/resolve", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty phrase status = %d", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}
