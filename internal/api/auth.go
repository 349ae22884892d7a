// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/costlens/costlens/internal/auth"
	"github.com/costlens/costlens/internal/logging"
	"github.com/costlens/costlens/internal/scope"
)

type scopeKey struct{}

// AuthMiddleware validates the bearer token and attaches the resulting
// tenant scope to the request context. Requests without a valid token are
// rejected before reaching any handler.
func AuthMiddleware(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "missing bearer token")
				return
			}

			claims, err := jwtManager.ValidateToken(token)
			if err != nil {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("Token validation failed")
				respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), scopeKey{}, claims.RequestContext())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// scopeFromContext returns the tenant scope attached by AuthMiddleware,
// or nil when the request was not authenticated.
func scopeFromContext(ctx context.Context) *scope.RequestContext {
	if rc, ok := ctx.Value(scopeKey{}).(*scope.RequestContext); ok {
		return rc
	}
	return nil
}
