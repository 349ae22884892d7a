// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package auth issues and validates the JWTs that carry a tenant's query
// scope. The token is the single source of the account allowlist; the
// API layer converts validated claims into a scope.RequestContext and
// nothing downstream ever re-reads the token.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/costlens/costlens/internal/scope"
	"github.com/costlens/costlens/internal/validation"
)

// Claims are the token claims carrying identity and tenant scope.
type Claims struct {
	Email            string   `json:"email"`
	OrganizationID   string   `json:"org_id"`
	OrganizationName string   `json:"org_name,omitempty"`
	Role             string   `json:"role"`
	Admin            bool     `json:"admin"`
	Accounts         []string `json:"accounts"`
	jwt.RegisteredClaims
}

// JWTManager creates and validates tokens. Uses HMAC-SHA256.
type JWTManager struct {
	secret  []byte
	timeout time.Duration
}

// NewJWTManager requires a secret of at least 32 characters.
func NewJWTManager(secret string, timeout time.Duration) (*JWTManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if timeout == 0 {
		timeout = 24 * time.Hour
	}
	return &JWTManager{secret: []byte(secret), timeout: timeout}, nil
}

// GenerateToken signs a token for the given identity and scope. Invalid
// account IDs in the allowlist are rejected rather than silently dropped,
// so a bad token never reaches enforcement.
func (m *JWTManager) GenerateToken(userID, email, orgID, orgName, role string, admin bool, accounts []string) (string, error) {
	if !admin {
		valid := validation.FilterAccountIDs(accounts)
		if len(valid) != len(accounts) {
			return "", fmt.Errorf("account allowlist contains invalid IDs")
		}
	}

	now := time.Now()
	claims := &Claims{
		Email:            email,
		OrganizationID:   orgID,
		OrganizationName: orgName,
		Role:             role,
		Admin:            admin,
		Accounts:         accounts,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature, expiry, and signing method.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// RequestContext converts validated claims into the scope every pipeline
// stage consumes. Non-admin allowlists are re-filtered here as a second
// line of defense.
func (c *Claims) RequestContext() *scope.RequestContext {
	accounts := c.Accounts
	if !c.Admin {
		accounts = validation.FilterAccountIDs(accounts)
	}
	return &scope.RequestContext{
		UserID:            c.Subject,
		UserEmail:         c.Email,
		IsAdmin:           c.Admin,
		OrganizationID:    c.OrganizationID,
		OrganizationName:  c.OrganizationName,
		OrgRole:           c.Role,
		AllowedAccountIDs: accounts,
	}
}
