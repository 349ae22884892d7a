// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package auth

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNewJWTManagerRejectsShortSecret(t *testing.T) {
	t.Parallel()
	if _, err := NewJWTManager("too-short", time.Hour); err == nil {
		t.Error("expected error for a short secret")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	token, err := m.GenerateToken("user-1", "dev@example.com", "org-1", "Acme", "analyst", false,
		[]string{"123456789012", "210987654321"})
	if err != nil {
		t.Fatal(err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "user-1" || claims.Email != "dev@example.com" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Admin {
		t.Error("admin flag set on non-admin token")
	}
	if len(claims.Accounts) != 2 {
		t.Errorf("accounts = %v", claims.Accounts)
	}

	rc := claims.RequestContext()
	if rc.UserID != "user-1" || rc.IsAdmin || len(rc.AllowedAccountIDs) != 2 {
		t.Errorf("request context = %+v", rc)
	}
	if rc.OrganizationID != "org-1" || rc.OrgRole != "analyst" {
		t.Errorf("org fields = %+v", rc)
	}
}

func TestGenerateTokenRejectsInvalidAccounts(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	if _, err := m.GenerateToken("u", "e", "o", "", "analyst", false,
		[]string{"123456789012", "not-an-account"}); err == nil {
		t.Error("expected rejection of an invalid allowlist")
	}

	// Admin tokens carry no allowlist semantics and skip the check.
	if _, err := m.GenerateToken("u", "e", "o", "", "admin", true, nil); err != nil {
		t.Errorf("admin token: %v", err)
	}
}

func TestValidateTokenTampered(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	token, err := m.GenerateToken("u", "e", "o", "", "analyst", true, nil)
	if err != nil {
		t.Fatal(err)
	}

	tampered := token[:len(token)-4] + "AAAA"
	if tampered == token {
		tampered = token[:len(token)-4] + "BBBB"
	}
	if _, err := m.ValidateToken(tampered); err == nil {
		t.Error("tampered token validated")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	other, err := NewJWTManager(strings.Repeat("x", 32), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	token, err := other.GenerateToken("u", "e", "o", "", "analyst", true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret validated")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	t.Parallel()
	m, err := NewJWTManager(testSecret, -time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	token, err := m.GenerateToken("u", "e", "o", "", "analyst", true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expired token validated")
	}
}

func TestRequestContextRefiltersNonAdmin(t *testing.T) {
	t.Parallel()
	claims := &Claims{
		Admin:    false,
		Accounts: []string{"123456789012", "bogus"},
	}
	rc := claims.RequestContext()
	if len(rc.AllowedAccountIDs) != 1 || rc.AllowedAccountIDs[0] != "123456789012" {
		t.Errorf("allowlist = %v", rc.AllowedAccountIDs)
	}

	claims.Admin = true
	rc = claims.RequestContext()
	if len(rc.AllowedAccountIDs) != 2 {
		t.Errorf("admin allowlist filtered: %v", rc.AllowedAccountIDs)
	}
}
