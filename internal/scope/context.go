// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package scope implements multi-tenant query scoping: the request
// context carrying a tenant's allowed account IDs, and the enforcement
// pass that guarantees every executed SQL statement is restricted to
// those accounts.
//
// Enforcement runs twice: once after LLM SQL generation and once
// immediately before Athena submission. The generator's
// post-processing can be bypassed by code paths that construct SQL
// elsewhere (templates, drill-down, ARN rescue); the submission-time
// guard catches those.
package scope

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/costlens/costlens/internal/models"
	"github.com/costlens/costlens/internal/validation"
)

// AccountColumn is the single CUR column all tenant filters apply to.
const AccountColumn = "line_item_usage_account_id"

// SavedView is a caller-managed bundle of account IDs and default filters
// that overrides orchestrator defaults for one tenant.
type SavedView struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	AccountIDs       []string          `json:"account_ids"`
	DefaultTimeRange *models.TimeRange `json:"default_time_range,omitempty"`
	Filters          map[string]any    `json:"filters,omitempty"`
	IsPersonal       bool              `json:"is_personal"`
	ExpiresAt        *time.Time        `json:"expires_at,omitempty"`
}

// RequestContext carries the tenant scope attached to one request.
//
// Invariant: a non-admin context with an empty allowlist has access to no
// account at all; every SQL call under such a context must fail closed.
type RequestContext struct {
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	IsAdmin   bool   `json:"is_admin"`

	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	OrgRole          string `json:"org_role"`

	AllowedAccountIDs []string `json:"allowed_account_ids"`

	ActiveSavedView *SavedView `json:"active_saved_view,omitempty"`
}

// EffectiveTimeRange returns the saved view's default time range, if any.
func (c *RequestContext) EffectiveTimeRange() *models.TimeRange {
	if c.ActiveSavedView == nil {
		return nil
	}
	return c.ActiveSavedView.DefaultTimeRange
}

// EffectiveFilters returns the saved view's default filters, if any.
func (c *RequestContext) EffectiveFilters() map[string]any {
	if c.ActiveSavedView == nil {
		return nil
	}
	return c.ActiveSavedView.Filters
}

// HasAccountAccess reports whether the context may read the account.
// Admins bypass all checks.
func (c *RequestContext) HasAccountAccess(accountID string) bool {
	if c.IsAdmin {
		return true
	}
	for _, id := range c.AllowedAccountIDs {
		if id == accountID {
			return true
		}
	}
	return false
}

// FilterAccounts returns the subset of ids the context may read.
func (c *RequestContext) FilterAccounts(ids []string) []string {
	if c.IsAdmin {
		return ids
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if c.HasAccountAccess(id) {
			out = append(out, id)
		}
	}
	return out
}

// AccountFilterSQL returns the IN clause restricting CUR rows to the
// allowed accounts, or "" for admins. Invalid allowlist entries are
// dropped rather than quoted.
func (c *RequestContext) AccountFilterSQL() string {
	if c.IsAdmin {
		return ""
	}
	valid := validation.FilterAccountIDs(c.AllowedAccountIDs)
	if len(valid) == 0 {
		return ""
	}
	quoted := make([]string, len(valid))
	for i, id := range valid {
		quoted[i] = "'" + id + "'"
	}
	return fmt.Sprintf("%s IN (%s)", AccountColumn, strings.Join(quoted, ", "))
}

// ScopeMetadata serializes the perimeter for response metadata.
func (c *RequestContext) ScopeMetadata(tr *models.TimeRange) *models.ScopeMetadata {
	accounts := append([]string(nil), c.AllowedAccountIDs...)
	sort.Strings(accounts)
	return &models.ScopeMetadata{
		TimeRange:      tr,
		AccountIDs:     accounts,
		OrganizationID: c.OrganizationID,
	}
}

// AuditFields serializes the context for audit logging.
func (c *RequestContext) AuditFields() map[string]any {
	return map[string]any{
		"user_id":         c.UserID,
		"user_email":      c.UserEmail,
		"is_admin":        c.IsAdmin,
		"organization_id": c.OrganizationID,
		"org_role":        c.OrgRole,
		"account_count":   len(c.AllowedAccountIDs),
	}
}
