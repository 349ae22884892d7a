// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package datasource defines the uniform contract every cost backend
// implements. The orchestrator selects between implementations purely by
// policy; adding or removing a backend never changes callers.
package datasource

import (
	"context"

	"github.com/costlens/costlens/internal/models"
)

// DataSource fetches a QueryResult for a normalized QuerySpec.
//
// Implementations must return a QueryResult with Metadata.DataSource set,
// and report execution failures inside QueryResult.Error rather than as a
// Go error wherever a structured result is still meaningful; the returned
// error is reserved for transport-level failures where no result exists.
type DataSource interface {
	// Name identifies the backend in result metadata.
	Name() models.DataSourceName

	// Fetch executes the spec. The spec is immutable for the duration of
	// the call.
	Fetch(ctx context.Context, spec *models.QuerySpec) (*models.QueryResult, error)
}
