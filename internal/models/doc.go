// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package models defines the shared data structures that flow through the
// query pipeline: the normalized QuerySpec handed to data sources, the
// TimeRange produced by the time-range resolver, the standardized
// QueryResult returned by every data source, chart specifications, the
// UnifiedResponse frontend contract, and the generic API envelope.
//
// Everything in this package is plain data. Behavior lives in the packages
// that produce and consume these types; the only methods here are small
// derivations (row counts, total cost, granularity from span) that must be
// consistent across producers.
package models
