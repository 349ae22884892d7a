// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package models

// ResolutionMethod records which stage of the service resolver produced a
// result.
type ResolutionMethod string

const (
	ResolveDict      ResolutionMethod = "dict"
	ResolveFuzzy     ResolutionMethod = "fuzzy"
	ResolveLLM       ResolutionMethod = "llm"
	ResolveAmbiguous ResolutionMethod = "ambiguous"
	ResolveFallback  ResolutionMethod = "fallback"
)

// ResolutionCandidate is one fuzzy-match candidate with its 0-100 score.
type ResolutionCandidate struct {
	ProductCode string  `json:"code"`
	Score       float64 `json:"score"`
}

// ResolutionResult is the artifact of resolving a free-text service phrase
// to a canonical CUR line_item_product_code.
type ResolutionResult struct {
	ProductCode        string                `json:"product_code,omitempty"`
	Method             ResolutionMethod      `json:"method"`
	Confidence         float64               `json:"confidence"`
	Candidates         []ResolutionCandidate `json:"candidates,omitempty"`
	Original           string                `json:"original"`
	Normalized         string                `json:"normalized"`
	NeedsClarification bool                  `json:"needs_clarification"`
}
