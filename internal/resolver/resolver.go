// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package resolver maps free-text AWS service phrases to canonical CUR
// product codes. Resolution runs a short-circuiting pipeline:
//
//  1. Dictionary lookup over a curated synonym map (confidence 1.0).
//  2. Fuzzy match against the distinct product codes observed in the CUR
//     table, lazily loaded and refreshed at most every 6 hours.
//  3. Optional LLM arbitration over the top fuzzy candidates, cached
//     per phrase.
//  4. Fallback: no product code, caller decides whether to clarify.
//
// The product-code cache is the only process-global state in the query
// pipeline; it is guarded by a RWMutex for concurrent loads.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sahilm/fuzzy"

	"github.com/costlens/costlens/internal/cache"
	"github.com/costlens/costlens/internal/llm"
	"github.com/costlens/costlens/internal/logging"
	"github.com/costlens/costlens/internal/metrics"
	"github.com/costlens/costlens/internal/models"
)

// ProductCodeLoader supplies the distinct set of product codes present in
// the CUR table. Implemented by the Athena driver.
type ProductCodeLoader interface {
	DistinctProductCodes(ctx context.Context) ([]string, error)
}

// Config tunes the resolver.
type Config struct {
	// FuzzyThreshold is the minimum 0-100 score the best candidate must
	// reach before a fuzzy match is returned.
	FuzzyThreshold float64
	// AmbiguityMargin is the minimum lead over the runner-up; within the
	// margin the result is ambiguous and needs clarification.
	AmbiguityMargin float64
	// RefreshInterval bounds product-code reloads.
	RefreshInterval time.Duration
	// ArbitrationTTL bounds the per-phrase LLM arbitration cache.
	ArbitrationTTL time.Duration
}

// Resolver resolves service phrases. Safe for concurrent use.
type Resolver struct {
	cfg    Config
	loader ProductCodeLoader
	llm    llm.Client // nil disables arbitration

	mu          sync.RWMutex
	codes       []string
	lastRefresh time.Time

	arbitration *cache.Cache
}

// New constructs a Resolver. llmClient may be nil to disable arbitration.
func New(cfg Config, loader ProductCodeLoader, llmClient llm.Client) *Resolver {
	if cfg.FuzzyThreshold == 0 {
		cfg.FuzzyThreshold = 80
	}
	if cfg.AmbiguityMargin == 0 {
		cfg.AmbiguityMargin = 3
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = 6 * time.Hour
	}
	if cfg.ArbitrationTTL == 0 {
		cfg.ArbitrationTTL = 6 * time.Hour
	}
	return &Resolver{
		cfg:         cfg,
		loader:      loader,
		llm:         llmClient,
		arbitration: cache.New(cfg.ArbitrationTTL),
	}
}

// Resolve maps one service phrase to a product code.
func (r *Resolver) Resolve(ctx context.Context, phrase string) models.ResolutionResult {
	normalized := normalizePhrase(phrase)
	result := models.ResolutionResult{
		Original:   phrase,
		Normalized: normalized,
	}
	if normalized == "" {
		result.Method = models.ResolveFallback
		metrics.ResolverResolutions.WithLabelValues(string(models.ResolveFallback)).Inc()
		return result
	}

	// Pass 1: curated dictionary.
	if code, ok := synonyms[normalized]; ok {
		result.ProductCode = code
		result.Method = models.ResolveDict
		result.Confidence = 1.0
		metrics.ResolverResolutions.WithLabelValues(string(models.ResolveDict)).Inc()
		return result
	}

	// Pass 2: fuzzy match over the live product-code set.
	codes := r.productCodes(ctx)
	candidates := rankCandidates(normalized, codes)
	result.Candidates = candidates

	if len(candidates) > 0 {
		best := candidates[0]
		secondScore := 0.0
		if len(candidates) > 1 {
			secondScore = candidates[1].Score
		}
		if best.Score >= r.cfg.FuzzyThreshold {
			if best.Score-secondScore >= r.cfg.AmbiguityMargin {
				result.ProductCode = best.ProductCode
				result.Method = models.ResolveFuzzy
				result.Confidence = best.Score / 100
				metrics.ResolverResolutions.WithLabelValues(string(models.ResolveFuzzy)).Inc()
				return result
			}
			// Two candidates within the margin: ambiguous unless the LLM
			// can arbitrate below.
			if r.llm == nil {
				result.Method = models.ResolveAmbiguous
				result.NeedsClarification = true
				metrics.ResolverResolutions.WithLabelValues(string(models.ResolveAmbiguous)).Inc()
				return result
			}
		}
	}

	// Pass 3: LLM arbitration over the fuzzy candidates.
	if r.llm != nil && len(candidates) > 0 {
		if code, ok := r.arbitrate(ctx, phrase, candidates); ok {
			result.ProductCode = code
			result.Method = models.ResolveLLM
			result.Confidence = 0.9
			metrics.ResolverResolutions.WithLabelValues(string(models.ResolveLLM)).Inc()
			return result
		}
	}

	result.Method = models.ResolveFallback
	metrics.ResolverResolutions.WithLabelValues(string(models.ResolveFallback)).Inc()
	return result
}

// productCodes returns the cached distinct code set, refreshing it when
// stale. A failed refresh keeps serving the previous set.
func (r *Resolver) productCodes(ctx context.Context) []string {
	r.mu.RLock()
	fresh := time.Since(r.lastRefresh) < r.cfg.RefreshInterval && len(r.codes) > 0
	codes := r.codes
	r.mu.RUnlock()
	if fresh || r.loader == nil {
		return codes
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check after acquiring the write lock; another goroutine may
	// have refreshed.
	if time.Since(r.lastRefresh) < r.cfg.RefreshInterval && len(r.codes) > 0 {
		return r.codes
	}
	loaded, err := r.loader.DistinctProductCodes(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Product-code refresh failed; serving stale set")
		r.lastRefresh = time.Now() // back off for a full interval
		return r.codes
	}
	r.codes = loaded
	r.lastRefresh = time.Now()
	metrics.ResolverCacheRefreshes.Inc()
	return r.codes
}

// arbitrationResponse is the constrained JSON schema the LLM must return.
type arbitrationResponse struct {
	ProductCode *string `json:"product_code"`
}

// arbitrate asks the LLM to pick one of the candidates, caching the
// verdict per phrase. Only an in-list answer is accepted.
func (r *Resolver) arbitrate(ctx context.Context, phrase string, candidates []models.ResolutionCandidate) (string, bool) {
	key := cache.GenerateKey("arbitrate", phrase)
	if cached, ok := r.arbitration.Get(key); ok {
		code, _ := cached.(string)
		return code, code != ""
	}

	codeList := make([]string, len(candidates))
	for i, c := range candidates {
		codeList[i] = c.ProductCode
	}

	prompt := fmt.Sprintf(`The user wrote the AWS service phrase: %q

Which of these AWS Cost and Usage Report product codes does it refer to?
Candidates: %s

Respond with JSON only: {"product_code": "<one of the candidates>"} or {"product_code": null} if none match.`,
		phrase, strings.Join(codeList, ", "))

	raw, err := r.llm.Call(ctx, prompt, llm.CallOptions{
		MaxTokens:  200,
		ExpectJSON: true,
		Purpose:    "service_arbitration",
	})
	if err != nil {
		logging.Warn().Err(err).Str("phrase", phrase).Msg("Service arbitration call failed")
		return "", false
	}

	var parsed arbitrationResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil || parsed.ProductCode == nil {
		r.arbitration.Set(key, "")
		return "", false
	}
	for _, c := range codeList {
		if *parsed.ProductCode == c {
			r.arbitration.Set(key, c)
			return c, true
		}
	}
	// Out-of-list answers are treated as no answer.
	r.arbitration.Set(key, "")
	return "", false
}

// rankCandidates scores all codes against the phrase and returns the top
// five. sahilm/fuzzy provides subsequence ranking; the 0-100 calibration
// uses edit distance so the threshold/margin semantics stay stable.
func rankCandidates(normalized string, codes []string) []models.ResolutionCandidate {
	if len(codes) == 0 {
		return nil
	}
	lowered := make([]string, len(codes))
	for i, c := range codes {
		lowered[i] = strings.ToLower(c)
	}

	matches := fuzzy.Find(normalized, lowered)
	seen := make(map[int]bool, len(matches))
	out := make([]models.ResolutionCandidate, 0, 5)
	for _, m := range matches {
		seen[m.Index] = true
		out = append(out, models.ResolutionCandidate{
			ProductCode: codes[m.Index],
			Score:       similarityScore(normalized, lowered[m.Index]),
		})
	}
	// Codes with no subsequence match can still be close in edit
	// distance (transpositions); include them in the pool.
	for i := range codes {
		if !seen[i] {
			out = append(out, models.ResolutionCandidate{
				ProductCode: codes[i],
				Score:       similarityScore(normalized, lowered[i]),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

// similarityScore is a 0-100 weighted ratio: the maximum of whole-string
// edit similarity and partial (substring-biased) similarity, so "ec2"
// scores high against "amazonec2".
func similarityScore(a, b string) float64 {
	if a == b {
		return 100
	}
	whole := editSimilarity(a, b)

	partial := 0.0
	if strings.Contains(b, a) || strings.Contains(a, b) {
		shorter := float64(min(len(a), len(b)))
		longer := float64(max(len(a), len(b)))
		// Containment scores by length ratio with a floor of 90 so a
		// clean substring hit beats loose whole-string similarity.
		partial = 90 + 10*(shorter/longer)
	}
	if partial > whole {
		return partial
	}
	return whole
}

func editSimilarity(a, b string) float64 {
	dist := levenshtein(a, b)
	longer := max(len(a), len(b))
	if longer == 0 {
		return 100
	}
	return 100 * (1 - float64(dist)/float64(longer))
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(min(curr[j-1]+1, prev[j]+1), prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// normalizePhrase lowercases and strips whitespace, punctuation, and the
// generic "service"/"aws"/"amazon" noise words.
func normalizePhrase(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	for _, noise := range []string{"amazon ", "aws ", " service", " services"} {
		lowered = strings.ReplaceAll(lowered, noise, " ")
	}
	var b strings.Builder
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
