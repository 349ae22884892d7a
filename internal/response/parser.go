// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package response

import (
	"regexp"
	"strings"

	"github.com/costlens/costlens/internal/models"
)

var (
	sectionHeaderRe = regexp.MustCompile(`(?m)^\*\*([A-Za-z][A-Za-z \-]*):\*\*`)
	bulletRe        = regexp.MustCompile(`^[\-\*•]\s+`)
	numberedRe      = regexp.MustCompile(`^\d+[\.)]\s+`)
	boldLeadRe      = regexp.MustCompile(`^\*\*([^*:]+):?\*\*[:\s\-]*`)
)

// parseStructured re-reads the final markdown to extract the typed
// summary, insights, and recommendations the API exposes alongside the
// raw message.
func parseStructured(markdown string) (string, []models.Insight, []models.Recommendation) {
	sections := splitSections(markdown)

	summary := strings.TrimSpace(sections["summary"])
	if idx := strings.IndexByte(summary, '\n'); idx > 0 {
		summary = summary[:idx]
	}

	var insights []models.Insight
	for _, line := range itemLines(sections["insights"]) {
		category, description := splitLead(line)
		insights = append(insights, models.Insight{
			Category:    category,
			Description: description,
		})
	}

	var recommendations []models.Recommendation
	for _, line := range itemLines(sections["recommendations"]) {
		action, description := splitLead(line)
		recommendations = append(recommendations, models.Recommendation{
			Action:      action,
			Description: description,
		})
	}
	return summary, insights, recommendations
}

// splitSections maps lowercased section names to their body text.
func splitSections(markdown string) map[string]string {
	out := make(map[string]string)
	locs := sectionHeaderRe.FindAllStringSubmatchIndex(markdown, -1)
	for i, loc := range locs {
		name := strings.ToLower(strings.TrimSpace(markdown[loc[2]:loc[3]]))
		end := len(markdown)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out[name] = strings.TrimSpace(markdown[loc[1]:end])
	}
	return out
}

// itemLines extracts bullet or numbered items, one per line.
func itemLines(body string) []string {
	var items []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case bulletRe.MatchString(line):
			items = append(items, bulletRe.ReplaceAllString(line, ""))
		case numberedRe.MatchString(line):
			items = append(items, numberedRe.ReplaceAllString(line, ""))
		}
	}
	return items
}

// splitLead separates a bold lead-in ("**Concentration:** rest") into the
// category/action and the description. Without a lead-in, the first few
// words serve as the category.
func splitLead(line string) (string, string) {
	if m := boldLeadRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(boldLeadRe.ReplaceAllString(line, ""))
	}
	words := strings.Fields(line)
	if len(words) <= 4 {
		return line, line
	}
	return strings.Join(words[:3], " "), line
}
