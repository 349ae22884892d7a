// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package pipeline

import "github.com/costlens/costlens/internal/athena"

// clarificationsFor maps a failure message to user-facing suggestions,
// keyed on the error classification.
func clarificationsFor(errMessage string) []string {
	switch athena.ClassifyMessage(errMessage) {
	case "column_not_found":
		return []string{
			"The query referenced a column that doesn't exist in the billing data.",
			"Try rephrasing with standard terms like service, region, or account.",
		}
	case "syntax_error":
		return []string{
			"The generated query had a syntax problem.",
			"Try asking the question in a simpler form.",
		}
	case "permission":
		return []string{
			"You don't have access to some of the requested data.",
			"Try narrowing the question to your own accounts.",
		}
	case "timeout":
		return []string{
			"The query took too long to complete.",
			"Try a shorter time range or fewer groupings.",
		}
	default:
		return []string{
			"Something went wrong running the analysis.",
			"Try rephrasing the question or narrowing the time range.",
		}
	}
}
