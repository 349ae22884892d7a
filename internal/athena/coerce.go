// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package athena

import (
	"regexp"
	"strconv"
)

var (
	intRe   = regexp.MustCompile(`^[+-]?\d+$`)
	floatRe = regexp.MustCompile(`^[+-]?(?:\d+\.\d*|\.\d+|\d+)(?:[eE][+-]?\d+)?$`)
)

// coerceCell converts Athena's string cells into typed scalars: integers
// to int64, decimals and exponentials to float64, everything else stays a
// string. Account IDs without a leading zero coerce to int64; the
// formatter re-renders account-like columns zero-padded to 12 digits.
func coerceCell(raw string) any {
	if raw == "" {
		return ""
	}
	if intRe.MatchString(raw) {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
		// Wider than int64, keep the digits as text.
		return raw
	}
	if floatRe.MatchString(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	return raw
}
