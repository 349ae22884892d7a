// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package athena

import "testing"

func TestCoerceCell(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want any
	}{
		{"", ""},
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"003", int64(3)},
		{"123456789012", int64(123456789012)},
		{"3.14", 3.14},
		{"-0.5", -0.5},
		{".25", 0.25},
		{"1e3", float64(1000)},
		{"2.5E-2", 0.025},
		{"AmazonEC2", "AmazonEC2"},
		{"2025-10-01", "2025-10-01"},
		{"i-0abc123", "i-0abc123"},
		// Wider than int64 stays textual.
		{"99999999999999999999999999", "99999999999999999999999999"},
	}
	for _, tt := range tests {
		if got := coerceCell(tt.raw); got != tt.want {
			t.Errorf("coerceCell(%q) = %v (%T), want %v (%T)", tt.raw, got, got, tt.want, tt.want)
		}
	}
}
