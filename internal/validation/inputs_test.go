// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package validation

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidAccountID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		id   string
		want bool
	}{
		{"123456789012", true},
		{"000000000001", true},
		{"12345678901", false},
		{"1234567890123", false},
		{"12345678901a", false},
		{"", false},
		{"123456789012 ", false},
	}
	for _, tt := range tests {
		if got := ValidAccountID(tt.id); got != tt.want {
			t.Errorf("ValidAccountID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestValidDate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		date string
		want bool
	}{
		{"2024-02-29", true},
		// Shape-only validation: calendar impossibilities still pass.
		{"2024-02-30", true},
		{"2024-13-01", false},
		{"2024-00-15", false},
		{"2024-01-00", false},
		{"2024-01-32", false},
		{"2024-1-05", false},
		{"24-01-05", false},
		{"2024/01/05", false},
		{"2025-12-31", true},
	}
	for _, tt := range tests {
		if got := ValidDate(tt.date); got != tt.want {
			t.Errorf("ValidDate(%q) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestValidServiceCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		code string
		want bool
	}{
		{"AmazonEC2", true},
		{"AWSLambda", true},
		{"awskms", true},
		{"Amazon EC2", false},
		{"Amazon-EC2", false},
		{"'; DROP", false},
		{"A", false},
	}
	for _, tt := range tests {
		if got := ValidServiceCode(tt.code); got != tt.want {
			t.Errorf("ValidServiceCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestValidRegion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		region string
		want   bool
	}{
		{"us-east-1", true},
		{"eu-west-2", true},
		{"ap-southeast-3", true},
		{"us-gov-west-1", true},
		{"useast1", false},
		{"us-east-", false},
		{"US-EAST-1", false},
	}
	for _, tt := range tests {
		if got := ValidRegion(tt.region); got != tt.want {
			t.Errorf("ValidRegion(%q) = %v, want %v", tt.region, got, tt.want)
		}
	}
}

func TestValidARN(t *testing.T) {
	t.Parallel()
	tests := []struct {
		arn  string
		want bool
	}{
		{"arn:aws:ecs:us-east-1:123456789012:service/prod/web", true},
		{"arn:aws:s3:::my-bucket", true},
		{"arn:aws-cn:ec2:cn-north-1:123456789012:instance/i-0abc", true},
		{"arn:aws:lambda:us-east-1:123456789012:function:billing", true},
		{"not-an-arn", false},
		{"arn:aws:ec2:us-east-1:123456789012:instance/'; DROP", false},
	}
	for _, tt := range tests {
		if got := ValidARN(tt.arn); got != tt.want {
			t.Errorf("ValidARN(%q) = %v, want %v", tt.arn, got, tt.want)
		}
	}
}

func TestValidResourceID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		id   string
		want bool
	}{
		{"i-0abc123def", true},
		{"my-table", true},
		{"arn:aws:s3:::my-bucket", true},
		{"vol-0a1b/snapshot", true},
		{"id with spaces", false},
		{"id'quote", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidResourceID(tt.id); got != tt.want {
			t.Errorf("ValidResourceID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestValidResourceIDLengthCap(t *testing.T) {
	t.Parallel()
	if !ValidResourceID(strings.Repeat("a", 2048)) {
		t.Error("2048-byte id rejected")
	}
	if ValidResourceID(strings.Repeat("a", 2049)) {
		t.Error("2049-byte id accepted")
	}
}

func TestFilterAccountIDs(t *testing.T) {
	t.Parallel()
	in := []string{"123456789012", " 210987654321 ", "bogus", "12345"}
	want := []string{"123456789012", "210987654321"}
	if got := FilterAccountIDs(in); !reflect.DeepEqual(got, want) {
		t.Errorf("FilterAccountIDs(%v) = %v, want %v", in, got, want)
	}
	if got := FilterAccountIDs(nil); len(got) != 0 {
		t.Errorf("FilterAccountIDs(nil) = %v, want empty", got)
	}
}

func TestQuoteSQLString(t *testing.T) {
	t.Parallel()
	if got := QuoteSQLString("AmazonEC2"); got != "'AmazonEC2'" {
		t.Errorf("QuoteSQLString = %q", got)
	}
	if got := QuoteSQLString("o'brien"); got != "'o''brien'" {
		t.Errorf("QuoteSQLString with quote = %q", got)
	}
}
