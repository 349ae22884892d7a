// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

package validation

import (
	"regexp"
	"strings"
)

// Input validators for every caller-supplied value that reaches generated
// SQL. Athena has no end-to-end parameter binding, so these shape checks
// are part of the injection defense alongside the SQL validator.

var (
	accountIDRe = regexp.MustCompile(`^\d{12}$`)

	// dateRe accepts YYYY-MM-DD with month 01-12 and day 01-31. Calendar
	// validity beyond that (Feb 30, Apr 31, leap years) is intentionally
	// not checked; 2024-02-29 and 2024-02-30 both pass.
	dateRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)

	// serviceCodeRe matches CUR product codes: AmazonEC2, AWSLambda,
	// awskms, AmazonRDS. Alphanumeric only, no spaces or punctuation.
	serviceCodeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{1,63}$`)

	// regionRe matches AWS region codes such as us-east-1, eu-west-2,
	// ap-southeast-3 and the gov/iso variants.
	regionRe = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d$`)

	// arnRe matches the general ARN shape. The resource part may contain
	// slashes, colons, dots and dashes but no quotes.
	arnRe = regexp.MustCompile(`^arn:aws[a-z\-]*:[a-z0-9\-]+:[a-z0-9\-]*:\d{0,12}:[A-Za-z0-9\-_:/\.\*]+$`)

	// tagValueRe admits characters AWS allows in tag values minus quotes.
	tagValueRe = regexp.MustCompile(`^[A-Za-z0-9\s_\.:\+=@/\-]{1,256}$`)

	// resourceIDRe matches bare resource ids (i-0abc, table names, bucket
	// names) that appear in line_item_resource_id without the arn: prefix.
	// The 2048-byte length cap lives in ValidResourceID; Go's regexp
	// rejects repeat counts above 1000.
	resourceIDRe = regexp.MustCompile(`^[A-Za-z0-9\-_\.:/\*]+$`)
)

// ValidAccountID reports whether id is a 12-digit AWS account ID.
func ValidAccountID(id string) bool {
	return accountIDRe.MatchString(id)
}

// ValidDate reports whether s is a YYYY-MM-DD date with in-range month and
// day fields.
func ValidDate(s string) bool {
	return dateRe.MatchString(s)
}

// ValidServiceCode reports whether s looks like a CUR product code.
func ValidServiceCode(s string) bool {
	return serviceCodeRe.MatchString(s)
}

// ValidRegion reports whether s is an AWS region code.
func ValidRegion(s string) bool {
	return regionRe.MatchString(s)
}

// ValidARN reports whether s is a well-formed ARN.
func ValidARN(s string) bool {
	return len(s) <= 2048 && arnRe.MatchString(s)
}

// ValidResourceID reports whether s is safe to use as a resource-id
// literal: a well-formed ARN or a bare id with no quotable characters.
func ValidResourceID(s string) bool {
	return ValidARN(s) || (len(s) <= 2048 && resourceIDRe.MatchString(s))
}

// ValidTagValue reports whether s is safe to use as a tag-value literal.
func ValidTagValue(s string) bool {
	return tagValueRe.MatchString(s)
}

// FilterAccountIDs returns only the entries that are valid 12-digit
// account IDs, preserving order.
func FilterAccountIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if ValidAccountID(strings.TrimSpace(id)) {
			out = append(out, strings.TrimSpace(id))
		}
	}
	return out
}

// QuoteSQLString single-quotes a validated literal for interpolation.
// Callers must have run the value through the relevant validator first;
// embedded quotes are doubled as a second line of defense.
func QuoteSQLString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
