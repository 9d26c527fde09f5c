package api

import (
	"regexp"
	"strings"
)

var asinPattern = regexp.MustCompile(`^[A-Za-z0-9]{10}$`)

const maxSearchQueryLen = 200

// NormalizeASIN validates a product ID (10 alphanumeric chars, case
// insensitive) and returns its uppercase form used for cache keys and
// upstream paths.
func NormalizeASIN(productID string) (string, bool) {
	if !asinPattern.MatchString(productID) {
		return "", false
	}
	return strings.ToUpper(productID), true
}

// NormalizeSearchQuery length-checks the raw query and returns the trimmed
// form, which is the semantic query.
func NormalizeSearchQuery(raw string) (string, bool) {
	if len(raw) < 1 || len(raw) > maxSearchQueryLen {
		return "", false
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}
