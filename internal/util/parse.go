package util

import "regexp"

var nonNumericRegex = regexp.MustCompile(`[^\d]`)

// CleanNumericString drops every character that is not a decimal digit.
func CleanNumericString(s string) string {
	return nonNumericRegex.ReplaceAllString(s, "")
}
