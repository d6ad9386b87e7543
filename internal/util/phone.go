package util

import (
	"regexp"
	"strings"
)

const bdCountryCode = "880"

var bdPhoneRegex = regexp.MustCompile(`^\+8801[3-9]\d{8}$`)

// NormalizeBDPhone converts a Bangladeshi mobile number to E.164 form.
//
//	01712345678     -> +8801712345678
//	8801712345678   -> +8801712345678
//	+8801712345678  -> +8801712345678
//	1712345678      -> +8801712345678
//
// Input that does not look like a Bangladeshi mobile number is returned
// trimmed but otherwise unchanged, so validation can reject it.
func NormalizeBDPhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	digits := CleanNumericString(trimmed)

	switch {
	case len(digits) == 13 && strings.HasPrefix(digits, bdCountryCode+"1"):
		return "+" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "01"):
		return "+88" + digits
	case len(digits) == 10 && strings.HasPrefix(digits, "1"):
		return "+" + bdCountryCode + digits
	}
	return trimmed
}

// IsValidBDPhone reports whether phone is a normalized Bangladeshi mobile number.
func IsValidBDPhone(phone string) bool {
	return bdPhoneRegex.MatchString(phone)
}
