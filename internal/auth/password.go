package auth

import (
	"unicode"

	"github.com/pauljones0/bizdir/internal/apperr"
)

const minPasswordLength = 8

// PasswordRequirements records which strength rules a password satisfies.
type PasswordRequirements struct {
	Length    bool `json:"length"`
	Uppercase bool `json:"uppercase"`
	Lowercase bool `json:"lowercase"`
	Number    bool `json:"number"`
	Special   bool `json:"special"`
}

// Band is a coarse label for a password score.
type Band string

const (
	BandWeak   Band = "weak"
	BandFair   Band = "fair"
	BandGood   Band = "good"
	BandStrong Band = "strong"
)

// MaxPasswordScore is the score of a password meeting every requirement.
const MaxPasswordScore = 5

// PasswordStrength is the result of EvaluatePassword.
type PasswordStrength struct {
	Requirements PasswordRequirements `json:"requirements"`
	Score        int                  `json:"score"`
	Band         Band                 `json:"band"`
}

// EvaluatePassword scores a password by counting the requirements it meets.
func EvaluatePassword(password string) PasswordStrength {
	var req PasswordRequirements
	req.Length = len([]rune(password)) >= minPasswordLength
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			req.Uppercase = true
		case unicode.IsLower(r):
			req.Lowercase = true
		case unicode.IsDigit(r):
			req.Number = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r):
			req.Special = true
		}
	}

	score := 0
	for _, ok := range []bool{req.Length, req.Uppercase, req.Lowercase, req.Number, req.Special} {
		if ok {
			score++
		}
	}

	return PasswordStrength{Requirements: req, Score: score, Band: bandFor(score)}
}

func bandFor(score int) Band {
	switch {
	case score >= MaxPasswordScore:
		return BandStrong
	case score == 4:
		return BandGood
	case score == 3:
		return BandFair
	}
	return BandWeak
}

// CheckPasswordPolicy enforces the sign-up policy: length, upper case,
// lower case and a number. Special characters are recommended only.
func CheckPasswordPolicy(password string) error {
	req := EvaluatePassword(password).Requirements
	switch {
	case !req.Length:
		return apperr.Invalid("password", "must be at least 8 characters")
	case !req.Uppercase:
		return apperr.Invalid("password", "must contain an upper case letter")
	case !req.Lowercase:
		return apperr.Invalid("password", "must contain a lower case letter")
	case !req.Number:
		return apperr.Invalid("password", "must contain a number")
	}
	return nil
}
