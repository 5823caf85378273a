package password

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrPolicyViolation is returned when a password does not satisfy the complexity policy.
var ErrPolicyViolation = errors.New("password does not meet complexity requirements")

// punctuation is the ASCII punctuation set accepted as a special character.
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Policy describes the complexity rules a new password must satisfy.
type Policy struct {
	MinLength          int
	RequireUpper       bool
	RequireLower       bool
	RequireDigit       bool
	RequirePunctuation bool
}

// DefaultPolicy returns the reference policy: 8 characters with upper, lower,
// digit and punctuation.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:          8,
		RequireUpper:       true,
		RequireLower:       true,
		RequireDigit:       true,
		RequirePunctuation: true,
	}
}

// Check returns nil when password satisfies p, or an error wrapping
// [ErrPolicyViolation] that names the first unmet rule.
//
// Length is counted in runes, not bytes.
func (p Policy) Check(password string) error {
	if utf8.RuneCountInString(password) < p.MinLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrPolicyViolation, p.MinLength)
	}

	var upper, lower, digit, punct bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(punctuation, r):
			punct = true
		}
	}

	if p.RequireDigit && !digit {
		return fmt.Errorf("%w: must contain a digit", ErrPolicyViolation)
	}
	if p.RequireUpper && !upper {
		return fmt.Errorf("%w: must contain an uppercase letter", ErrPolicyViolation)
	}
	if p.RequireLower && !lower {
		return fmt.Errorf("%w: must contain a lowercase letter", ErrPolicyViolation)
	}
	if p.RequirePunctuation && !punct {
		return fmt.Errorf("%w: must contain a special character", ErrPolicyViolation)
	}
	return nil
}

func (p Policy) validate() error {
	if p.MinLength < 1 {
		return errors.New("password policy MinLength must be >= 1")
	}
	if p.MinLength > 1024 {
		return errors.New("password policy MinLength must be <= 1024")
	}
	return nil
}
