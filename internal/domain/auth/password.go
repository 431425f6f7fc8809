package auth

import (
	"strings"
	"unicode"

	apperrors "github.com/sescincjoi/central-sci/internal/errors"
)

// PasswordPolicy describes the strength requirements applied to new
// member passwords at registration and password change.
type PasswordPolicy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
	// SpecialChars is the accepted special character set when
	// RequireSpecial is on.
	SpecialChars string
}

// DefaultPasswordPolicy mirrors the portal's registration requirements.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireNumber: true,
		SpecialChars:  "!@#$%^&*",
	}
}

// Validate checks a candidate password against the policy and returns a
// field-scoped validation error listing every unmet requirement.
func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return apperrors.ValidationField("password",
			"Password must be at least 8 characters long.")
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		case strings.ContainsRune(p.SpecialChars, r):
			hasSpecial = true
		}
	}

	var missing []string
	if p.RequireUpper && !hasUpper {
		missing = append(missing, "an uppercase letter")
	}
	if p.RequireLower && !hasLower {
		missing = append(missing, "a lowercase letter")
	}
	if p.RequireNumber && !hasNumber {
		missing = append(missing, "a number")
	}
	if p.RequireSpecial && !hasSpecial {
		missing = append(missing, "a special character")
	}
	if len(missing) > 0 {
		return apperrors.ValidationField("password",
			"Password must contain at least: "+strings.Join(missing, ", ")+".")
	}
	return nil
}
