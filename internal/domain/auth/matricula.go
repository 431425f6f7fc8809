package auth

import (
	"regexp"
	"strings"

	apperrors "github.com/sescincjoi/central-sci/internal/errors"
)

// matriculaPattern is the canonical membership number shape:
// three letters followed by four digits, e.g. "ABC1234".
var matriculaPattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{4}$`)

// NormalizeMatricula trims surrounding whitespace and uppercases the
// membership number. It does not validate the result.
func NormalizeMatricula(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidateMatricula normalizes and validates a membership number,
// returning the canonical form or a field-scoped validation error.
func ValidateMatricula(s string) (string, error) {
	m := NormalizeMatricula(s)
	if !matriculaPattern.MatchString(m) {
		return "", apperrors.ValidationField("matricula",
			"Membership number must be 3 letters followed by 4 digits (e.g. ABC1234).")
	}
	return m, nil
}
