package codehub

import (
	"fmt"
	"strings"
	"unicode"
)

const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

// CheckPasswordPolicy verifies that password meets the platform rules:
// at least 8 characters with an uppercase letter, a lowercase letter,
// a digit, and a special character from the allowed set. The returned
// error wraps ErrPasswordPolicy and names the first missing rule.
func CheckPasswordPolicy(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: must be at least 8 characters", ErrPasswordPolicy)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return fmt.Errorf("%w: must contain an uppercase letter", ErrPasswordPolicy)
	case !hasLower:
		return fmt.Errorf("%w: must contain a lowercase letter", ErrPasswordPolicy)
	case !hasDigit:
		return fmt.Errorf("%w: must contain a digit", ErrPasswordPolicy)
	case !hasSpecial:
		return fmt.Errorf("%w: must contain a special character", ErrPasswordPolicy)
	}

	return nil
}
