package validation

import (
	"errors"
	"unicode/utf8"
)

const (
	PasswordMinLength = 8
	// bcrypt ignores input past 72 bytes.
	PasswordMaxLength = 72
)

// ValidatePassword enforces the signup password policy and returns the
// first unmet rule.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < PasswordMinLength || len(password) > PasswordMaxLength {
		return errors.New("Password must be 8-72 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return errors.New("Password must contain an uppercase letter")
	case !hasLower:
		return errors.New("Password must contain a lowercase letter")
	case !hasDigit:
		return errors.New("Password must contain a number")
	case !hasSpecial:
		return errors.New("Password must contain a special character")
	}
	return nil
}
