// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinPasswordLength is the baseline password length.
	MinPasswordLength = 8
	// StrongPasswordLength is the minimum length under the strict policy.
	StrongPasswordLength = 12
	maxPasswordLength    = 128
	maxUsernameLength    = 64
	maxEmailLength       = 254
	// MaxCommentLength bounds comment bodies.
	MaxCommentLength = 10000
)

var (
	usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}_.\-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	digitRegex    = regexp.MustCompile(`[0-9]`)
	specialRegex  = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)
)

// ValidatePassword checks the baseline password policy.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLength)
	}
	return nil
}

// ValidateStrongPassword checks the strict password policy
func ValidateStrongPassword(password string) error {
	if utf8.RuneCountInString(password) < StrongPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", StrongPasswordLength)
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}

	var hasUpper, hasLower bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !digitRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one digit")
	}
	if !specialRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one special character (!@#$%%^&*)")
	}

	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("username can't be blank")
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return fmt.Errorf("username must not exceed %d characters", maxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, dots, underscores, and hyphens")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("email can't be blank")
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("email must not exceed %d characters", maxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateRequired rejects blank values for the named field.
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s can't be blank", field)
	}
	return nil
}

// ValidateCommentBody checks comment body bounds.
func ValidateCommentBody(body string) error {
	if err := ValidateRequired("body", body); err != nil {
		return err
	}
	if utf8.RuneCountInString(body) > MaxCommentLength {
		return fmt.Errorf("body must not exceed %d characters", MaxCommentLength)
	}
	return nil
}
