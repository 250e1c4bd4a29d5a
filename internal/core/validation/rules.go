// Package validation holds the client-side checks run before any request
// leaves the device. Everything here is pure and synchronous.
package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Result is the outcome of a single rule. Message is empty when Valid.
type Result struct {
	Valid   bool
	Message string
}

var passed = Result{Valid: true}

func fail(msg string) Result {
	return Result{Valid: false, Message: msg}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	minPasswordLength = 6
	minNameLength     = 2
	minTitleLength    = 3
	maxTextLength     = 255
)

// ValidateEmail checks the address has a local part, an @ and a dotted domain.
func ValidateEmail(email string) Result {
	if !emailPattern.MatchString(email) {
		return fail("invalid email address")
	}
	return passed
}

// ValidatePassword applies the strength rules in a fixed order (length,
// uppercase, lowercase, digit); the first failing rule wins.
func ValidatePassword(password string) Result {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fail("password must be at least 6 characters")
	}
	if !strings.ContainsFunc(password, isASCIIUpper) {
		return fail("password must contain at least one uppercase letter")
	}
	if !strings.ContainsFunc(password, isASCIILower) {
		return fail("password must contain at least one lowercase letter")
	}
	if !strings.ContainsFunc(password, isASCIIDigit) {
		return fail("password must contain at least one digit")
	}
	return passed
}

// ValidateName requires 2 to 255 characters once surrounding space is trimmed.
func ValidateName(name string) Result {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < minNameLength {
		return fail("name must be at least 2 characters")
	}
	if n > maxTextLength {
		return fail("name cannot exceed 255 characters")
	}
	return passed
}

// ValidateTaskTitle requires 3 to 255 characters once surrounding space is trimmed.
func ValidateTaskTitle(title string) Result {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n < minTitleLength {
		return fail("title must be at least 3 characters")
	}
	if n > maxTextLength {
		return fail("title cannot exceed 255 characters")
	}
	return passed
}

// ValidateFutureDate fails when date is strictly before the current time.
func ValidateFutureDate(date time.Time) Result {
	return validateFutureDateAt(date, time.Now())
}

func validateFutureDateAt(date, now time.Time) Result {
	if date.Before(now) {
		return fail("date must be in the future")
	}
	return passed
}

func isASCIIUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isASCIILower(r rune) bool { return r >= 'a' && r <= 'z' }
func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }
