// Package validation holds the input checks shared by the HTTP handlers.
package validation

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ValidEmail reports whether value looks like an email address.
func ValidEmail(value string) bool {
	return emailPattern.MatchString(value)
}

// ValidUUID reports whether value is a well-formed UUID.
func ValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

// ValidDate reports whether value is a YYYY-MM-DD calendar date.
func ValidDate(value string) bool {
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}

// ValidMonth reports whether value is a YYYY-MM month.
func ValidMonth(value string) bool {
	return monthPattern.MatchString(value)
}

// SanitizeString trims whitespace and truncates to maxLength.
func SanitizeString(value string, maxLength int) string {
	value = strings.TrimSpace(value)
	if len(value) > maxLength {
		value = value[:maxLength]
	}
	return value
}

// ValidAmount checks a monetary amount: non-negative with at most two
// significant decimal places.
func ValidAmount(value float64) (bool, string) {
	if value < 0 {
		return false, "Amount cannot be negative"
	}
	cents := value * 100
	if diff := cents - float64(int64(cents+0.5)); diff > 1e-6 || diff < -1e-6 {
		return false, "Amount cannot have more than 2 decimal places"
	}
	return true, ""
}

// Clamp constrains v to [min, max].
func Clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
