package service

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// checkLength trims s and verifies its rune count lies within [min, max]; max <= 0 means unbounded.
func checkLength(field, s string, min, max int) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n < min {
		if min == 1 {
			return s, invalid(field, "is required")
		}
		return s, invalid(field, "must be at least %d characters", min)
	}
	if max > 0 && n > max {
		return s, invalid(field, "must be at most %d characters", max)
	}
	return s, nil
}
