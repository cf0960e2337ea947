package notes

import (
	"strings"
	"unicode/utf8"
)

// MaxContentLength is the upper bound on note content, in characters.
const MaxContentLength = 1000

const (
	msgContentEmpty   = "Note content cannot be empty."
	msgContentTooLong = "Note content cannot exceed 1000 characters."
)

// ValidationError reports field-scoped rule violations. It is terminal: the
// mutation that triggered it is rejected and nothing is persisted or
// broadcast.
type ValidationError struct {
	Fields map[string][]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	for field, msgs := range e.Fields {
		b.WriteString(": " + field + ": " + strings.Join(msgs, "; "))
	}
	return b.String()
}

func contentError(msg string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{"content": {msg}}}
}

// ValidateContent checks the exact string that will be stored. It runs inside
// every create and content-update path, not just at the HTTP boundary, so a
// direct service caller cannot bypass it.
func ValidateContent(content string) error {
	if content == "" {
		return contentError(msgContentEmpty)
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return contentError(msgContentTooLong)
	}
	return nil
}
