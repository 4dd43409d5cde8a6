package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxPromptLength is the maximum allowed prompt length in characters.
	MaxPromptLength = 50000
)

var (
	// ErrEmptyPrompt is returned for a prompt that is empty or only whitespace.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
	// ErrPromptTooLong is returned for a prompt over MaxPromptLength characters.
	ErrPromptTooLong = errors.New("prompt too long")
	// ErrMissingAPIKey is returned when a backend is constructed without a credential.
	ErrMissingAPIKey = errors.New("API key is required")
)

// ValidateAPIKey checks that a credential is present and has no embedded
// whitespace. Backend-specific key formats are not enforced.
func ValidateAPIKey(apiKey string) error {
	if apiKey == "" {
		return ErrMissingAPIKey
	}
	if strings.ContainsAny(apiKey, " \t\n\r") {
		return fmt.Errorf("API key contains whitespace")
	}
	return nil
}

// ValidatePrompt validates prompt text before it is sent to a backend.
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	if n := utf8.RuneCountInString(prompt); n > MaxPromptLength {
		return fmt.Errorf("%w: maximum is %d characters (got %d)", ErrPromptTooLong, MaxPromptLength, n)
	}
	return nil
}
