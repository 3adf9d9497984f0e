// Package validation rejects malformed generation input before any provider
// is contacted. Everything here is pure: no I/O, no logging.
package validation

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"site-ai-gateway/internal/llm-router/apperr"
)

// Policy bounds the length of free-text input, counted in runes after
// trimming. A MinLength of 0 only requires non-blank input.
type Policy struct {
	MinLength int
	MaxLength int
}

var DefaultPolicy = Policy{MinLength: 0, MaxLength: 4000}

// ValidateProjectID returns the trimmed id or a MissingProject error.
func ValidateProjectID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperr.New(
			apperr.KindMissingProject,
			"Project ID is required",
			"Please specify which project this request is for",
		)
	}
	return id, nil
}

// ValidateMessage returns the trimmed message or an InvalidInput error
// listing every reason it was rejected.
func (p Policy) ValidateMessage(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	length := utf8.RuneCountInString(trimmed)

	var reasons []string
	if trimmed == "" {
		reasons = append(reasons, "Message cannot be empty")
	} else if p.MinLength > 0 && length < p.MinLength {
		reasons = append(reasons, fmt.Sprintf("Message is too short (minimum %d characters)", p.MinLength))
	}
	if p.MaxLength > 0 && length > p.MaxLength {
		reasons = append(reasons, fmt.Sprintf("Message is too long (maximum %d characters)", p.MaxLength))
	}

	if len(reasons) > 0 {
		return "", apperr.New(apperr.KindInvalidInput, "Invalid input", reasons...)
	}
	return trimmed, nil
}

// ValidateStructuredFields trims every field and checks that each required
// key is present and non-blank. All missing keys are reported, in the order
// they were required.
func (p Policy) ValidateStructuredFields(fields map[string]string, requiredKeys []string) (map[string]string, error) {
	normalized := make(map[string]string, len(fields))
	for key, value := range fields {
		normalized[key] = strings.TrimSpace(value)
	}

	var reasons []string
	for _, key := range requiredKeys {
		if normalized[key] == "" {
			reasons = append(reasons, fmt.Sprintf("%s is required", key))
		}
	}

	if p.MaxLength > 0 {
		keys := make([]string, 0, len(normalized))
		for key := range normalized {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if utf8.RuneCountInString(normalized[key]) > p.MaxLength {
				reasons = append(reasons, fmt.Sprintf("%s is too long (maximum %d characters)", key, p.MaxLength))
			}
		}
	}

	if len(requiredKeys) == 0 && !hasValue(normalized) {
		reasons = append(reasons, "Form data cannot be empty")
	}

	if len(reasons) > 0 {
		return nil, apperr.New(apperr.KindInvalidFormData, "Invalid form data", reasons...)
	}
	return normalized, nil
}

func hasValue(fields map[string]string) bool {
	for _, v := range fields {
		if v != "" {
			return true
		}
	}
	return false
}
