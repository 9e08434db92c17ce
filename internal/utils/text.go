package utils

import (
	"strings"
	"unicode/utf8"
)

// CleanUTF8 removes or replaces invalid UTF8 characters from a string.
// Returns the cleaned string and a boolean indicating if cleaning was needed.
func CleanUTF8(input string) (string, bool) {
	needsCleaning := strings.Contains(input, "\x00") || !utf8.ValidString(input)

	if !needsCleaning {
		return input, false
	}

	cleaned := strings.ToValidUTF8(input, "")
	cleaned = strings.ReplaceAll(cleaned, "\x00", "")

	return cleaned, true
}

// Normalize folds a provider string (artist, genre) into a comparison key:
// cleaned and lower-cased with whitespace collapsed.
func Normalize(value string) string {
	cleaned, _ := CleanUTF8(value)
	return strings.Join(strings.Fields(strings.ToLower(cleaned)), " ")
}

// NormalizePtr is Normalize for optional provider fields; nil becomes "".
func NormalizePtr(value *string) string {
	if value == nil {
		return ""
	}
	return Normalize(*value)
}

// Dedupe drops blank entries and repeats while keeping first-seen order.
func Dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		result = append(result, value)
	}
	return result
}
