package errors

import (
	"strings"
	"unicode"
)

// ValidateLabel validates a variable label taken from a dataset header or a
// prior-knowledge file. Labels end up in DOT output, JSON documents and
// cache keys, so the rules are conservative:
//   - No empty labels
//   - No control characters
//   - No quotes or backslashes
//   - Maximum length of 256 characters
func ValidateLabel(label string) error {
	if label == "" {
		return New(ErrCodeInvalidInput, "variable label cannot be empty")
	}

	if len(label) > 256 {
		return New(ErrCodeInvalidInput, "variable label too long (max 256 characters)")
	}

	for _, r := range label {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "variable label %q contains control characters", label)
		}
	}

	if strings.ContainsAny(label, "\"\\") {
		return New(ErrCodeInvalidInput, "variable label %q contains quotes or backslashes", label)
	}

	return nil
}

// ValidateLabels validates every label and rejects duplicates.
func ValidateLabels(labels []string) error {
	if len(labels) == 0 {
		return New(ErrCodeInvalidInput, "at least one variable is required")
	}
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if err := ValidateLabel(l); err != nil {
			return err
		}
		if seen[l] {
			return New(ErrCodeInvalidInput, "duplicate variable label: %q", l)
		}
		seen[l] = true
	}
	return nil
}

// ValidatePath validates a relative file path received over the API.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateProbability checks that v lies in the open interval (0, 1), as
// required for significance levels and edge densities.
func ValidateProbability(name string, v float64) error {
	if !(v > 0 && v < 1) {
		return New(ErrCodeInvalidInput, "%s must be in (0, 1), got %g", name, v)
	}
	return nil
}
