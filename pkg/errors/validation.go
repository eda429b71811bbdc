package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// nameRegex matches adapter, mode and constant identifiers.
var nameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.+/-]*$`)

// ValidateName validates an identifier used to look up an adapter, a mode
// or a constant. The field argument is reported on failure.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or whitespace
//   - Maximum length of 128 characters
func ValidateName(field, name string) error {
	if name == "" {
		return InvalidInput(field, "cannot be empty")
	}

	if len(name) > 128 {
		return InvalidInput(field, "too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return InvalidInput(field, "contains invalid characters")
		}
	}

	if !nameRegex.MatchString(name) {
		return InvalidInput(field, "invalid name: %q", name)
	}

	return nil
}

// ValidateKey validates an object key or relative path used by export sinks.
// It prevents path traversal and ensures reasonable key length.
//
// Validation rules:
//   - Key cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute keys (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidateKey(key string) error {
	if key == "" {
		return InvalidInput("key", "cannot be empty")
	}

	const maxKeyLength = 500
	if len(key) > maxKeyLength {
		return InvalidInput("key", "too long (max %d characters)", maxKeyLength)
	}

	for _, r := range key {
		if r == '\x00' || unicode.IsControl(r) {
			return InvalidInput("key", "contains invalid characters")
		}
	}

	if strings.HasPrefix(key, "/") {
		return InvalidInput("key", "must be relative (cannot start with /)")
	}

	if strings.Contains(key, "..") {
		return InvalidInput("key", "cannot contain path traversal sequences (..)")
	}

	if strings.Contains(key, "\\") {
		return InvalidInput("key", "cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a scheme from the allowed set.
func ValidateURL(field, rawURL string, schemes ...string) error {
	if rawURL == "" {
		return InvalidInput(field, "URL cannot be empty")
	}

	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}
	for _, s := range schemes {
		if strings.HasPrefix(rawURL, s+"://") {
			return nil
		}
	}

	return InvalidInput(field, "URL must use one of the schemes %s", strings.Join(schemes, ", "))
}
