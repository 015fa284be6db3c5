// Package slug turns free-form feature names into filesystem-safe keys.
package slug

import (
	"strings"
	"unicode"

	"github.com/HendryAvila/sdd-engine/internal/sdderr"
)

const (
	maxLen   = 50
	maxIDLen = 200
)

// Key validates an opaque identifier (feature or gate id) and returns
// the slug used to name its file.
func Key(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", sdderr.Invalid("identifier is required")
	}
	if len(trimmed) > maxIDLen {
		return "", sdderr.Invalid("identifier longer than %d characters", maxIDLen)
	}
	if strings.IndexFunc(trimmed, unicode.IsControl) >= 0 {
		return "", sdderr.Invalid("identifier %q contains control characters", trimmed)
	}
	return Make(trimmed), nil
}

// Make converts a description string into a URL/filesystem-safe slug.
// Example: "fix: crash on start" → "fix-crash-on-start"
//
// Rules:
//   - Lowercase
//   - Spaces, underscores and punctuation separators become hyphens
//   - Other non-alphanumeric characters are removed
//   - Consecutive hyphens are collapsed
//   - Leading/trailing hyphens are trimmed
//   - Truncated to 50 characters (at a word boundary if possible)
//   - Empty input returns "unnamed"
func Make(description string) string {
	s := strings.ToLower(strings.TrimSpace(description))
	if s == "" {
		return "unnamed"
	}

	var b strings.Builder
	prevHyphen := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevHyphen = false
		case r == ' ' || r == '_' || r == '-' || r == ':' || r == '/' || r == '.':
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "unnamed"
	}
	if len(out) <= maxLen {
		return out
	}

	truncated := out[:maxLen]
	if lastHyphen := strings.LastIndex(truncated, "-"); lastHyphen > maxLen/2 {
		truncated = truncated[:lastHyphen]
	}
	return strings.TrimRight(truncated, "-")
}
