package utils

import "strings"

// SanitizeIdentifier makes an identifier safe to use as a single path element.
// Separators, colons, spaces and dot-only names are replaced with dashes.
func SanitizeIdentifier(id string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case ':', ' ', '/', '\\', '\t', '\n':
			return '-'
		}
		return r
	}, strings.TrimSpace(id))

	if strings.Trim(sanitized, ".") == "" {
		return strings.Repeat("-", len(sanitized))
	}
	return sanitized
}
