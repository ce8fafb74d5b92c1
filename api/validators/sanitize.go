package validators

import "strings"

// SanitizeString trims surrounding whitespace and truncates to maxLen bytes.
// Chain addresses and other path params run through this before hitting a
// query; a maxLen of zero or less disables truncation.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}
