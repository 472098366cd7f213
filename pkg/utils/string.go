package utils

// Truncate shortens s to maxLen with a trailing ellipsis, used when logging
// message previews.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
