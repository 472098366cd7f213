package chat

import "strings"

// DefaultMaxMessageChars is the maximum accepted length of a normalized
// user message.
const DefaultMaxMessageChars = 1000

// Normalize collapses runs of whitespace into a single space and trims both
// ends. Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
