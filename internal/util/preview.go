package util

import "strings"

// Preview truncates chunk text for display, collapsing whitespace so the
// snippet stays on one line. An ellipsis marks truncation.
func Preview(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 220
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "..."
}
