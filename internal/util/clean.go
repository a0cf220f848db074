package util

import (
	"regexp"
	"strings"
)

var (
	hspaceRe   = regexp.MustCompile(`[ \t]+`)
	lineEndRe  = regexp.MustCompile(`\r\n?`)
	newlinesRe = regexp.MustCompile(`\n{3,}`)
)

// CleanText canonicalizes raw extracted page text before chunking.
// Order matters: NUL bytes become spaces (Postgres text columns reject them),
// runs of spaces/tabs collapse to one space, CR/CRLF become LF, three or more
// consecutive newlines collapse to two, and the result is trimmed.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\x00", " ")
	text = hspaceRe.ReplaceAllString(text, " ")
	text = lineEndRe.ReplaceAllString(text, "\n")
	text = newlinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
