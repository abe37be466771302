// internal/app/system/htmlsanitize/htmlsanitize.go
//
// Package htmlsanitize cleans text that comes from the backend before it is
// shown to staff. Backend error messages sometimes carry HTML from framework
// error pages; only their text survives.
package htmlsanitize

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxMessage is the longest message, in runes, a notice will display.
const MaxMessage = 300

var strict = bluemonday.StrictPolicy()

// Text strips every tag and collapses runs of whitespace.
func Text(s string) string {
	if s == "" {
		return ""
	}
	clean := html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(clean), " ")
}

// Message is Text truncated to MaxMessage runes, with fallback used when
// nothing readable is left.
func Message(s, fallback string) string {
	msg := Text(s)
	if msg == "" {
		return fallback
	}
	if utf8.RuneCountInString(msg) > MaxMessage {
		r := []rune(msg)
		msg = strings.TrimSpace(string(r[:MaxMessage])) + "…"
	}
	return msg
}
