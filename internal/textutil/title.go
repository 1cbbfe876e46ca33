package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title capitalizes each word of s.
func Title(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Title(language.Und).String(s)
}

// Snippet collapses whitespace and truncates s to limit runes, appending "...".
func Snippet(s string, limit int) string {
	clean := strings.Join(strings.Fields(s), " ")
	if limit <= 0 || utf8.RuneCountInString(clean) <= limit {
		return clean
	}
	if limit <= 3 {
		return string([]rune(clean)[:limit])
	}
	return string([]rune(clean)[:limit-3]) + "..."
}
