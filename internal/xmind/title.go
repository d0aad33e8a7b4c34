package xmind

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxTitleRunes is the longest title rendered unchanged.
	MaxTitleRunes  = 100
	truncatedRunes = 97
	Ellipsis       = "..."

	// UntitledTitle replaces titles that are empty after cleaning.
	UntitledTitle = "Untitled"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeText escapes the five XML metacharacters. It must be applied exactly
// once to a title.
func EscapeText(s string) string {
	return xmlEscaper.Replace(s)
}

// SanitizeTitle drops characters XML 1.0 cannot carry, turns line breaks
// into spaces and substitutes UntitledTitle for a blank result.
func SanitizeTitle(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\r' || r == '\n':
			return ' '
		case validXMLChar(r):
			return r
		}
		return -1
	}, s)
	if strings.TrimSpace(s) == "" {
		return UntitledTitle
	}
	return s
}

// TruncateTitle shortens titles longer than MaxTitleRunes to their first 97
// runes followed by Ellipsis.
func TruncateTitle(s string) string {
	if utf8.RuneCountInString(s) <= MaxTitleRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == truncatedRunes {
			return s[:i] + Ellipsis
		}
		n++
	}
	return s
}

// CleanTitle is the raw form of a title as it appears in the document,
// before escaping.
func CleanTitle(s string) string {
	return TruncateTitle(SanitizeTitle(s))
}

// titleText is CleanTitle followed by a single escape.
func titleText(s string) string {
	return EscapeText(CleanTitle(s))
}

func validXMLChar(r rune) bool {
	switch {
	case r == 0x9 || r == 0xA || r == 0xD:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}
