package parser

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/text2mind/internal/mindtree"
)

// BulletMarkers are the leading list markers stripped from each line.
const BulletMarkers = "-*+•"

// TextParser handles indented plain text outlines.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*mindtree.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseText(string(src)), nil
}

// ParseText turns indented text into a tree. It never fails.
//
// The first non-blank line is the root. Every later non-blank line becomes a
// child of the closest preceding line with strictly smaller indentation,
// where indentation is the count of leading whitespace characters. Lines
// that are not indented deeper than anything before them, the root included,
// are attached directly to the root.
func ParseText(text string) *mindtree.Node {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return mindtree.New(mindtree.EmptyTitle)
	}

	lines := strings.Split(trimmed, "\n")
	entries := make([]mindtree.Entry, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, mindtree.Entry{
			Level: indentWidth(line),
			Title: stripBullet(line),
		})
	}

	return mindtree.Build(stripBullet(lines[0]), entries)
}

func indentWidth(line string) int {
	rest := strings.TrimLeftFunc(line, unicode.IsSpace)
	return utf8.RuneCountInString(line[:len(line)-len(rest)])
}

// stripBullet trims the line and drops one leading bullet marker.
func stripBullet(line string) string {
	title := strings.TrimSpace(line)
	r, size := utf8.DecodeRuneInString(title)
	if size > 0 && strings.ContainsRune(BulletMarkers, r) {
		title = strings.TrimSpace(title[size:])
	}
	return title
}
