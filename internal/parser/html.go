package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/text2mind/internal/mindtree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. Headings and nested ul/ol lists form the
// hierarchy.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*mindtree.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var entries []mindtree.Entry
	add := func(level int, title string) {
		if title = singleLine(title); title != "" {
			entries = append(entries, mindtree.Entry{Level: level, Title: title})
		}
	}

	var walk func(n *html.Node, listDepth int)
	walk = func(n *html.Node, listDepth int) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				add(level, textContent(n, false))
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header", "head":
				return
			case "ul", "ol":
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c, listDepth+1)
				}
				return
			case "li":
				add(bodyLevel+max(listDepth, 1), textContent(n, true))
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
						walk(c, listDepth)
					}
				}
				return
			case "p", "td", "blockquote":
				add(bodyLevel, textContent(n, false))
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, listDepth)
		}
	}

	// Find <body> or use whole document.
	if body := findBody(doc); body != nil {
		walk(body, 0)
	} else {
		walk(doc, 0)
	}

	// Extract title from <title> tag if present.
	fallback := titleFromFilename(filename)
	if title := findTitle(doc); title != "" {
		fallback = title
	}
	return outlineTree(fallback, entries), nil
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

// textContent concatenates the text below n. With skipLists set, nested
// ul/ol subtrees are left out so a list item yields only its own label.
func textContent(n *html.Node, skipLists bool) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if skipLists && c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
				continue
			}
			extract(c)
		}
	}
	extract(n)
	return singleLine(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n, false)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
