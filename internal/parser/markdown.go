package parser

import (
	"bytes"
	"io"

	"github.com/dgallion1/text2mind/internal/mindtree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. Headings nest by
// level; list items nest under the heading before them and under their
// parent items; other paragraphs become leaves of the current heading.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*mindtree.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var entries []mindtree.Entry
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if title := inlineText(node, src); title != "" {
				entries = append(entries, mindtree.Entry{Level: node.Level, Title: title})
			}
		case *ast.List:
			entries = appendListItems(entries, node, src, 1)
		case *ast.Paragraph, *ast.Blockquote:
			if t := inlineText(node, src); t != "" {
				entries = append(entries, mindtree.Entry{Level: bodyLevel, Title: t})
			}
		}
	}

	return outlineTree(titleFromFilename(filename), entries), nil
}

func appendListItems(entries []mindtree.Entry, list *ast.List, src []byte, depth int) []mindtree.Entry {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		if _, ok := item.(*ast.ListItem); !ok {
			continue
		}
		var nested []*ast.List
		var title string
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				nested = append(nested, sub)
				continue
			}
			if title == "" {
				title = inlineText(c, src)
			}
		}
		entries = append(entries, mindtree.Entry{Level: bodyLevel + depth, Title: title})
		for _, sub := range nested {
			entries = appendListItems(entries, sub, src, depth+1)
		}
	}
	return entries
}

// inlineText gets the text content of a goldmark node's inline descendants
// on a single line.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var collect func(ast.Node)
	collect = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Segment.Value(src))
				if t.HardLineBreak() || t.SoftLineBreak() {
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(t.Value)
			default:
				collect(c)
			}
		}
	}
	collect(n)
	return singleLine(buf.String())
}
