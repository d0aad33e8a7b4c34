package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/text2mind/internal/mindtree"
)

// ErrUnsupportedFormat is returned by ForFile for unknown extensions.
var ErrUnsupportedFormat = errors.New("unsupported file extension")

// Parser converts raw document bytes into a mind map tree.
type Parser interface {
	Parse(r io.Reader, filename string) (*mindtree.Node, error)
}

// Options tunes the parsers returned by ForFile.
type Options struct {
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	"":          true,
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
	".json":     true,
	".yaml":     true,
	".yml":      true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case "", ".txt", ".text":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".json", ".yaml", ".yml":
		return &StructureParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// Parse reads r with the parser registered for filename's extension.
func Parse(filename string, r io.Reader, opts Options) (*mindtree.Node, error) {
	p, err := ForFile(filename, opts)
	if err != nil {
		return nil, err
	}
	tree, err := p.Parse(r, filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(filename), err)
	}
	return tree, nil
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// bodyLevel sits below every heading level, so paragraphs and list items
// nest under the heading that precedes them.
const bodyLevel = 7

// outlineTree builds a tree from heading-style outline entries. A document
// that opens with its only top-level heading uses that heading as the root;
// otherwise the root gets fallbackTitle.
func outlineTree(fallbackTitle string, entries []mindtree.Entry) *mindtree.Node {
	if len(entries) > 0 && entries[0].Level == 1 {
		tops := 0
		for _, e := range entries {
			if e.Level == 1 {
				tops++
			}
		}
		if tops == 1 {
			return mindtree.Build(entries[0].Title, entries[1:])
		}
	}
	if fallbackTitle == "" {
		fallbackTitle = mindtree.EmptyTitle
	}
	return mindtree.Build(fallbackTitle, entries)
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	if title == "" || title == "." || title == string(filepath.Separator) {
		return mindtree.EmptyTitle
	}
	return title
}

// singleLine collapses runs of whitespace, including newlines, into one space.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
