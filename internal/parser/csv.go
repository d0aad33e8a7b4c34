package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/text2mind/internal/mindtree"
)

// CSVParser handles spreadsheet outlines: the column holding a row's first
// non-empty cell is its depth, and that cell is its title.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*mindtree.Node, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var entries []mindtree.Entry
	for _, row := range records {
		for col, cell := range row {
			if cell = strings.TrimSpace(cell); cell != "" {
				entries = append(entries, mindtree.Entry{Level: col + 1, Title: singleLine(cell)})
				break
			}
		}
	}

	return outlineTree(titleFromFilename(filename), entries), nil
}
