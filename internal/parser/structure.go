package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/text2mind/internal/mindtree"
	"gopkg.in/yaml.v3"
)

// StructureParser reads an already-structured tree from JSON or YAML:
//
//	{"title": "Root", "children": [{"title": "A", "topics": [...]}]}
//
// Either "children" or "topics" may hold a node's subtopics. When both are
// present and "children" is non-empty, "children" wins.
type StructureParser struct{}

type structureNode struct {
	Title    string          `json:"title" yaml:"title"`
	Children []structureNode `json:"children" yaml:"children"`
	Topics   []structureNode `json:"topics" yaml:"topics"`
}

func (p *StructureParser) Parse(r io.Reader, filename string) (*mindtree.Node, error) {
	var doc structureNode
	var err error
	// yaml.v3 rejects tab indentation, which is common in JSON files.
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		err = json.NewDecoder(r).Decode(&doc)
	} else {
		err = yaml.NewDecoder(r).Decode(&doc)
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return mindtree.New(mindtree.EmptyTitle), nil
		}
		return nil, fmt.Errorf("parse structure: %w", err)
	}

	root := doc.toNode()
	if root.Title == "" {
		root.Title = titleFromFilename(filename)
	}
	return root, nil
}

func (s structureNode) subtopics() []structureNode {
	if len(s.Children) > 0 {
		return s.Children
	}
	return s.Topics
}

func (s structureNode) toNode() *mindtree.Node {
	n := mindtree.New(singleLine(strings.TrimSpace(s.Title)))
	for _, c := range s.subtopics() {
		n.Add(c.toNode())
	}
	return n
}
