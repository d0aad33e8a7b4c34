package xmind

import (
	"bufio"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgallion1/text2mind/internal/layout"
	"github.com/dgallion1/text2mind/internal/mindtree"
)

const (
	// RootID is the id of the central topic. Every other id extends it.
	RootID = "root"

	// BatchThreshold is the child count above which a sibling group is
	// written in batches of BatchSize, flushing every FlushEvery children.
	BatchThreshold = 1000
	BatchSize      = 200
	FlushEvery     = 100

	// Topics deeper than FoldDepth with more than FoldChildren children are
	// written collapsed.
	FoldDepth    = 2
	FoldChildren = 50

	// ThemeID links sheets to the theme in styles.xml.
	ThemeID = "0bjllfq8ghidkddh57pckr1vv1"
)

const (
	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>`
	contentNS = `xmlns="urn:xmind:xmap:xmlns:content:2.0" xmlns:fo="http://www.w3.org/1999/XSL/Format" ` +
		`xmlns:svg="http://www.w3.org/2000/svg" xmlns:xhtml="http://www.w3.org/1999/xhtml" ` +
		`xmlns:xlink="http://www.w3.org/1999/xlink"`
)

// Sheet is a tree ready to encode: its node count and the strategy chosen
// for that count are computed once by NewSheet.
type Sheet struct {
	Root     *mindtree.Node
	Nodes    int
	Strategy layout.Strategy
}

// NewSheet measures root and selects its layout strategy.
func NewSheet(root *mindtree.Node) Sheet {
	if root == nil {
		root = mindtree.New(mindtree.EmptyTitle)
	}
	n := mindtree.CountNodes(root)
	return Sheet{Root: root, Nodes: n, Strategy: layout.Select(n)}
}

// Encoder streams a Sheet as content.xml.
type Encoder struct {
	// Now supplies the single timestamp stamped on every element of one
	// encode. Defaults to time.Now.
	Now func() time.Time
	Log *slog.Logger
}

// NewEncoder returns an Encoder using the wall clock.
func NewEncoder(log *slog.Logger) *Encoder {
	return &Encoder{Now: time.Now, Log: log}
}

// frame is one open topic on the explicit DFS stack.
type frame struct {
	node  *mindtree.Node
	id    string
	depth int
	next  int
}

// Encode writes the document for s to w. Write errors are returned as they
// occur and are not retried.
func (e *Encoder) Encode(w io.Writer, s Sheet) error {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	log := e.Log
	if log == nil {
		log = slog.Default()
	}
	root := s.Root
	if root == nil {
		root = mindtree.New(mindtree.EmptyTitle)
	}

	ts := strconv.FormatInt(now().UnixMilli(), 10)
	tw := &topicWriter{bw: bufio.NewWriterSize(w, layout.BufferSize(s.Nodes))}

	tw.str(xmlHeader)
	tw.str(`<xmap-content `, contentNS, ` modified-by="XMind" timestamp="`, ts, `" version="2.0">`)
	tw.str(`<sheet id="`, sheetID(ts), `" timestamp="`, ts, `" theme="`, ThemeID, `">`)
	tw.str(`<topic id="`, RootID, `" timestamp="`, ts, `" structure-class="`, s.Strategy.String(), `">`)
	// The central topic keeps its full title; only attached topics are truncated.
	tw.str(`<title>`, EscapeText(SanitizeTitle(root.Title)), `</title>`)
	tw.str(`<position x="121" y="133"/>`)
	if len(root.Children) > 0 {
		tw.str(`<children><topics type="attached">`)
	}

	stack := []frame{{node: root, id: RootID}}
	for len(stack) > 0 && tw.err == nil {
		top := &stack[len(stack)-1]
		n := top.node
		if top.next == len(n.Children) {
			if len(n.Children) > 0 {
				tw.str(`</topics></children>`)
			}
			if len(stack) > 1 {
				tw.str(`</topic>`)
			}
			stack = stack[:len(stack)-1]
			continue
		}

		i := top.next
		top.next++
		if len(n.Children) > BatchThreshold {
			if i%BatchSize == 0 {
				log.Debug("encoding batch",
					"parent_id", top.id,
					"batch", i/BatchSize+1,
					"batches", (len(n.Children)+BatchSize-1)/BatchSize,
					"children", len(n.Children),
				)
			}
			if i%FlushEvery == 0 {
				tw.flush()
			}
		}

		child := n.Children[i]
		f := frame{node: child, id: top.id + "_" + strconv.Itoa(i), depth: top.depth + 1}
		tw.openTopic(f, ts)
		stack = append(stack, f)
	}

	tw.str(`</topic>`)
	tw.str(`<title>Sheet 1</title>`)
	writeRelationships(tw, relationships(root, s.Nodes), ts)
	tw.str(`</sheet></xmap-content>`)
	tw.flush()
	return tw.err
}

func (tw *topicWriter) openTopic(f frame, ts string) {
	tw.str(`<topic id="`, f.id, `"`)
	if role := styleID(f.depth); role != "" {
		tw.str(` style-id="`, role, `"`)
	}
	folded := "false"
	if f.depth > FoldDepth && len(f.node.Children) > FoldChildren {
		folded = "true"
	}
	tw.str(` timestamp="`, ts, `" folded="`, folded, `">`)
	tw.str(`<title>`, titleText(f.node.Title), `</title>`)
	if len(f.node.Children) > 0 {
		tw.str(`<children><topics type="attached">`)
	}
}

// styleID maps a topic's depth below the root to its visual role.
func styleID(depth int) string {
	switch {
	case depth == 1:
		return "centralTopic"
	case depth == 2:
		return "mainTopic"
	case depth > 5:
		return "floatingTopic"
	}
	return ""
}

func sheetID(ts string) string {
	if len(ts) > 8 {
		ts = ts[:8]
	}
	return "sheet_" + ts
}

// topicWriter keeps the first write error so the encode loop can stop.
type topicWriter struct {
	bw  *bufio.Writer
	err error
}

func (tw *topicWriter) str(parts ...string) {
	for _, p := range parts {
		if tw.err != nil {
			return
		}
		_, tw.err = tw.bw.WriteString(p)
	}
}

func (tw *topicWriter) flush() {
	if tw.err == nil {
		tw.err = tw.bw.Flush()
	}
}
