package xmind

import (
	"strconv"

	"github.com/dgallion1/text2mind/internal/layout"
	"github.com/dgallion1/text2mind/internal/mindtree"
)

// Relationship is a cosmetic cross-link between two children of the root.
type Relationship struct {
	ID   string
	End1 string
	End2 string
	Type string
}

// relationships links root_i to root_min(i+5, budget-1). The budget is the
// node-count allowance capped by the number of root children, so every end
// names a topic that exists. Self-links are skipped.
func relationships(root *mindtree.Node, nodes int) []Relationship {
	budget := min(layout.MaxRelationships(nodes), len(root.Children))
	var rels []Relationship
	for i := range budget {
		target := min(i+5, budget-1)
		if target == i {
			continue
		}
		rels = append(rels, Relationship{
			ID:   "rel_" + strconv.Itoa(i),
			End1: RootID + "_" + strconv.Itoa(i),
			End2: RootID + "_" + strconv.Itoa(target),
			Type: relationshipType(i),
		})
	}
	return rels
}

func relationshipType(i int) string {
	switch {
	case i%3 == 0:
		return "dashedarrowline"
	case i%5 == 0:
		return "straightline"
	}
	return "arrowedline"
}

func writeRelationships(tw *topicWriter, rels []Relationship, ts string) {
	if len(rels) == 0 {
		return
	}
	tw.str(`<relationships>`)
	for _, r := range rels {
		tw.str(`<relationship end1="`, r.End1, `" end2="`, r.End2, `" id="`, r.ID,
			`" timestamp="`, ts, `" type="`, r.Type, `"/>`)
	}
	tw.str(`</relationships>`)
}
