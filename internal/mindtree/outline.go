package mindtree

// Entry is one outline line: a title and the level it sits at. Levels only
// need to be comparable; indentation width, heading level or list depth all
// work.
type Entry struct {
	Level int
	Title string
}

// Build turns a flat outline into a tree under a root titled rootTitle.
//
// Each entry's parent is the closest preceding entry with a strictly smaller
// level. The root sits at level 0, so an entry whose level is <= 0 pops the
// whole stack; it is attached directly to the root and the stack restarts
// from the root.
func Build(rootTitle string, entries []Entry) *Node {
	type stackEntry struct {
		node  *Node
		level int
	}

	root := &Node{Title: rootTitle}
	stack := []stackEntry{{node: root, level: 0}}

	for _, e := range entries {
		newNode := &Node{Title: e.Title}

		// Pop stack until we find a parent with lower level.
		for len(stack) > 0 && stack[len(stack)-1].level >= e.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			stack = append(stack, stackEntry{node: root, level: 0})
		}

		parent := stack[len(stack)-1].node
		parent.Children = append(parent.Children, newNode)
		stack = append(stack, stackEntry{node: newNode, level: e.Level})
	}

	return root
}

// Flatten is the inverse of Build for trees whose shape came from levels
// spaced step apart: the root is omitted and every other node is emitted
// with level depth*step.
func Flatten(root *Node, step int) []Entry {
	var out []Entry
	Walk(root, func(n *Node, depth int) bool {
		if depth > 0 {
			out = append(out, Entry{Level: depth * step, Title: n.Title})
		}
		return true
	})
	return out
}
