package mindtree

// EmptyTitle is the root title used when the input has no content.
const EmptyTitle = "Empty"

// Node is one topic in a mind map. Children are owned by their parent and
// kept in document order.
type Node struct {
	Title    string
	Children []*Node
}

// New returns a childless node with the given title.
func New(title string, children ...*Node) *Node {
	return &Node{Title: title, Children: children}
}

// Add appends child and returns it.
func (n *Node) Add(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// CountNodes returns 1 for n plus the node count of every subtree below it.
func CountNodes(n *Node) int {
	if n == nil {
		return 0
	}
	count := 1
	for _, c := range n.Children {
		count += CountNodes(c)
	}
	return count
}

// Walk visits n and its descendants in document order. depth is 0 for n.
// Returning false from fn skips the node's children.
func Walk(n *Node, fn func(node *Node, depth int) bool) {
	if n == nil {
		return
	}
	walk(n, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}

// Titles returns every title in document order.
func Titles(n *Node) []string {
	var out []string
	Walk(n, func(node *Node, _ int) bool {
		out = append(out, node.Title)
		return true
	})
	return out
}

// MaxDepth returns the depth of the deepest node, with the root at 0.
func MaxDepth(n *Node) int {
	deepest := 0
	Walk(n, func(_ *Node, depth int) bool {
		if depth > deepest {
			deepest = depth
		}
		return true
	})
	return deepest
}
