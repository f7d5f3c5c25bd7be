package inspector

// traversal is the per-call cycle and depth guard. Every Inspect call
// builds its own; nothing is shared between concurrent inspections. The
// visited set tracks the uids on the current descent path, so revisiting
// an ancestor (a cyclic record graph from the store) is refused while
// sibling duplicates still count normally.
type traversal struct {
	visited  map[string]bool
	depth    int
	maxDepth int
}

func newTraversal(maxDepth int) *traversal {
	return &traversal{
		visited:  make(map[string]bool),
		maxDepth: maxDepth,
	}
}

// enter records uid on the path and descends one level. It refuses when
// the depth budget is spent or uid is already on the path; the caller
// truncates instead of recursing.
func (t *traversal) enter(uid string) bool {
	if t.depth >= t.maxDepth || t.visited[uid] {
		return false
	}
	t.visited[uid] = true
	t.depth++
	return true
}

// leave unwinds a successful enter.
func (t *traversal) leave(uid string) {
	delete(t.visited, uid)
	t.depth--
}
