// Package pattern materializes object trees from declarative templates.
// A pattern document describes a tree of typed nodes plus a rule set; the
// Builder instantiates the tree into a container through the object
// factory, tolerating unknown branches, and the Library owns loading,
// version resolution, and the final structural validation step.
package pattern

import (
	"errors"
	"strings"
)

// ErrPatternNotFound is returned when no version of a named pattern is
// loaded.
var ErrPatternNotFound = errors.New("pattern not found")

// Node is one element of a pattern tree. A node whose type is empty or
// "Container" is the implicit container pseudo-type: it creates nothing
// and its restrictions apply to the current container itself.
type Node struct {
	Type         string        `json:"type"`
	RequireOne   bool          `json:"requireOne,omitempty"`
	Restrictions []Restriction `json:"restrictions,omitempty"`
	Children     []*Node       `json:"children,omitempty"`
}

// IsContainer reports whether the node denotes the container pseudo-type.
func (n *Node) IsContainer() bool {
	return n.Type == "" || strings.EqualFold(n.Type, "Container")
}

// Label names the node for logs and skip records.
func (n *Node) Label() string {
	if n.IsContainer() {
		return "Container"
	}
	return n.Type
}

// Restriction pins one property of the created element (or of the
// container, for container nodes) to a fixed value.
type Restriction struct {
	Property string `json:"property"`
	Value    any    `json:"value"`
}

// Rule is one structural assertion of a pattern's rule set, checked by
// Library.Validate after a build. Count bounds apply to elements of Type
// anywhere under the container; Max zero means unbounded. When Property
// is set, every counted element must carry the given value.
type Rule struct {
	Type     string `json:"type"`
	Min      int    `json:"min"`
	Max      int    `json:"max,omitempty"`
	Property string `json:"property,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// Pattern is one loaded pattern document.
type Pattern struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Root        *Node  `json:"root"`
	Rules       []Rule `json:"rules,omitempty"`
}

// Info is the list entry for one loaded pattern version.
type Info struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}
