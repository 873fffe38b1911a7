package node

import (
	"errors"
	"slices"
)

// Depth returns 1 for a childless node, otherwise 1 + the deepest child.
func Depth(n Node) int {
	if n == nil {
		return 0
	}
	deepest := 0
	for _, child := range n.Children() {
		if d := Depth(child); d > deepest {
			deepest = d
		}
	}
	return 1 + deepest
}

// Count returns the number of nodes in the subtree rooted at n.
func Count(n Node) int {
	if n == nil {
		return 0
	}
	total := 1
	for _, child := range n.Children() {
		total += Count(child)
	}
	return total
}

// Traverse rebuilds the subtree bottom-up, applying f to every node after its
// children have already been rebuilt by the same traversal.
func Traverse(n Node, f func(Node) Node) Node {
	if n == nil {
		return nil
	}
	if n.Shape() != ShapeLeaf {
		children := n.Children()
		if len(children) > 0 {
			rebuilt := make([]Node, len(children))
			for i, child := range children {
				rebuilt[i] = Traverse(child, f)
			}
			n = n.WithChildren(rebuilt)
		}
	}
	return f(n)
}

// Walk visits every node in pre-order with its depth (root = 0).
// Returning false from visit skips the node's children.
func Walk(n Node, visit func(n Node, depth int) bool) {
	walk(n, 0, visit)
}

func walk(n Node, depth int, visit func(Node, int) bool) {
	if n == nil || !visit(n, depth) {
		return
	}
	for _, child := range n.Children() {
		walk(child, depth+1, visit)
	}
}

// Validate checks the whole subtree: nil children, shape arity and every Validator.
// All problems are reported, joined.
func Validate(n Node) error {
	if n == nil {
		return invalid("tree", "nil node")
	}
	var errs []error
	Walk(n, func(cur Node, _ int) bool {
		children := cur.Children()
		switch cur.Shape() {
		case ShapeLeaf:
			if len(children) != 0 {
				errs = append(errs, invalid(cur.Kind(), "leaf reports %d children", len(children)))
			}
		case ShapeDecorator:
			if len(children) != 1 {
				errs = append(errs, invalid(cur.Kind(), "decorator requires exactly one child, got %d", len(children)))
			}
		}
		if slices.Contains(children, nil) {
			errs = append(errs, invalid(cur.Kind(), "nil child"))
		}
		if v, ok := cur.(Validator); ok {
			if err := v.Validate(); err != nil {
				errs = append(errs, err)
			}
		}
		return true
	})
	return errors.Join(errs...)
}
