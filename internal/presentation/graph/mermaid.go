// Package graph renders behavior trees as Mermaid flowcharts.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/canopy/pkg/node"
)

// Overlay selects the run-state styling applied on top of the structure.
type Overlay struct {
	// Visited marks children a composite has already moved past.
	Visited bool
	// Current marks the nodes holding in-progress state.
	Current bool
}

// FullOverlay enables every run-state style.
var FullOverlay = &Overlay{Visited: true, Current: true}

type resumable interface{ ResumeIndex() int }

type startable interface{ Started() bool }

type iterating interface {
	Iteration() int
	Count() int
}

// GenerateMermaid produces a Mermaid flowchart for the tree rooted at root.
// It applies semantic styling:
// - Composite: {{Hexagon}}
// - Decorator: {Rhombus}
// - Action: [[Subroutine]]
// - Other leaves: [Rectangle]
// Composite edges are numbered in tick order.
func GenerateMermaid(root node.Node, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if root == nil {
		return sb.String()
	}

	var visited, current []string
	next := 0
	var render func(n node.Node) string
	render = func(n node.Node) string {
		id := fmt.Sprintf("n%d", next)
		next++

		opener, closer := "[", "]"
		switch {
		case n.Shape() == node.ShapeComposite:
			opener, closer = "{{", "}}"
		case n.Shape() == node.ShapeDecorator:
			opener, closer = "{", "}"
		case n.Kind() == "action":
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, label(n), closer)
		if isActive(n) {
			current = append(current, id)
		}

		resume := 0
		if r, ok := n.(resumable); ok {
			resume = r.ResumeIndex()
		}
		for i, child := range n.Children() {
			childID := render(child)
			if n.Shape() != node.ShapeComposite {
				fmt.Fprintf(&sb, "    %s --> %s\n", id, childID)
				continue
			}
			if i < resume {
				visited = append(visited, childID)
			}
			fmt.Fprintf(&sb, "    %s -- \"%d\" --> %s\n", id, i+1, childID)
		}
		return id
	}
	render(root)

	// Apply Overlay Styles
	if overlay != nil && (overlay.Visited && len(visited) > 0 || overlay.Current && len(current) > 0) {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		if overlay.Visited {
			for _, id := range visited {
				fmt.Fprintf(&sb, "    class %s visited;\n", id)
			}
		}
		if overlay.Current {
			for _, id := range current {
				fmt.Fprintf(&sb, "    class %s current;\n", id)
			}
		}
	}

	return sb.String()
}

// isActive reports whether n holds in-progress run-state of its own.
func isActive(n node.Node) bool {
	if r, ok := n.(resumable); ok && r.ResumeIndex() > 0 {
		return true
	}
	if s, ok := n.(startable); ok && s.Started() {
		return true
	}
	if it, ok := n.(iterating); ok && it.Iteration() > 0 {
		return true
	}
	return false
}

func label(n node.Node) string {
	text := n.Kind()
	if s, ok := n.(fmt.Stringer); ok {
		text = s.String()
	}
	if it, ok := n.(iterating); ok && it.Iteration() > 0 {
		text = fmt.Sprintf("%s <br/> %d/%d", text, it.Iteration(), it.Count())
	}
	// Escape double quotes for Mermaid labels
	return strings.ReplaceAll(text, "\"", "'")
}
