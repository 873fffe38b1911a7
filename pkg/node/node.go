package node

import (
	"context"
	"fmt"

	"github.com/aretw0/canopy/pkg/domain"
)

// Shape is the structural discriminator of a node.
type Shape uint8

const (
	ShapeLeaf Shape = iota
	ShapeDecorator
	ShapeComposite
)

func (s Shape) String() string {
	switch s {
	case ShapeLeaf:
		return "leaf"
	case ShapeDecorator:
		return "decorator"
	case ShapeComposite:
		return "composite"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// Node is the capability contract implemented by every node kind.
type Node interface {
	// Kind identifies the node kind in telemetry and diagnostics (e.g. "sequence").
	Kind() string

	// Shape reports whether the node is a leaf, a decorator or a composite.
	Shape() Shape

	// Children returns a copy of the children: nil for leaves, exactly one
	// element for decorators.
	Children() []Node

	// WithChildren returns a copy of the node with its children replaced and its
	// run-state preserved. Leaves return themselves.
	WithChildren(children []Node) Node

	// Tick runs one step and returns the status, the node's next value and the
	// tick to hand to the next sibling or parent.
	Tick(ctx context.Context, tk domain.Tick) (domain.Status, Node, domain.Tick)

	// Halt releases the node's own run-state. Children are halted by the caller
	// (see the package-level Halt), never by this method.
	Halt(ctx context.Context) Node
}

// Validator is implemented by nodes whose configuration can be invalid.
type Validator interface {
	Validate() error
}

func invalid(kind, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", domain.ErrInvalidNode, kind, fmt.Sprintf(format, args...))
}
