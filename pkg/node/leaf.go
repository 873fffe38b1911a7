package node

import (
	"context"

	"github.com/aretw0/canopy/pkg/domain"
)

// Constant always reports the same status.
type Constant struct {
	status domain.Status
}

func NewConstant(status domain.Status) Constant { return Constant{status: status} }

func (Constant) Kind() string { return "constant" }
func (Constant) Shape() Shape { return ShapeLeaf }

func (n Constant) String() string { return n.status.String() }

func (Constant) Children() []Node { return nil }

func (n Constant) WithChildren([]Node) Node { return n }

func (n Constant) Tick(_ context.Context, tk domain.Tick) (domain.Status, Node, domain.Tick) {
	return n.status, n, tk
}

func (n Constant) Halt(context.Context) Node { return n }

// TickFunc is the body of a Func leaf.
type TickFunc func(ctx context.Context, tk domain.Tick) (domain.Status, domain.Tick)

// Func is a stateless leaf backed by a function, the shortest way to plug custom
// logic (conditions, probes) into a tree.
type Func struct {
	kind string
	fn   TickFunc
	halt func(context.Context)
}

// NewFunc creates a Func leaf reported under kind.
func NewFunc(kind string, fn TickFunc) Func {
	if kind == "" {
		kind = "func"
	}
	return Func{kind: kind, fn: fn}
}

// OnHalt registers a callback invoked whenever the leaf is halted.
func (n Func) OnHalt(f func(context.Context)) Func {
	n.halt = f
	return n
}

func (n Func) Kind() string { return n.kind }
func (Func) Shape() Shape   { return ShapeLeaf }

func (Func) Children() []Node { return nil }

func (n Func) WithChildren([]Node) Node { return n }

func (n Func) Validate() error {
	if n.fn == nil {
		return invalid(n.kind, "nil tick function")
	}
	return nil
}

func (n Func) Tick(ctx context.Context, tk domain.Tick) (domain.Status, Node, domain.Tick) {
	st, out := n.fn(ctx, tk)
	return st, n, out
}

func (n Func) Halt(ctx context.Context) Node {
	if n.halt != nil {
		n.halt(ctx)
	}
	return n
}
