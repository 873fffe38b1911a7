package node

import (
	"context"
	"fmt"

	"github.com/aretw0/canopy/pkg/domain"
)

// transform maps a child's completed status. Running and Error never reach it.
type transform func(domain.Status) domain.Status

func decorate(ctx context.Context, child Node, tk domain.Tick, f transform) (domain.Status, Node, domain.Tick) {
	st, child, tk := Execute(ctx, child, tk)
	if st.IsRunning() || st.IsError() {
		return st, child, tk
	}
	return f(st), child, tk
}

func only(children []Node, fallback Node) Node {
	if len(children) != 1 {
		return fallback
	}
	return children[0]
}

// Inverter swaps its child's Success and Failure.
type Inverter struct {
	child Node
}

func NewInverter(child Node) Inverter { return Inverter{child: child} }

func (Inverter) Kind() string { return "inverter" }
func (Inverter) Shape() Shape { return ShapeDecorator }

func (d Inverter) Children() []Node { return []Node{d.child} }

func (d Inverter) WithChildren(children []Node) Node {
	d.child = only(children, d.child)
	return d
}

func (d Inverter) Tick(ctx context.Context, tk domain.Tick) (domain.Status, Node, domain.Tick) {
	st, child, tk := decorate(ctx, d.child, tk, domain.Status.Invert)
	d.child = child
	return st, d, tk
}

func (d Inverter) Halt(context.Context) Node { return d }

// Succeeder reports Success whenever its child completes without error.
type Succeeder struct {
	child Node
}

func NewSucceeder(child Node) Succeeder { return Succeeder{child: child} }

func (Succeeder) Kind() string { return "succeeder" }
func (Succeeder) Shape() Shape { return ShapeDecorator }

func (d Succeeder) Children() []Node { return []Node{d.child} }

func (d Succeeder) WithChildren(children []Node) Node {
	d.child = only(children, d.child)
	return d
}

func (d Succeeder) Tick(ctx context.Context, tk domain.Tick) (domain.Status, Node, domain.Tick) {
	st, child, tk := decorate(ctx, d.child, tk, func(domain.Status) domain.Status { return domain.Success })
	d.child = child
	return st, d, tk
}

func (d Succeeder) Halt(context.Context) Node { return d }

// Failer reports Failure whenever its child completes without error.
type Failer struct {
	child Node
}

func NewFailer(child Node) Failer { return Failer{child: child} }

func (Failer) Kind() string { return "failer" }
func (Failer) Shape() Shape { return ShapeDecorator }

func (d Failer) Children() []Node { return []Node{d.child} }

func (d Failer) WithChildren(children []Node) Node {
	d.child = only(children, d.child)
	return d
}

func (d Failer) Tick(ctx context.Context, tk domain.Tick) (domain.Status, Node, domain.Tick) {
	st, child, tk := decorate(ctx, d.child, tk, func(domain.Status) domain.Status { return domain.Failure })
	d.child = child
	return st, d, tk
}

func (d Failer) Halt(context.Context) Node { return d }

// Repeat requires count successes of its child, accumulated across ticks, before
// reporting Success. Between two successes the child subtree is halted so that it
// restarts cleanly. A Failure or Error aborts immediately and resets the counter.
type Repeat struct {
	child     Node
	count     int
	iteration int
}

func NewRepeat(count int, child Node) Repeat {
	return Repeat{child: child, count: count}
}

func (Repeat) Kind() string { return "repeat" }
func (Repeat) Shape() Shape { return ShapeDecorator }

func (d Repeat) String() string { return fmt.Sprintf("repeat(%d)", d.count) }

func (d Repeat) Children() []Node { return []Node{d.child} }

func (d Repeat) WithChildren(children []Node) Node {
	d.child = only(children, d.child)
	return d
}

// Count is the number of successes required.
func (d Repeat) Count() int { return d.count }

// Iteration is the number of successes accumulated so far.
func (d Repeat) Iteration() int { return d.iteration }

func (d Repeat) Validate() error {
	if d.count < 1 {
		return invalid(d.Kind(), "count must be >= 1, got %d", d.count)
	}
	return nil
}

func (d Repeat) Tick(ctx context.Context, tk domain.Tick) (domain.Status, Node, domain.Tick) {
	st, child, tk := Execute(ctx, d.child, tk)
	d.child = child

	switch {
	case st.IsRunning():
		return st, d, tk
	case st.IsSuccess():
		d.iteration++
		if d.iteration >= d.count {
			d.iteration = 0
			return domain.Success, d, tk
		}
		d.child = Halt(WithSequence(ctx, tk.Sequence), d.child)
		return domain.Running, d, tk
	default:
		d.iteration = 0
		return st, d, tk
	}
}

func (d Repeat) Halt(context.Context) Node {
	d.iteration = 0
	return d
}
