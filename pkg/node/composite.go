package node

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/canopy/pkg/domain"
)

// Sequence ticks its children in order until one does not succeed.
//
// A Running child is resumed on the next tick without re-ticking earlier children.
// Failure and Error stop the sequence and reset it. An empty Sequence succeeds.
type Sequence struct {
	children []Node
	index    int
}

func NewSequence(children ...Node) Sequence {
	return Sequence{children: slices.Clone(children)}
}

func (Sequence) Kind() string     { return "sequence" }
func (Sequence) Shape() Shape     { return ShapeComposite }
func (s Sequence) String() string { return fmt.Sprintf("sequence(%d)", len(s.children)) }

func (s Sequence) Children() []Node { return slices.Clone(s.children) }

func (s Sequence) WithChildren(children []Node) Node {
	s.children = slices.Clone(children)
	return s
}

// ResumeIndex is the child position the next tick starts from.
func (s Sequence) ResumeIndex() int { return s.index }

func (s Sequence) Tick(ctx context.Context, tk domain.Tick) (domain.Status, Node, domain.Tick) {
	st, children, index, tk := runComposite(ctx, s.children, s.index, tk, domain.KindSuccess, domain.Success)
	s.children, s.index = children, index
	return st, s, tk
}

func (s Sequence) Halt(context.Context) Node {
	s.index = 0
	return s
}

// Selector (fallback) ticks its children in order until one succeeds.
//
// Failure and Error move on to the next child. Running is resumed on the next tick.
// When every child has failed the Selector fails. An empty Selector fails.
type Selector struct {
	children []Node
	index    int
}

func NewSelector(children ...Node) Selector {
	return Selector{children: slices.Clone(children)}
}

func (Selector) Kind() string     { return "selector" }
func (Selector) Shape() Shape     { return ShapeComposite }
func (s Selector) String() string { return fmt.Sprintf("selector(%d)", len(s.children)) }

func (s Selector) Children() []Node { return slices.Clone(s.children) }

func (s Selector) WithChildren(children []Node) Node {
	s.children = slices.Clone(children)
	return s
}

// ResumeIndex is the child position the next tick starts from.
func (s Selector) ResumeIndex() int { return s.index }

func (s Selector) Tick(ctx context.Context, tk domain.Tick) (domain.Status, Node, domain.Tick) {
	st, children, index, tk := runComposite(ctx, s.children, s.index, tk, domain.KindFailure, domain.Failure)
	s.children, s.index = children, index
	return st, s, tk
}

func (s Selector) Halt(context.Context) Node {
	s.index = 0
	return s
}

// runComposite is the loop shared by Sequence and Selector.
//
// Children whose status kind equals advance (or Error, for a Selector) let the
// loop move on; Running pauses at the current index; anything else stops the loop
// and resets the index. Exhausting the list reports exhausted.
func runComposite(
	ctx context.Context,
	children []Node,
	start int,
	tk domain.Tick,
	advance domain.StatusKind,
	exhausted domain.Status,
) (domain.Status, []Node, int, domain.Tick) {
	if start < 0 || start >= len(children) {
		start = 0
	}
	if len(children) == 0 {
		return exhausted, children, 0, tk
	}

	next := slices.Clone(children)
	for i := start; i < len(next); i++ {
		st, child, out := Execute(ctx, next[i], tk)
		next[i] = child
		tk = out

		switch {
		case st.IsRunning():
			return st, next, i, tk
		case st.Kind() == advance:
			continue
		case st.IsError() && advance == domain.KindFailure:
			// A selector treats Error like Failure and tries the next child.
			continue
		default:
			return st, next, 0, tk
		}
	}
	return exhausted, next, 0, tk
}
