// Package tree wraps a root node with the operations callers drive a behavior tree through.
package tree

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/node"
	"github.com/aretw0/canopy/pkg/ports"
)

// Tree is an immutable handle on a root node. Every operation returns a new Tree.
type Tree struct {
	root   node.Node
	sink   ports.EventSink
	logger *slog.Logger
}

// Option defines a functional option for configuring the Tree.
type Option func(*Tree)

// WithSink sets the sink receiving node tick and halt events.
// Without one, events go to the sink bound on the context (see node.WithSink).
func WithSink(sink ports.EventSink) Option {
	return func(t *Tree) {
		t.sink = sink
	}
}

// WithLogger sets a custom structured logger for the tree.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tree) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New validates root and returns a Tree around it.
func New(root node.Node, opts ...Option) (Tree, error) {
	t := Tree{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&t)
	}
	if err := node.Validate(root); err != nil {
		return Tree{}, fmt.Errorf("new tree: %w", err)
	}
	t.root = root
	return t, nil
}

// Root returns the current root node, including its run-state.
func (t Tree) Root() node.Node { return t.root }

// Sink returns the configured event sink, or a no-op sink.
func (t Tree) Sink() ports.EventSink {
	if t.sink == nil {
		return ports.NopSink{}
	}
	return t.sink
}

func (t Tree) bind(ctx context.Context) context.Context {
	if t.sink == nil {
		return ctx
	}
	return node.WithSink(ctx, t.sink)
}

// WithRoot replaces the root, keeping the tree's options.
func (t Tree) WithRoot(root node.Node) (Tree, error) {
	if err := node.Validate(root); err != nil {
		return t, fmt.Errorf("replace root: %w", err)
	}
	t.root = root
	return t, nil
}

// Tick runs one pass and returns the status with the updated tree.
func (t Tree) Tick(ctx context.Context, tk domain.Tick) (domain.Status, Tree) {
	st, next, _ := t.TickContext(ctx, tk)
	return st, next
}

// TickContext is Tick that also returns the propagated tick, carrying
// blackboard writes, the agent value and directives produced during the pass.
func (t Tree) TickContext(ctx context.Context, tk domain.Tick) (domain.Status, Tree, domain.Tick) {
	if t.root == nil {
		return domain.Error(domain.ErrInvalidNode), t, tk
	}
	st, root, out := node.Execute(t.bind(ctx), t.root, tk)
	if st.IsError() {
		t.logger.Warn("tree tick error", "sequence", tk.Sequence, "root", t.root.Kind(), "err", st.Reason())
	} else {
		t.logger.Debug("tree ticked", "sequence", tk.Sequence, "status", st.String())
	}
	t.root = root
	return st, t, out
}

// Halt cancels in-progress work across the whole tree.
func (t Tree) Halt(ctx context.Context) Tree {
	if t.root == nil {
		return t
	}
	t.root = node.Halt(t.bind(ctx), t.root)
	return t
}

// Depth returns the number of levels, 1 for a lone leaf.
func (t Tree) Depth() int { return node.Depth(t.root) }

// NodeCount returns the number of nodes.
func (t Tree) NodeCount() int { return node.Count(t.root) }

// Traverse rebuilds the tree bottom-up through f.
func (t Tree) Traverse(f func(node.Node) node.Node) Tree {
	t.root = node.Traverse(t.root, f)
	return t
}

// Walk visits every node pre-order with its depth.
func (t Tree) Walk(visit func(n node.Node, depth int)) {
	node.Walk(t.root, func(n node.Node, depth int) bool {
		visit(n, depth)
		return true
	})
}
