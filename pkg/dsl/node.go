package dsl

import (
	"maps"
	"time"

	"github.com/aretw0/canopy/pkg/schema"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	spec schema.NodeSpec
}

func newNode(kind string) *NodeBuilder {
	return &NodeBuilder{spec: schema.NodeSpec{Type: kind}}
}

func specs(children []*NodeBuilder) []schema.NodeSpec {
	out := make([]schema.NodeSpec, 0, len(children))
	for _, c := range children {
		if c != nil {
			out = append(out, c.Build())
		}
	}
	return out
}

func decorator(kind string, child *NodeBuilder) *NodeBuilder {
	n := newNode(kind)
	if child != nil {
		c := child.Build()
		n.spec.Child = &c
	}
	return n
}

// Sequence runs children in order until one does not succeed.
func Sequence(children ...*NodeBuilder) *NodeBuilder {
	n := newNode(schema.KindSequence)
	n.spec.Children = specs(children)
	return n
}

// Selector runs children in order until one does not fail.
func Selector(children ...*NodeBuilder) *NodeBuilder {
	n := newNode(schema.KindSelector)
	n.spec.Children = specs(children)
	return n
}

// Inverter swaps Success and Failure of its child.
func Inverter(child *NodeBuilder) *NodeBuilder { return decorator(schema.KindInverter, child) }

// Succeeder turns a completed child into Success.
func Succeeder(child *NodeBuilder) *NodeBuilder { return decorator(schema.KindSucceeder, child) }

// Failer turns a completed child into Failure.
func Failer(child *NodeBuilder) *NodeBuilder { return decorator(schema.KindFailer, child) }

// Repeat requires count successes of its child.
func Repeat(count int, child *NodeBuilder) *NodeBuilder {
	n := decorator(schema.KindRepeat, child)
	n.spec.Count = count
	return n
}

// Wait reports Running until d has elapsed since its first tick.
func Wait(d time.Duration) *NodeBuilder {
	n := newNode(schema.KindWait)
	n.spec.Duration = d.String()
	return n
}

// Set writes a single blackboard key. Chain Value to write more.
func Set(key string, value any) *NodeBuilder {
	n := newNode(schema.KindSetBlackboard)
	return n.Value(key, value)
}

// Action invokes the named action through the configured executor.
func Action(name string) *NodeBuilder {
	n := newNode(schema.KindAction)
	n.spec.Action = name
	return n
}

// Success is a leaf that always succeeds.
func Success() *NodeBuilder { return constant("success") }

// Failure is a leaf that always fails.
func Failure() *NodeBuilder { return constant("failure") }

// Running is a leaf that never completes.
func Running() *NodeBuilder { return constant("running") }

func constant(status string) *NodeBuilder {
	n := newNode(schema.KindConstant)
	n.spec.Status = status
	return n
}

// FromBlackboard returns the placeholder resolved to key's value at tick time.
func FromBlackboard(key string) map[string]any {
	return map[string]any{"from_blackboard": key}
}

// Named sets a display name.
func (n *NodeBuilder) Named(name string) *NodeBuilder {
	n.spec.Name = name
	return n
}

// Value adds a key to a set_blackboard node.
func (n *NodeBuilder) Value(key string, value any) *NodeBuilder {
	if n.spec.Values == nil {
		n.spec.Values = make(map[string]any)
	}
	n.spec.Values[key] = value
	return n
}

// Param adds a static action parameter.
func (n *NodeBuilder) Param(key string, value any) *NodeBuilder {
	if n.spec.Params == nil {
		n.spec.Params = make(map[string]any)
	}
	n.spec.Params[key] = value
	return n
}

// ParamFrom adds an action parameter read from the blackboard at tick time.
func (n *NodeBuilder) ParamFrom(key, blackboardKey string) *NodeBuilder {
	return n.Param(key, FromBlackboard(blackboardKey))
}

// Context adds a static value handed to the action runtime.
func (n *NodeBuilder) Context(key string, value any) *NodeBuilder {
	if n.spec.Context == nil {
		n.spec.Context = make(map[string]any)
	}
	n.spec.Context[key] = value
	return n
}

// Effects routes the action result through the configured effect applier.
func (n *NodeBuilder) Effects() *NodeBuilder {
	n.spec.Effects = true
	return n
}

// Build returns a copy of the underlying spec.
func (n *NodeBuilder) Build() schema.NodeSpec {
	out := n.spec
	out.Values = maps.Clone(n.spec.Values)
	out.Params = maps.Clone(n.spec.Params)
	out.Context = maps.Clone(n.spec.Context)
	return out
}
