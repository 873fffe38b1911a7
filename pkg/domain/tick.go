package domain

import (
	"maps"
	"slices"
	"time"
)

// Tick is the execution context of one traversal through a tree.
//
// Ticks are values. A node that needs to propagate a mutation (a blackboard write,
// an agent update, a directive) returns a new Tick instead of mutating the one it
// received; composites and decorators thread the returned Tick back up.
type Tick struct {
	// Blackboard is the shared state visible to every node.
	Blackboard Blackboard

	// Timestamp is when the tick was created.
	Timestamp time.Time

	// Sequence only increases across causally-ordered ticks of the same tree.
	Sequence uint64

	// Agent is an optional opaque snapshot of an external agent, threaded through
	// Action nodes configured with an effect applier.
	Agent any

	// Directives accumulates side-effect directives produced during the traversal.
	Directives []any

	// Context holds arbitrary pass-through values.
	Context map[string]any
}

// TickOption configures a new Tick.
type TickOption func(*Tick)

// WithSequence sets the sequence number of the tick.
func WithSequence(seq uint64) TickOption {
	return func(t *Tick) {
		t.Sequence = seq
	}
}

// WithAgent sets the external agent snapshot.
func WithAgent(agent any) TickOption {
	return func(t *Tick) {
		t.Agent = agent
	}
}

// WithContext sets the pass-through context map (copied).
func WithContext(ctx map[string]any) TickOption {
	return func(t *Tick) {
		t.Context = maps.Clone(ctx)
	}
}

// WithTimestamp overrides the creation time.
func WithTimestamp(ts time.Time) TickOption {
	return func(t *Tick) {
		t.Timestamp = ts
	}
}

// NewTick creates a tick wrapping bb, starting at sequence 0 unless overridden.
func NewTick(bb Blackboard, opts ...TickOption) Tick {
	t := Tick{
		Blackboard: bb,
		Timestamp:  time.Now(),
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// WithBlackboard returns a copy of the tick carrying bb.
func (t Tick) WithBlackboard(bb Blackboard) Tick {
	t.Blackboard = bb
	return t
}

// Put returns a copy of the tick with key written into its blackboard.
func (t Tick) Put(key string, value any) Tick {
	t.Blackboard = t.Blackboard.Set(key, value)
	return t
}

// WithAgent returns a copy of the tick carrying agent.
func (t Tick) WithAgent(agent any) Tick {
	t.Agent = agent
	return t
}

// AppendDirectives returns a copy of the tick with directives appended.
// The receiver's slice is never shared with the result.
func (t Tick) AppendDirectives(directives ...any) Tick {
	if len(directives) == 0 {
		return t
	}
	next := make([]any, 0, len(t.Directives)+len(directives))
	next = append(next, t.Directives...)
	t.Directives = append(next, directives...)
	return t
}

// Next returns the tick that follows t: sequence+1, a fresh timestamp and no directives.
func (t Tick) Next() Tick {
	t.Sequence++
	t.Timestamp = time.Now()
	t.Directives = nil
	return t
}

// CloneDirectives returns a copy of the accumulated directives.
func (t Tick) CloneDirectives() []any {
	return slices.Clone(t.Directives)
}
