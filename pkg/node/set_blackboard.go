package node

import (
	"context"
	"maps"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
)

// SetBlackboard writes a fixed set of entries into the tick's blackboard and
// always succeeds. Parents must adopt the tick it returns.
type SetBlackboard struct {
	values   map[string]any
	produced *domain.Blackboard
}

func NewSetBlackboard(values map[string]any) SetBlackboard {
	return SetBlackboard{values: maps.Clone(values)}
}

func (SetBlackboard) Kind() string { return "set_blackboard" }
func (SetBlackboard) Shape() Shape { return ShapeLeaf }

func (n SetBlackboard) String() string {
	return "set_blackboard(" + strings.Join(domain.NewBlackboard(n.values).Keys(), ",") + ")"
}

func (SetBlackboard) Children() []Node { return nil }

func (n SetBlackboard) WithChildren([]Node) Node { return n }

// Values returns a copy of the entries written on every tick.
func (n SetBlackboard) Values() map[string]any { return maps.Clone(n.values) }

// Produced returns the blackboard produced by the last tick, if any.
func (n SetBlackboard) Produced() (domain.Blackboard, bool) {
	if n.produced == nil {
		return domain.Blackboard{}, false
	}
	return *n.produced, true
}

func (n SetBlackboard) Tick(_ context.Context, tk domain.Tick) (domain.Status, Node, domain.Tick) {
	tk = tk.WithBlackboard(tk.Blackboard.Merge(n.values))
	bb := tk.Blackboard
	n.produced = &bb
	return domain.Success, n, tk
}

func (n SetBlackboard) Halt(context.Context) Node {
	n.produced = nil
	return n
}
