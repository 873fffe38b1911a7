package node_test

import (
	"context"
	"sync"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/node"
)

// probe counts calls across node values (nodes are copied on every tick).
type probe struct {
	ticks int
	halts int
}

// scripted is a test leaf replaying a fixed list of statuses; the last one repeats.
type scripted struct {
	name   string
	script []domain.Status
	pos    int
	probe  *probe
}

func newScripted(name string, p *probe, script ...domain.Status) scripted {
	return scripted{name: name, script: script, probe: p}
}

func (s scripted) Kind() string                       { return s.name }
func (scripted) Shape() node.Shape                    { return node.ShapeLeaf }
func (scripted) Children() []node.Node                { return nil }
func (s scripted) WithChildren([]node.Node) node.Node { return s }

func (s scripted) Tick(_ context.Context, tk domain.Tick) (domain.Status, node.Node, domain.Tick) {
	if s.probe != nil {
		s.probe.ticks++
	}
	st := s.script[len(s.script)-1]
	if s.pos < len(s.script) {
		st = s.script[s.pos]
	}
	s.pos++
	return st, s, tk
}

func (s scripted) Halt(context.Context) node.Node {
	if s.probe != nil {
		s.probe.halts++
	}
	s.pos = 0
	return s
}

// panicky panics on tick or halt.
type panicky struct {
	onTick bool
	onHalt bool
	marker int
}

func (panicky) Kind() string                         { return "panicky" }
func (panicky) Shape() node.Shape                    { return node.ShapeLeaf }
func (panicky) Children() []node.Node                { return nil }
func (p panicky) WithChildren([]node.Node) node.Node { return p }

func (p panicky) Tick(_ context.Context, tk domain.Tick) (domain.Status, node.Node, domain.Tick) {
	if p.onTick {
		panic("boom")
	}
	p.marker++
	return domain.Success, p, tk
}

func (p panicky) Halt(context.Context) node.Node {
	if p.onHalt {
		panic("halt boom")
	}
	p.marker = 0
	return p
}

// recorder is an EventSink collecting events.
// faceless is a leaf whose Kind and Shape panic.
type faceless struct{ panicky }

func (faceless) Kind() string      { panic("no kind") }
func (faceless) Shape() node.Shape { panic("no shape") }

func (f faceless) Halt(context.Context) node.Node {
	f.marker = 0
	return f
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Emit(_ context.Context, e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func newTick() domain.Tick {
	return domain.NewTick(domain.Blackboard{})
}

func tickN(ctx context.Context, n node.Node, times int) ([]domain.Status, node.Node) {
	var statuses []domain.Status
	tk := newTick()
	for range times {
		var st domain.Status
		st, n, tk = node.Execute(ctx, n, tk)
		statuses = append(statuses, st)
		tk = tk.Next()
	}
	return statuses, n
}
