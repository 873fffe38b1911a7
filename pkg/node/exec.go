package node

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

type sinkKey struct{}

type sequenceKey struct{}

type agentKey struct{}

// WithSink binds an event sink to ctx. Execute and Halt emit to it.
func WithSink(ctx context.Context, sink ports.EventSink) context.Context {
	if sink == nil {
		return ctx
	}
	return context.WithValue(ctx, sinkKey{}, sink)
}

// SinkFrom returns the sink bound to ctx, or a no-op sink.
func SinkFrom(ctx context.Context) ports.EventSink {
	if sink, ok := ctx.Value(sinkKey{}).(ports.EventSink); ok {
		return sink
	}
	return ports.NopSink{}
}

// WithSequence records the tick sequence that halt events are attributed to.
func WithSequence(ctx context.Context, seq uint64) context.Context {
	return context.WithValue(ctx, sequenceKey{}, seq)
}

func sequenceFrom(ctx context.Context) uint64 {
	seq, _ := ctx.Value(sequenceKey{}).(uint64)
	return seq
}

// WithAgentID attributes node events emitted under ctx to an agent.
func WithAgentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, agentKey{}, id)
}

func agentFrom(ctx context.Context) string {
	id, _ := ctx.Value(agentKey{}).(string)
	return id
}

// Execute ticks n and never panics.
//
// A panic raised by the node is converted into Error(*domain.NodeFault) and the node
// and tick are returned exactly as they were passed in.
func Execute(ctx context.Context, n Node, tk domain.Tick) (st domain.Status, next Node, out domain.Tick) {
	sink := SinkFrom(ctx)
	kind := kindOf(n)
	agent := agentFrom(ctx)
	start := time.Now()
	emit(ctx, sink, domain.Event{Type: domain.EventTickStart, Timestamp: start, NodeKind: kind, AgentID: agent, Sequence: tk.Sequence})

	defer func() {
		if r := recover(); r != nil {
			fault := &domain.NodeFault{Kind: kind, Op: "tick", Value: r}
			st, next, out = domain.Error(fault), n, tk
			emit(ctx, sink, domain.Event{
				Type:      domain.EventTickException,
				Timestamp: time.Now(),
				NodeKind:  kind,
				AgentID:   agent,
				Sequence:  tk.Sequence,
				Duration:  time.Since(start),
				Status:    st,
				Err:       fault,
			})
		}
	}()

	st, next, out = n.Tick(ctx, tk)
	if next == nil {
		next = n
	}
	emit(ctx, sink, domain.Event{
		Type:      domain.EventTickStop,
		Timestamp: time.Now(),
		NodeKind:  kind,
		AgentID:   agent,
		Sequence:  tk.Sequence,
		Duration:  time.Since(start),
		Status:    st,
		Err:       st.Reason(),
	})
	return st, next, out
}

// Halt recursively halts the subtree rooted at n in post-order: every child is
// halted first, the node is rebuilt with its halted children, then the node's own
// Halt runs. Each node is halted exactly once. Halt never panics; a node whose Halt
// faults keeps its prior value.
func Halt(ctx context.Context, n Node) Node {
	if n == nil {
		return nil
	}
	return haltSelf(ctx, haltChildren(ctx, n))
}

// haltChildren halts the children of n and rebuilds n around them. A node
// whose structure methods panic is returned unchanged.
func haltChildren(ctx context.Context, n Node) (out Node) {
	defer func() {
		if recover() != nil {
			out = n
		}
	}()
	if n.Shape() == ShapeLeaf {
		return n
	}
	children := n.Children()
	if len(children) == 0 {
		return n
	}
	halted := make([]Node, len(children))
	for i, child := range children {
		halted[i] = Halt(ctx, child)
	}
	if rebuilt := n.WithChildren(halted); rebuilt != nil {
		return rebuilt
	}
	return n
}

// kindOf is n.Kind(), or the Go type name when Kind panics.
func kindOf(n Node) (kind string) {
	defer func() {
		if recover() != nil {
			kind = fmt.Sprintf("%T", n)
		}
	}()
	return n.Kind()
}

func haltSelf(ctx context.Context, n Node) (next Node) {
	sink := SinkFrom(ctx)
	kind := kindOf(n)
	agent := agentFrom(ctx)
	seq := sequenceFrom(ctx)
	start := time.Now()
	emit(ctx, sink, domain.Event{Type: domain.EventHaltStart, Timestamp: start, NodeKind: kind, AgentID: agent, Sequence: seq})

	defer func() {
		if r := recover(); r != nil {
			fault := &domain.NodeFault{Kind: kind, Op: "halt", Value: r}
			next = n
			emit(ctx, sink, domain.Event{
				Type:      domain.EventHaltException,
				Timestamp: time.Now(),
				NodeKind:  kind,
				AgentID:   agent,
				Sequence:  seq,
				Duration:  time.Since(start),
				Err:       fault,
			})
		}
	}()

	next = n.Halt(ctx)
	if next == nil {
		next = n
	}
	emit(ctx, sink, domain.Event{
		Type:      domain.EventHaltStop,
		Timestamp: time.Now(),
		NodeKind:  kind,
		AgentID:   agent,
		Sequence:  seq,
		Duration:  time.Since(start),
	})
	return next
}

// emit never lets a faulty sink affect control flow.
func emit(ctx context.Context, sink ports.EventSink, event domain.Event) {
	defer func() { _ = recover() }()
	sink.Emit(ctx, event)
}
