package observability

import (
	"context"
	"sync"

	"github.com/aretw0/canopy/pkg/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on spans.
const (
	AttrAgentID  = "canopy.agent.id"
	AttrNodeKind = "canopy.node.kind"
	AttrSequence = "canopy.tick.sequence"
	AttrStatus   = "canopy.tick.status"
)

const instrumentationName = "github.com/aretw0/canopy"

// Tracer turns start/stop event pairs into OpenTelemetry spans, nested the way the
// tree is: an agent tick span parents the root node span, which parents its children.
//
// Open spans are tracked per agent ID. Trees ticked outside an agent share the
// empty ID and must not be ticked concurrently on the same Tracer.
type Tracer struct {
	tracer trace.Tracer

	mu    sync.Mutex
	stack map[string][]openSpan
}

type openSpan struct {
	ctx  context.Context
	span trace.Span
}

// NewTracer creates a Tracer from tp. A nil tp uses the global provider.
func NewTracer(tp trace.TracerProvider) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracer{
		tracer: tp.Tracer(instrumentationName),
		stack:  make(map[string][]openSpan),
	}
}

func (t *Tracer) Emit(ctx context.Context, e domain.Event) {
	switch e.Type {
	case domain.EventAgentTickStart:
		t.start(ctx, e, "agent.tick")
	case domain.EventTickStart:
		t.start(ctx, e, "node.tick "+e.NodeKind)
	case domain.EventHaltStart:
		t.start(ctx, e, "node.halt "+e.NodeKind)
	case domain.EventAgentTickStop, domain.EventTickStop, domain.EventTickException,
		domain.EventHaltStop, domain.EventHaltException:
		t.end(e)
	}
}

func (t *Tracer) start(ctx context.Context, e domain.Event, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent := ctx
	if open := t.stack[e.AgentID]; len(open) > 0 {
		parent = open[len(open)-1].ctx
	}
	attrs := []attribute.KeyValue{attribute.Int64(AttrSequence, int64(e.Sequence))}
	if e.AgentID != "" {
		attrs = append(attrs, attribute.String(AttrAgentID, e.AgentID))
	}
	if e.NodeKind != "" {
		attrs = append(attrs, attribute.String(AttrNodeKind, e.NodeKind))
	}
	spanCtx, span := t.tracer.Start(parent, name,
		trace.WithTimestamp(e.Timestamp),
		trace.WithAttributes(attrs...),
	)
	t.stack[e.AgentID] = append(t.stack[e.AgentID], openSpan{ctx: spanCtx, span: span})
}

func (t *Tracer) end(e domain.Event) {
	t.mu.Lock()
	open := t.stack[e.AgentID]
	if len(open) == 0 {
		t.mu.Unlock()
		return
	}
	top := open[len(open)-1]
	if len(open) == 1 {
		delete(t.stack, e.AgentID)
	} else {
		t.stack[e.AgentID] = open[:len(open)-1]
	}
	t.mu.Unlock()

	if e.Status.Kind() != 0 {
		top.span.SetAttributes(attribute.String(AttrStatus, e.Status.Kind().String()))
	}
	if e.Err != nil {
		top.span.RecordError(e.Err)
		top.span.SetStatus(codes.Error, e.Err.Error())
	}
	top.span.End(trace.WithTimestamp(e.Timestamp))
}
