package ports

import (
	"context"

	"github.com/aretw0/canopy/pkg/domain"
)

// EventSink receives telemetry events. Emission is fire-and-forget: callers ignore
// whatever happens inside the sink, including panics.
type EventSink interface {
	Emit(ctx context.Context, event domain.Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event domain.Event)

func (f EventSinkFunc) Emit(ctx context.Context, event domain.Event) {
	f(ctx, event)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Emit(context.Context, domain.Event) {}
