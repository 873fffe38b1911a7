package observability

import (
	"context"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// Multi combines several sinks into one. A panicking sink does not prevent the
// others from receiving the event.
type Multi []ports.EventSink

// NewMulti builds a Multi, skipping nil sinks.
func NewMulti(sinks ...ports.EventSink) Multi {
	out := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m Multi) Emit(ctx context.Context, e domain.Event) {
	for _, s := range m {
		emitSafely(ctx, s, e)
	}
}

func emitSafely(ctx context.Context, s ports.EventSink, e domain.Event) {
	defer func() { _ = recover() }()
	s.Emit(ctx, e)
}
