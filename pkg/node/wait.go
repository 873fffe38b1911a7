package node

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
)

// Wait is a poll-based time gate. The first tick records the start time and reports
// Running; later ticks succeed once duration has elapsed. No timer is held.
type Wait struct {
	duration time.Duration
	now      func() time.Time
	start    time.Time
	started  bool
}

// WaitOption configures a Wait node.
type WaitOption func(*Wait)

// WithClock overrides the time source (time.Now by default).
func WithClock(now func() time.Time) WaitOption {
	return func(w *Wait) {
		if now != nil {
			w.now = now
		}
	}
}

func NewWait(d time.Duration, opts ...WaitOption) Wait {
	w := Wait{duration: d, now: time.Now}
	for _, opt := range opts {
		opt(&w)
	}
	return w
}

func (Wait) Kind() string { return "wait" }
func (Wait) Shape() Shape { return ShapeLeaf }

func (w Wait) String() string { return fmt.Sprintf("wait(%s)", w.duration) }

func (Wait) Children() []Node { return nil }

func (w Wait) WithChildren([]Node) Node { return w }

// Duration is the configured wait.
func (w Wait) Duration() time.Duration { return w.duration }

// Started reports whether the wait is in progress.
func (w Wait) Started() bool { return w.started }

func (w Wait) Validate() error {
	if w.duration < 0 {
		return invalid(w.Kind(), "duration must be non-negative, got %s", w.duration)
	}
	return nil
}

func (w Wait) Tick(_ context.Context, tk domain.Tick) (domain.Status, Node, domain.Tick) {
	if !w.started {
		w.start = w.now()
		w.started = true
		return domain.Running, w, tk
	}
	if w.now().Sub(w.start) >= w.duration {
		w.start = time.Time{}
		w.started = false
		return domain.Success, w, tk
	}
	return domain.Running, w, tk
}

func (w Wait) Halt(context.Context) Node {
	w.start = time.Time{}
	w.started = false
	return w
}
