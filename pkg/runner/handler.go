package runner

import (
	"context"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
)

// TickReport describes one tick of a run.
type TickReport struct {
	Sequence   uint64                 `json:"sequence"`
	Status     domain.Status          `json:"status"`
	Reason     string                 `json:"reason,omitempty"`
	Duration   time.Duration          `json:"duration_ns"`
	Changes    *domain.BlackboardDiff `json:"changes,omitempty"`
	Directives []any                  `json:"directives,omitempty"`
}

// Result is the outcome of a run.
type Result struct {
	Status     domain.Status     `json:"status,omitzero"`
	Ticks      int               `json:"ticks"`
	Blackboard domain.Blackboard `json:"blackboard"`
}

// Handler defines how a run talks to the outside world.
// This allows switching between Text (terminal) and JSON (structured) modes.
type Handler interface {
	// Tick presents a completed tick.
	Tick(ctx context.Context, report TickReport) error

	// Done presents the final result. It is called once per run, including
	// interrupted ones.
	Done(ctx context.Context, res Result) error

	// SystemOutput presents a meta-message (prompts, interruption notices).
	SystemOutput(ctx context.Context, msg string) error

	// Input reads a response from the user.
	Input(ctx context.Context) (string, error)
}

// reason is the explicit Reason, or the cause of an Error status.
func (r TickReport) reason() string {
	if r.Reason != "" {
		return r.Reason
	}
	return reasonOf(r.Status)
}

func reasonOf(st domain.Status) string {
	if st.IsError() {
		return st.Reason().Error()
	}
	return ""
}
