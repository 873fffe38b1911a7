package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/canopy/pkg/agent"
)

// DefaultInterval is the pause between ticks while the tree is Running.
const DefaultInterval = 100 * time.Millisecond

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithHandler configures how ticks and prompts are presented.
func WithHandler(handler Handler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithInterval sets the pause between ticks. Zero ticks back to back.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		r.Interval = d
	}
}

// WithMaxTicks stops the run with ErrTickLimit after n ticks. Zero means no limit.
func WithMaxTicks(n int) Option {
	return func(r *Runner) {
		r.MaxTicks = n
	}
}

// WithSignals makes the run stop gracefully on SIGINT and SIGTERM.
func WithSignals(enabled bool) Option {
	return func(r *Runner) {
		r.Signals = enabled
	}
}

// WithAgentOptions configures the agent started for each run.
// Mode and tick callbacks are owned by the runner and are overridden.
func WithAgentOptions(opts ...agent.Option) Option {
	return func(r *Runner) {
		r.AgentOptions = append(r.AgentOptions, opts...)
	}
}
