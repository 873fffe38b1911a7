package agent

import (
	"log/slog"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// DefaultInterval is the auto-mode period used when none is configured.
const DefaultInterval = time.Second

// Report describes one completed agent tick.
type Report struct {
	AgentID    string
	Sequence   uint64
	Status     domain.Status
	Duration   time.Duration
	Auto       bool
	Directives []any
}

// Option configures an Agent at Start.
type Option func(*config)

type config struct {
	id          string
	blackboard  domain.Blackboard
	mode        Mode
	interval    time.Duration
	logger      *slog.Logger
	sink        ports.EventSink
	store       ports.BlackboardStore
	onTick      func(Report)
	agentValue  any
	tickContext map[string]any
}

// WithID sets the agent identifier. It is also the checkpoint key in the store.
func WithID(id string) Option {
	return func(c *config) {
		c.id = id
	}
}

// WithBlackboard sets the initial blackboard.
func WithBlackboard(bb domain.Blackboard) Option {
	return func(c *config) {
		c.blackboard = bb
	}
}

// WithMode sets the initial mode (default Manual).
func WithMode(mode Mode) Option {
	return func(c *config) {
		c.mode = mode
	}
}

// WithInterval sets the auto-mode period.
func WithInterval(d time.Duration) Option {
	return func(c *config) {
		c.interval = d
	}
}

// WithLogger sets a custom structured logger for the agent.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithSink receives agent tick events and, unless the tree has its own sink, node events.
func WithSink(sink ports.EventSink) Option {
	return func(c *config) {
		c.sink = sink
	}
}

// WithStore checkpoints the blackboard: loaded on start, saved after every tick, Put and Stop.
func WithStore(store ports.BlackboardStore) Option {
	return func(c *config) {
		c.store = store
	}
}

// WithOnTick registers a callback run after every tick, manual or scheduled.
// It runs on the agent goroutine and must not call back into the agent.
func WithOnTick(f func(Report)) Option {
	return func(c *config) {
		c.onTick = f
	}
}

// WithAgentValue sets the opaque value threaded through each tick for effect-aware actions.
func WithAgentValue(v any) Option {
	return func(c *config) {
		c.agentValue = v
	}
}

// WithTickContext sets the context map attached to every tick.
func WithTickContext(ctx map[string]any) Option {
	return func(c *config) {
		c.tickContext = domain.CloneContext(ctx)
	}
}
