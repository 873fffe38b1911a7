// Package agent runs a behavior tree as a long-lived actor.
//
// An Agent owns one tree and one blackboard. All operations are serialized through
// the agent's inbox and executed by a single goroutine, so at most one tick is in
// flight at any time and no locks guard the tree or the blackboard.
//
// In Manual mode the caller drives ticks with Tick. In Auto mode the agent ticks
// itself every interval until it is switched back, halted or stopped.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/node"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/tree"
	"github.com/google/uuid"
)

// Stats is a point-in-time view of an agent.
type Stats struct {
	ID         string        `json:"id"`
	Mode       Mode          `json:"mode"`
	Interval   time.Duration `json:"interval"`
	TickCount  uint64        `json:"tick_count"`
	LastStatus domain.Status `json:"last_status,omitzero"`
	LastTickAt time.Time     `json:"last_tick_at,omitzero"`
	Scheduled  bool          `json:"scheduled"`
	Depth      int           `json:"depth"`
	NodeCount  int           `json:"node_count"`
}

// Agent is a handle on a running actor. It is safe for concurrent use.
type Agent struct {
	id    string
	inbox chan func(*actor)
	done  chan struct{}
}

// actor is the state owned by the agent goroutine.
type actor struct {
	agent   *Agent
	ctx     context.Context
	cfg     config
	logger  *slog.Logger
	sink    ports.EventSink
	stopped bool
	stopErr error

	tree       tree.Tree
	blackboard domain.Blackboard
	agentValue any
	mode       Mode
	interval   time.Duration
	tickCount  uint64
	last       domain.Status
	lastAt     time.Time

	timer      *time.Timer
	generation uint64
}

// Start launches an agent owning t. The agent runs until Stop is called or ctx is cancelled.
func Start(ctx context.Context, t tree.Tree, opts ...Option) (*Agent, error) {
	cfg := config{interval: DefaultInterval}
	for _, opt := range opts {
		opt(&cfg)
	}
	if t.Root() == nil {
		return nil, fmt.Errorf("start agent: %w: tree has no root", domain.ErrInvalidNode)
	}
	if cfg.mode == Auto && cfg.interval <= 0 {
		return nil, fmt.Errorf("start agent: auto mode requires a positive interval, got %s", cfg.interval)
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.sink == nil {
		cfg.sink = ports.NopSink{}
	}

	bb := cfg.blackboard
	if cfg.store != nil {
		stored, err := cfg.store.Load(ctx, cfg.id)
		switch {
		case err == nil:
			bb = bb.Merge(stored.Snapshot())
		case errors.Is(err, domain.ErrBlackboardNotFound):
		default:
			return nil, fmt.Errorf("start agent %s: load blackboard: %w", cfg.id, err)
		}
	}

	a := &Agent{
		id:    cfg.id,
		inbox: make(chan func(*actor)),
		done:  make(chan struct{}),
	}
	s := &actor{
		agent:      a,
		ctx:        ctx,
		cfg:        cfg,
		logger:     cfg.logger.With("agent_id", cfg.id),
		sink:       cfg.sink,
		tree:       t,
		blackboard: bb,
		agentValue: cfg.agentValue,
		mode:       cfg.mode,
		interval:   cfg.interval,
	}
	if s.mode == Auto {
		s.arm()
	}
	s.logger.Debug("agent started", "mode", s.mode.String(), "interval", s.interval)

	go s.run()
	return a, nil
}

// ID returns the agent identifier.
func (a *Agent) ID() string { return a.id }

// Done is closed once the agent goroutine has exited.
func (a *Agent) Done() <-chan struct{} { return a.done }

// Tick runs one tick and returns its status. It works in both modes.
func (a *Agent) Tick(ctx context.Context) (domain.Status, error) {
	return ask(ctx, a, func(s *actor) (domain.Status, error) {
		return s.tick(ctx, false)
	})
}

// Put writes a blackboard key.
func (a *Agent) Put(ctx context.Context, key string, value any) error {
	_, err := ask(ctx, a, func(s *actor) (struct{}, error) {
		s.blackboard = s.blackboard.Set(key, value)
		return struct{}{}, s.checkpoint(ctx)
	})
	return err
}

// Get reads a blackboard key.
func (a *Agent) Get(ctx context.Context, key string) (any, bool, error) {
	type found struct {
		value any
		ok    bool
	}
	res, err := ask(ctx, a, func(s *actor) (found, error) {
		v, ok := s.blackboard.Get(key)
		return found{v, ok}, nil
	})
	return res.value, res.ok, err
}

// GetOr reads a blackboard key, falling back to def when it is absent.
func (a *Agent) GetOr(ctx context.Context, key string, def any) (any, error) {
	return ask(ctx, a, func(s *actor) (any, error) {
		return s.blackboard.GetOr(key, def), nil
	})
}

// Blackboard returns the current blackboard value.
func (a *Agent) Blackboard(ctx context.Context) (domain.Blackboard, error) {
	return ask(ctx, a, func(s *actor) (domain.Blackboard, error) {
		return s.blackboard, nil
	})
}

// Tree returns the current tree, including node run-state.
func (a *Agent) Tree(ctx context.Context) (tree.Tree, error) {
	return ask(ctx, a, func(s *actor) (tree.Tree, error) {
		return s.tree, nil
	})
}

// SetMode switches between Manual and Auto. Entering Auto arms the timer;
// leaving it cancels any pending scheduled tick.
func (a *Agent) SetMode(ctx context.Context, mode Mode) error {
	_, err := ask(ctx, a, func(s *actor) (struct{}, error) {
		return struct{}{}, s.setMode(mode)
	})
	return err
}

// ReplaceRoot halts the current tree and swaps in a new root. Blackboard and tick count are kept.
func (a *Agent) ReplaceRoot(ctx context.Context, root node.Node) error {
	_, err := ask(ctx, a, func(s *actor) (struct{}, error) {
		next, err := s.tree.WithRoot(root)
		if err != nil {
			return struct{}{}, err
		}
		s.halt(ctx)
		s.tree = next
		if s.mode == Auto {
			s.arm()
		}
		s.logger.Debug("agent root replaced", "root", root.Kind())
		return struct{}{}, nil
	})
	return err
}

// Halt halts every node of the tree and cancels any pending scheduled tick.
// The mode is kept; calling SetMode(Auto) again re-arms the timer.
func (a *Agent) Halt(ctx context.Context) error {
	_, err := ask(ctx, a, func(s *actor) (struct{}, error) {
		s.halt(ctx)
		return struct{}{}, nil
	})
	return err
}

// Stats returns a snapshot of the agent counters.
func (a *Agent) Stats(ctx context.Context) (Stats, error) {
	return ask(ctx, a, func(s *actor) (Stats, error) {
		return s.stats(), nil
	})
}

// Stop halts the tree, cancels the timer, saves a final checkpoint and ends the agent.
// Any later call returns domain.ErrAgentStopped.
func (a *Agent) Stop(ctx context.Context) error {
	_, err := ask(ctx, a, func(s *actor) (struct{}, error) {
		s.shutdown(ctx)
		return struct{}{}, s.stopErr
	})
	if err != nil {
		return err
	}
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ask runs fn on the agent goroutine and waits for its result.
func ask[T any](ctx context.Context, a *Agent, fn func(*actor) (T, error)) (T, error) {
	var zero T
	type reply struct {
		value T
		err   error
	}
	replies := make(chan reply, 1)
	msg := func(s *actor) {
		v, err := fn(s)
		replies <- reply{v, err}
	}

	select {
	case a.inbox <- msg:
	case <-a.done:
		return zero, domain.ErrAgentStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-replies:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// post delivers a message without waiting for it to run. It is dropped once the agent is gone.
func (a *Agent) post(msg func(*actor)) {
	select {
	case a.inbox <- msg:
	case <-a.done:
	}
}

func (s *actor) run() {
	defer close(s.agent.done)
	for {
		select {
		case msg := <-s.agent.inbox:
			msg(s)
			if s.stopped {
				return
			}
		case <-s.ctx.Done():
			s.shutdown(context.WithoutCancel(s.ctx))
			return
		}
	}
}

func (s *actor) tick(ctx context.Context, scheduled bool) (domain.Status, error) {
	seq := s.tickCount
	start := time.Now()
	ctx = s.bind(ctx)
	s.emit(ctx, domain.Event{Type: domain.EventAgentTickStart, Timestamp: start, Sequence: seq})

	tk := domain.NewTick(s.blackboard,
		domain.WithSequence(seq),
		domain.WithTimestamp(start),
		domain.WithAgent(s.agentValue),
		domain.WithContext(s.cfg.tickContext),
	)
	st, next, out := s.tree.TickContext(ctx, tk)
	s.tree = next
	s.blackboard = out.Blackboard
	s.agentValue = out.Agent
	s.tickCount++
	s.last, s.lastAt = st, time.Now()

	duration := time.Since(start)
	s.emit(ctx, domain.Event{
		Type:      domain.EventAgentTickStop,
		Timestamp: s.lastAt,
		Sequence:  seq,
		Duration:  duration,
		Status:    st,
		Err:       st.Reason(),
	})
	s.logger.Debug("agent ticked", "sequence", seq, "status", st.String(), "duration", duration, "scheduled", scheduled)

	err := s.checkpoint(ctx)
	if s.cfg.onTick != nil {
		s.cfg.onTick(Report{
			AgentID:    s.agent.id,
			Sequence:   seq,
			Status:     st,
			Duration:   duration,
			Auto:       scheduled,
			Directives: out.CloneDirectives(),
		})
	}
	return st, err
}

// arm schedules the next self-tick. Any previously armed timer is invalidated.
func (s *actor) arm() {
	s.disarm()
	gen := s.generation
	s.timer = time.AfterFunc(s.interval, func() {
		s.agent.post(func(s *actor) { s.fire(gen) })
	})
}

// disarm cancels the pending timer. A fire already queued carries a stale generation and is dropped.
func (s *actor) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
}

func (s *actor) fire(gen uint64) {
	if gen != s.generation || s.mode != Auto {
		return
	}
	s.timer = nil
	if _, err := s.tick(s.ctx, true); err != nil {
		s.logger.Error("scheduled tick checkpoint failed", "err", err)
	}
	if s.mode == Auto {
		s.arm()
	}
}

func (s *actor) setMode(mode Mode) error {
	switch mode {
	case Manual:
		s.disarm()
	case Auto:
		if s.interval <= 0 {
			return fmt.Errorf("auto mode requires a positive interval, got %s", s.interval)
		}
		if s.mode != Auto || s.timer == nil {
			s.arm()
		}
	default:
		return fmt.Errorf("unknown agent mode %s", mode)
	}
	if s.mode != mode {
		s.logger.Debug("agent mode changed", "from", s.mode.String(), "to", mode.String())
	}
	s.mode = mode
	return nil
}

func (s *actor) halt(ctx context.Context) {
	s.disarm()
	ctx = node.WithSequence(s.bind(ctx), s.tickCount)
	s.tree = s.tree.Halt(ctx)
}

func (s *actor) shutdown(ctx context.Context) {
	if s.stopped {
		return
	}
	s.halt(ctx)
	s.stopErr = s.checkpoint(ctx)
	s.stopped = true
	s.logger.Debug("agent stopped", "ticks", s.tickCount)
}

func (s *actor) checkpoint(ctx context.Context) error {
	if s.cfg.store == nil {
		return nil
	}
	if err := s.cfg.store.Save(ctx, s.agent.id, s.blackboard); err != nil {
		s.logger.Warn("blackboard checkpoint failed", "err", err)
		return fmt.Errorf("checkpoint agent %s: %w", s.agent.id, err)
	}
	return nil
}

// bind attaches the agent sink and identity to ctx for node events.
func (s *actor) bind(ctx context.Context) context.Context {
	return node.WithAgentID(node.WithSink(ctx, s.sink), s.agent.id)
}

func (s *actor) emit(ctx context.Context, e domain.Event) {
	e.AgentID = s.agent.id
	defer func() { _ = recover() }()
	s.sink.Emit(ctx, e)
}

func (s *actor) stats() Stats {
	return Stats{
		ID:         s.agent.id,
		Mode:       s.mode,
		Interval:   s.interval,
		TickCount:  s.tickCount,
		LastStatus: s.last,
		LastTickAt: s.lastAt,
		Scheduled:  s.timer != nil,
		Depth:      s.tree.Depth(),
		NodeCount:  s.tree.NodeCount(),
	}
}
