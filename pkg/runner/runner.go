package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/canopy/pkg/agent"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/tree"
)

var (
	// ErrTickLimit is returned when the tree is still Running after MaxTicks ticks.
	ErrTickLimit = errors.New("tick limit reached")
	// ErrInterrupted is returned when the run was cancelled before the tree completed.
	ErrInterrupted = errors.New("run interrupted")
)

// Runner ticks a tree until it completes.
type Runner struct {
	Handler      Handler
	Logger       *slog.Logger
	Interval     time.Duration
	MaxTicks     int
	Signals      bool
	AgentOptions []agent.Option
}

// NewRunner creates a runner. Without a handler, ticks are not presented.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.Handler == nil {
		r.Handler = nopHandler{}
	}
	return r
}

// Run starts an agent for t and ticks it until the status is terminal.
//
// The returned Result is always populated with what was observed, also when
// err is ErrTickLimit or ErrInterrupted.
func (r *Runner) Run(ctx context.Context, t tree.Tree) (Result, error) {
	if r.Signals {
		var stop func()
		ctx, stop = notifyInterrupt(ctx)
		defer stop()
	}
	// The agent outlives ctx long enough to halt and checkpoint.
	detached := context.WithoutCancel(ctx)

	var (
		mu   sync.Mutex
		last agent.Report
	)
	opts := append(slices.Clone(r.AgentOptions),
		agent.WithMode(agent.Manual),
		agent.WithOnTick(func(rep agent.Report) {
			mu.Lock()
			last = rep
			mu.Unlock()
		}),
	)
	a, err := agent.Start(detached, t, opts...)
	if err != nil {
		return Result{}, err
	}
	logger := r.Logger.With("agent_id", a.ID())
	logger.Debug("run started", "interval", r.Interval, "max_ticks", r.MaxTicks)

	var res Result
	finish := func(runErr error) (Result, error) {
		if bb, err := a.Blackboard(detached); err == nil {
			res.Blackboard = bb
		}
		if err := a.Stop(detached); err != nil {
			logger.Warn("final checkpoint failed", "error", err)
		}
		if err := r.Handler.Done(detached, res); err != nil && runErr == nil {
			runErr = err
		}
		logger.Debug("run finished", "status", res.Status.String(), "ticks", res.Ticks, "error", runErr)
		return res, runErr
	}
	interrupt := func() (Result, error) {
		if err := a.Halt(detached); err != nil {
			logger.Warn("halt failed", "error", err)
		}
		_ = r.Handler.SystemOutput(detached, fmt.Sprintf("interrupted after %d ticks", res.Ticks))
		return finish(fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx)))
	}

	before, err := a.Blackboard(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return interrupt()
		}
		return finish(err)
	}

	for {
		st, err := a.Tick(ctx)
		if st.Kind() == 0 {
			if ctx.Err() != nil {
				return interrupt()
			}
			return finish(fmt.Errorf("tick: %w", err))
		}
		if err != nil {
			logger.Warn("checkpoint failed", "error", err)
		}
		res.Status = st
		res.Ticks++

		after, err := a.Blackboard(detached)
		if err != nil {
			return finish(err)
		}
		mu.Lock()
		rep := last
		mu.Unlock()
		report := TickReport{
			Sequence:   rep.Sequence,
			Status:     st,
			Reason:     reasonOf(st),
			Duration:   rep.Duration,
			Changes:    domain.Diff(before, after),
			Directives: rep.Directives,
		}
		before = after
		if err := r.Handler.Tick(ctx, report); err != nil {
			if ctx.Err() != nil {
				return interrupt()
			}
			return finish(fmt.Errorf("report tick: %w", err))
		}

		if st.IsCompleted() {
			return finish(nil)
		}
		if r.MaxTicks > 0 && res.Ticks >= r.MaxTicks {
			if err := a.Halt(detached); err != nil {
				logger.Warn("halt failed", "error", err)
			}
			return finish(fmt.Errorf("%w: still running after %d ticks", ErrTickLimit, res.Ticks))
		}
		if !r.wait(ctx) {
			return interrupt()
		}
	}
}

// wait pauses for the interval. It returns false if ctx ended first.
func (r *Runner) wait(ctx context.Context) bool {
	if r.Interval <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(r.Interval)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

type nopHandler struct{}

func (nopHandler) Tick(context.Context, TickReport) error     { return nil }
func (nopHandler) Done(context.Context, Result) error         { return nil }
func (nopHandler) SystemOutput(context.Context, string) error { return nil }
func (nopHandler) Input(context.Context) (string, error)      { return "", io.EOF }
