package node

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// Action delegates leaf work to an external ActionExecutor.
//
// Outcome mapping:
//   - nil error: Success, the result is retained (see Result).
//   - error wrapping domain.ErrActionFailed: Failure.
//   - any other error: Error(err).
//   - a panic inside the executor, or an unresolvable parameter:
//     Error(*domain.ActionFault) naming the action.
//
// With an effect applier configured (WithEffects) a successful result is folded into
// the tick's Agent and the resulting directives are appended to the tick.
type Action struct {
	name     string
	executor ports.ActionExecutor
	params   map[string]any
	context  map[string]any
	effects  ports.EffectApplier

	result map[string]any
	err    error
}

// ActionOption configures an Action node.
type ActionOption func(*Action)

// WithParams sets the parameters. Values may be domain.FromBlackboard placeholders.
func WithParams(params map[string]any) ActionOption {
	return func(a *Action) {
		a.params = maps.Clone(params)
	}
}

// WithActionContext sets the static context passed with every request.
func WithActionContext(ctx map[string]any) ActionOption {
	return func(a *Action) {
		a.context = maps.Clone(ctx)
	}
}

// WithEffects enables agent/effect threading through the tick.
func WithEffects(applier ports.EffectApplier) ActionOption {
	return func(a *Action) {
		a.effects = applier
	}
}

func NewAction(name string, executor ports.ActionExecutor, opts ...ActionOption) Action {
	a := Action{name: name, executor: executor}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func (Action) Kind() string { return "action" }
func (Action) Shape() Shape { return ShapeLeaf }

func (a Action) String() string { return fmt.Sprintf("action(%s)", a.name) }

func (Action) Children() []Node { return nil }

func (a Action) WithChildren([]Node) Node { return a }

// Name identifies the unit of work in the action runtime.
func (a Action) Name() string { return a.name }

// Params returns a copy of the configured (unresolved) parameters.
func (a Action) Params() map[string]any { return maps.Clone(a.params) }

// Result returns a copy of the last successful result.
func (a Action) Result() map[string]any { return maps.Clone(a.result) }

// LastError returns the error behind the last Failure or Error outcome.
func (a Action) LastError() error { return a.err }

func (a Action) Validate() error {
	if a.name == "" {
		return invalid(a.Kind(), "missing action name")
	}
	if a.executor == nil {
		return invalid(a.Kind(), "action %q has no executor", a.name)
	}
	return nil
}

func (a Action) Tick(ctx context.Context, tk domain.Tick) (domain.Status, Node, domain.Tick) {
	a.result, a.err = nil, nil

	params, err := domain.ResolveParams(a.params, tk.Blackboard)
	if err != nil {
		a.err = &domain.ActionFault{Action: a.name, Err: err}
		return domain.Error(a.err), a, tk
	}

	req := domain.ActionRequest{
		Name:     a.name,
		Params:   params,
		Context:  domain.CloneContext(a.context),
		Sequence: tk.Sequence,
	}

	result, err := a.invoke(ctx, req)
	if err != nil {
		a.err = err
		if errors.Is(err, domain.ErrActionFailed) {
			return domain.Failure, a, tk
		}
		return domain.Error(err), a, tk
	}
	a.result = result

	if a.effects != nil {
		out, err := a.applyEffects(tk, result)
		if err != nil {
			a.err = &domain.ActionFault{Action: a.name, Err: err}
			return domain.Error(a.err), a, tk
		}
		tk = out
	}
	return domain.Success, a, tk
}

// invoke calls the executor, converting a panic into an ActionFault.
func (a Action) invoke(ctx context.Context, req domain.ActionRequest) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &domain.ActionFault{
				Action: a.name,
				Err:    &domain.NodeFault{Kind: a.Kind(), Op: "tick", Value: r},
			}
		}
	}()
	return a.executor.Execute(ctx, req)
}

func (a Action) applyEffects(tk domain.Tick, result map[string]any) (domain.Tick, error) {
	agent, err := a.effects.ApplyResult(tk.Agent, result)
	if err != nil {
		return tk, fmt.Errorf("apply result: %w", err)
	}

	var effects []any
	switch raw := result[domain.EffectsKey].(type) {
	case nil:
	case []any:
		effects = raw
	case []map[string]any:
		for _, e := range raw {
			effects = append(effects, e)
		}
	default:
		return tk, fmt.Errorf("%q must be a list, got %T", domain.EffectsKey, raw)
	}

	var directives []any
	if len(effects) > 0 {
		agent, directives, err = a.effects.ApplyEffects(agent, effects)
		if err != nil {
			return tk, fmt.Errorf("apply effects: %w", err)
		}
	}
	return tk.WithAgent(agent).AppendDirectives(directives...), nil
}

func (a Action) Halt(context.Context) Node {
	a.result, a.err = nil, nil
	return a
}
