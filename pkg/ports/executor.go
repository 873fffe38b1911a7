package ports

import (
	"context"

	"github.com/aretw0/canopy/pkg/domain"
)

// ActionExecutor defines how leaf work is executed.
// The engine treats it as a black box: a nil error means success, an error wrapping
// domain.ErrActionFailed is an expected failure and any other error is a fault.
type ActionExecutor interface {
	Execute(ctx context.Context, req domain.ActionRequest) (map[string]any, error)
}

// ActionExecutorFunc adapts a function to ActionExecutor.
type ActionExecutorFunc func(ctx context.Context, req domain.ActionRequest) (map[string]any, error)

func (f ActionExecutorFunc) Execute(ctx context.Context, req domain.ActionRequest) (map[string]any, error) {
	return f(ctx, req)
}

// EffectApplier folds action outcomes into an external agent value.
// The engine only threads the values through the Tick, it never interprets them.
type EffectApplier interface {
	// ApplyResult returns the agent updated with an action result.
	ApplyResult(agent any, result map[string]any) (any, error)

	// ApplyEffects applies effect descriptors and returns the final agent plus
	// the directives to append to the tick.
	ApplyEffects(agent any, effects []any) (any, []any, error)
}
