package node_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/node"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterEffects treats the agent as an int and each effect as an increment.
type counterEffects struct{}

func (counterEffects) ApplyResult(agent any, result map[string]any) (any, error) {
	n, _ := agent.(int)
	if v, ok := result["add"].(int); ok {
		n += v
	}
	return n, nil
}

func (counterEffects) ApplyEffects(agent any, effects []any) (any, []any, error) {
	n, _ := agent.(int)
	directives := make([]any, 0, len(effects))
	for _, e := range effects {
		n++
		directives = append(directives, fmt.Sprintf("did %v", e))
	}
	return n, directives, nil
}

func TestAction_ResolvesParamsAndSucceeds(t *testing.T) {
	var got domain.ActionRequest
	exec := ports.ActionExecutorFunc(func(_ context.Context, req domain.ActionRequest) (map[string]any, error) {
		got = req
		return map[string]any{"ok": true}, nil
	})
	act := node.NewAction("greet", exec,
		node.WithParams(map[string]any{
			"who":   &domain.FromBlackboard{Key: "name"},
			"fixed": "x",
		}),
		node.WithActionContext(map[string]any{"tenant": "t1"}),
	)
	tk := domain.NewTick(domain.NewBlackboard(map[string]any{"name": "ada"}), domain.WithSequence(7))

	st, next, _ := node.Execute(context.Background(), act, tk)
	require.Equal(t, domain.Success, st)
	assert.Equal(t, "greet", got.Name)
	assert.Equal(t, "ada", got.Params["who"])
	assert.Equal(t, "x", got.Params["fixed"])
	assert.Equal(t, "t1", got.Context["tenant"])
	assert.Equal(t, uint64(7), got.Sequence)
	assert.Equal(t, map[string]any{"ok": true}, next.(node.Action).Result())

	halted := node.Halt(context.Background(), next)
	assert.Nil(t, halted.(node.Action).Result())
}

func TestAction_OutcomeMapping(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		exec ports.ActionExecutorFunc
		kind domain.StatusKind
		is   error
	}{
		{
			name: "expected failure",
			exec: func(context.Context, domain.ActionRequest) (map[string]any, error) {
				return nil, fmt.Errorf("no stock: %w", domain.ErrActionFailed)
			},
			kind: domain.KindFailure,
		},
		{
			name: "reported error",
			exec: func(context.Context, domain.ActionRequest) (map[string]any, error) {
				return nil, boom
			},
			kind: domain.KindError,
			is:   boom,
		},
		{
			name: "panic",
			exec: func(context.Context, domain.ActionRequest) (map[string]any, error) {
				panic("executor crashed")
			},
			kind: domain.KindError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, next, _ := node.Execute(context.Background(), node.NewAction("op", tt.exec), newTick())
			assert.Equal(t, tt.kind, st.Kind())
			assert.Error(t, next.(node.Action).LastError())
			if tt.is != nil {
				assert.ErrorIs(t, st.Reason(), tt.is)
			}
		})
	}
}

func TestAction_PanicIsAttributed(t *testing.T) {
	exec := ports.ActionExecutorFunc(func(context.Context, domain.ActionRequest) (map[string]any, error) {
		panic("crash")
	})
	st, _, _ := node.Execute(context.Background(), node.NewAction("deploy", exec), newTick())

	var fault *domain.ActionFault
	require.ErrorAs(t, st.Reason(), &fault)
	assert.Equal(t, "deploy", fault.Action)

	var nodeFault *domain.NodeFault
	require.ErrorAs(t, st.Reason(), &nodeFault)
	assert.Equal(t, "crash", nodeFault.Value)
}

func TestAction_MissingBlackboardKey(t *testing.T) {
	called := false
	exec := ports.ActionExecutorFunc(func(context.Context, domain.ActionRequest) (map[string]any, error) {
		called = true
		return nil, nil
	})
	act := node.NewAction("op", exec, node.WithParams(map[string]any{"v": &domain.FromBlackboard{Key: "absent"}}))

	st, _, _ := node.Execute(context.Background(), act, newTick())
	assert.True(t, st.IsError())
	assert.ErrorIs(t, st.Reason(), domain.ErrBlackboardKeyMissing)
	assert.False(t, called)
}

func TestAction_NilPlaceholderIsActionFault(t *testing.T) {
	var placeholder *domain.FromBlackboard
	act := node.NewAction("dock", ports.ActionExecutorFunc(func(context.Context, domain.ActionRequest) (map[string]any, error) {
		return nil, nil
	}), node.WithParams(map[string]any{"target": placeholder}))

	st, _, _ := node.Execute(context.Background(), act, newTick())
	require.True(t, st.IsError())
	var fault *domain.ActionFault
	require.ErrorAs(t, st.Reason(), &fault)
	assert.Equal(t, "dock", fault.Action)
	assert.ErrorIs(t, st.Reason(), domain.ErrBlackboardKeyMissing)
	var nodeFault *domain.NodeFault
	assert.False(t, errors.As(st.Reason(), &nodeFault))
}

func TestAction_ThreadsAgentAndDirectives(t *testing.T) {
	exec := ports.ActionExecutorFunc(func(context.Context, domain.ActionRequest) (map[string]any, error) {
		return map[string]any{
			"add":             10,
			domain.EffectsKey: []any{"a", "b"},
		}, nil
	})
	act := node.NewAction("op", exec, node.WithEffects(counterEffects{}))
	tk := domain.NewTick(domain.Blackboard{}, domain.WithAgent(1))

	st, _, out := node.Execute(context.Background(), act, tk)
	require.Equal(t, domain.Success, st)
	assert.Equal(t, 13, out.Agent)
	assert.Equal(t, []any{"did a", "did b"}, out.Directives)
	assert.Equal(t, 1, tk.Agent, "input tick keeps its agent")
}

func TestAction_MalformedEffects(t *testing.T) {
	exec := ports.ActionExecutorFunc(func(context.Context, domain.ActionRequest) (map[string]any, error) {
		return map[string]any{domain.EffectsKey: "not a list"}, nil
	})
	act := node.NewAction("op", exec, node.WithEffects(counterEffects{}))

	st, _, _ := node.Execute(context.Background(), act, newTick())
	assert.True(t, st.IsError())
	var fault *domain.ActionFault
	assert.ErrorAs(t, st.Reason(), &fault)
}

func TestAction_Validate(t *testing.T) {
	exec := ports.ActionExecutorFunc(func(context.Context, domain.ActionRequest) (map[string]any, error) { return nil, nil })
	assert.NoError(t, node.NewAction("op", exec).Validate())
	assert.ErrorIs(t, node.NewAction("", exec).Validate(), domain.ErrInvalidNode)
	assert.ErrorIs(t, node.NewAction("op", nil).Validate(), domain.ErrInvalidNode)
}
