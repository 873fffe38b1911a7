package node_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/node"
	"github.com/stretchr/testify/assert"
)

func TestDecorators_Transforms(t *testing.T) {
	boom := domain.Error(errors.New("boom"))
	tests := []struct {
		name  string
		wrap  func(node.Node) node.Node
		child domain.Status
		want  domain.Status
	}{
		{"inverter success", func(n node.Node) node.Node { return node.NewInverter(n) }, domain.Success, domain.Failure},
		{"inverter failure", func(n node.Node) node.Node { return node.NewInverter(n) }, domain.Failure, domain.Success},
		{"inverter running", func(n node.Node) node.Node { return node.NewInverter(n) }, domain.Running, domain.Running},
		{"inverter error", func(n node.Node) node.Node { return node.NewInverter(n) }, boom, boom},
		{"succeeder success", func(n node.Node) node.Node { return node.NewSucceeder(n) }, domain.Success, domain.Success},
		{"succeeder failure", func(n node.Node) node.Node { return node.NewSucceeder(n) }, domain.Failure, domain.Success},
		{"succeeder running", func(n node.Node) node.Node { return node.NewSucceeder(n) }, domain.Running, domain.Running},
		{"succeeder error", func(n node.Node) node.Node { return node.NewSucceeder(n) }, boom, boom},
		{"failer success", func(n node.Node) node.Node { return node.NewFailer(n) }, domain.Success, domain.Failure},
		{"failer failure", func(n node.Node) node.Node { return node.NewFailer(n) }, domain.Failure, domain.Failure},
		{"failer running", func(n node.Node) node.Node { return node.NewFailer(n) }, domain.Running, domain.Running},
		{"failer error", func(n node.Node) node.Node { return node.NewFailer(n) }, boom, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, _, _ := node.Execute(context.Background(), tt.wrap(node.NewConstant(tt.child)), newTick())
			assert.Equal(t, tt.want, st)
		})
	}
}

func TestInverter_DoubleNegation(t *testing.T) {
	script := []domain.Status{domain.Running, domain.Failure, domain.Success}

	plain, _ := tickN(context.Background(), newScripted("x", nil, script...), 3)
	double, _ := tickN(context.Background(), node.NewInverter(node.NewInverter(newScripted("x", nil, script...))), 3)

	assert.Equal(t, plain, double)
}

func TestRepeat_RequiresCountSuccesses(t *testing.T) {
	var p probe
	rep := node.NewRepeat(3, newScripted("child", &p, domain.Success))

	statuses, last := tickN(context.Background(), rep, 3)
	assert.Equal(t, []domain.Status{domain.Running, domain.Running, domain.Success}, statuses)
	assert.Equal(t, 3, p.ticks)
	assert.Equal(t, 2, p.halts, "child is halted between successes")
	assert.Equal(t, 0, last.(node.Repeat).Iteration())
}

func TestRepeat_KeepsIterationWhileRunning(t *testing.T) {
	var calls int
	child := node.NewFunc("child", func(_ context.Context, tk domain.Tick) (domain.Status, domain.Tick) {
		calls++
		if calls == 2 {
			return domain.Running, tk
		}
		return domain.Success, tk
	})

	st, next, tk := node.Execute(context.Background(), node.NewRepeat(2, child), newTick())
	assert.Equal(t, domain.Running, st)
	assert.Equal(t, 1, next.(node.Repeat).Iteration())

	st, next, tk = node.Execute(context.Background(), next, tk.Next())
	assert.Equal(t, domain.Running, st)
	assert.Equal(t, 1, next.(node.Repeat).Iteration(), "running leaves the counter unchanged")

	st, next, _ = node.Execute(context.Background(), next, tk.Next())
	assert.Equal(t, domain.Success, st)
	assert.Equal(t, 0, next.(node.Repeat).Iteration())
}

func TestRepeat_FailureResetsCounter(t *testing.T) {
	var calls int
	child := node.NewFunc("child", func(_ context.Context, tk domain.Tick) (domain.Status, domain.Tick) {
		calls++
		if calls == 2 {
			return domain.Failure, tk
		}
		return domain.Success, tk
	})

	statuses, last := tickN(context.Background(), node.NewRepeat(3, child), 2)
	assert.Equal(t, []domain.Status{domain.Running, domain.Failure}, statuses)
	assert.Equal(t, 0, last.(node.Repeat).Iteration())
}

func TestRepeat_CountOneIsPassThrough(t *testing.T) {
	for _, st := range []domain.Status{domain.Success, domain.Failure, domain.Running} {
		got, _, _ := node.Execute(context.Background(), node.NewRepeat(1, node.NewConstant(st)), newTick())
		assert.Equal(t, st, got)
	}
}

func TestRepeat_Validate(t *testing.T) {
	assert.ErrorIs(t, node.NewRepeat(0, success).Validate(), domain.ErrInvalidNode)
	assert.NoError(t, node.NewRepeat(1, success).Validate())
}

func TestDecorator_WithChildrenRequiresOne(t *testing.T) {
	inv := node.NewInverter(success)
	same := inv.WithChildren([]node.Node{success, failure})
	assert.Equal(t, []node.Node{success}, same.Children())

	swapped := inv.WithChildren([]node.Node{failure})
	assert.Equal(t, []node.Node{failure}, swapped.Children())
}
