package node_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	success = node.NewConstant(domain.Success)
	failure = node.NewConstant(domain.Failure)
)

func TestSequence_AllSucceed(t *testing.T) {
	st, _, _ := node.Execute(context.Background(), node.NewSequence(success, success, success), newTick())
	assert.Equal(t, domain.Success, st)
}

func TestSequence_StopsOnFailure(t *testing.T) {
	var after probe
	seq := node.NewSequence(success, failure, newScripted("after", &after, domain.Success))

	st, next, _ := node.Execute(context.Background(), seq, newTick())
	assert.Equal(t, domain.Failure, st)
	assert.Equal(t, 0, after.ticks, "children after a failure must not be ticked")
	assert.Equal(t, 0, next.(node.Sequence).ResumeIndex())
}

func TestSequence_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var after probe
	seq := node.NewSequence(node.NewConstant(domain.Error(boom)), newScripted("after", &after, domain.Success))

	st, next, _ := node.Execute(context.Background(), seq, newTick())
	assert.True(t, st.IsError())
	assert.ErrorIs(t, st.Reason(), boom)
	assert.Equal(t, 0, after.ticks)
	assert.Equal(t, 0, next.(node.Sequence).ResumeIndex())
}

func TestSequence_EmptySucceeds(t *testing.T) {
	st, _, _ := node.Execute(context.Background(), node.NewSequence(), newTick())
	assert.Equal(t, domain.Success, st)
}

func TestSequence_ResumesAtRunningChild(t *testing.T) {
	var first, second probe
	seq := node.NewSequence(
		newScripted("first", &first, domain.Success),
		newScripted("second", &second, domain.Running, domain.Running, domain.Success),
	)

	statuses, last := tickN(context.Background(), seq, 3)
	assert.Equal(t, []domain.Status{domain.Running, domain.Running, domain.Success}, statuses)
	assert.Equal(t, 1, first.ticks, "earlier children must not be re-ticked while resuming")
	assert.Equal(t, 3, second.ticks)
	assert.Equal(t, 0, last.(node.Sequence).ResumeIndex())
}

func TestSequence_RestartsAfterCompletion(t *testing.T) {
	var first probe
	seq := node.NewSequence(newScripted("first", &first, domain.Success))

	statuses, _ := tickN(context.Background(), seq, 2)
	assert.Equal(t, []domain.Status{domain.Success, domain.Success}, statuses)
	assert.Equal(t, 2, first.ticks)
}

func TestSelector_FirstSuccessWins(t *testing.T) {
	st, next, _ := node.Execute(context.Background(), node.NewSelector(failure, success), newTick())
	assert.Equal(t, domain.Success, st)
	assert.Equal(t, 0, next.(node.Selector).ResumeIndex())
}

func TestSelector_AllFail(t *testing.T) {
	st, _, _ := node.Execute(context.Background(), node.NewSelector(failure, failure), newTick())
	assert.Equal(t, domain.Failure, st)
}

func TestSelector_EmptyFails(t *testing.T) {
	st, _, _ := node.Execute(context.Background(), node.NewSelector(), newTick())
	assert.Equal(t, domain.Failure, st)
}

func TestSelector_ErrorTriesNextChild(t *testing.T) {
	sel := node.NewSelector(node.NewConstant(domain.Error(errors.New("boom"))), success)
	st, _, _ := node.Execute(context.Background(), sel, newTick())
	assert.Equal(t, domain.Success, st)

	sel = node.NewSelector(node.NewConstant(domain.Error(errors.New("boom"))), failure)
	st, _, _ = node.Execute(context.Background(), sel, newTick())
	assert.Equal(t, domain.Failure, st)
}

func TestSelector_ResumesAtRunningChild(t *testing.T) {
	var first, second probe
	sel := node.NewSelector(
		newScripted("first", &first, domain.Failure),
		newScripted("second", &second, domain.Running, domain.Success),
	)

	st, next, tk := node.Execute(context.Background(), sel, newTick())
	require.Equal(t, domain.Running, st)
	assert.Equal(t, 1, next.(node.Selector).ResumeIndex())

	st, next, _ = node.Execute(context.Background(), next, tk.Next())
	assert.Equal(t, domain.Success, st)
	assert.Equal(t, 1, first.ticks)
	assert.Equal(t, 2, second.ticks)
	assert.Equal(t, 0, next.(node.Selector).ResumeIndex())
}

func TestComposite_ThreadsTickBetweenSiblings(t *testing.T) {
	var seen any
	reader := node.NewFunc("reader", func(_ context.Context, tk domain.Tick) (domain.Status, domain.Tick) {
		seen = tk.Blackboard.GetOr("x", nil)
		return domain.Success, tk
	})
	seq := node.NewSequence(node.NewSetBlackboard(map[string]any{"x": 1}), reader)

	st, _, tk := node.Execute(context.Background(), seq, newTick())
	assert.Equal(t, domain.Success, st)
	assert.Equal(t, 1, seen)
	assert.Equal(t, 1, tk.Blackboard.GetOr("x", nil))
}

func TestComposite_ImmutableOnTick(t *testing.T) {
	seq := node.NewSequence(success, newScripted("r", nil, domain.Running))

	_, next, _ := node.Execute(context.Background(), seq, newTick())
	assert.Equal(t, 1, next.(node.Sequence).ResumeIndex())
	assert.Equal(t, 0, seq.ResumeIndex(), "ticking must not mutate the original value")
}
