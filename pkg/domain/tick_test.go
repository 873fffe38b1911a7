package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTick_Defaults(t *testing.T) {
	tk := NewTick(Blackboard{})
	assert.Equal(t, uint64(0), tk.Sequence)
	assert.False(t, tk.Timestamp.IsZero())
	assert.Nil(t, tk.Agent)

	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tk = NewTick(Blackboard{}, WithSequence(7), WithAgent("bot"), WithTimestamp(ts), WithContext(map[string]any{"k": 1}))
	assert.Equal(t, uint64(7), tk.Sequence)
	assert.Equal(t, "bot", tk.Agent)
	assert.Equal(t, ts, tk.Timestamp)
	assert.Equal(t, 1, tk.Context["k"])
}

func TestTick_PutDoesNotMutateReceiver(t *testing.T) {
	tk := NewTick(NewBlackboard(map[string]any{"x": 0}))
	next := tk.Put("x", 1)

	assert.Equal(t, 0, tk.Blackboard.GetOr("x", nil))
	assert.Equal(t, 1, next.Blackboard.GetOr("x", nil))
}

func TestTick_AppendDirectivesDoesNotAlias(t *testing.T) {
	base := NewTick(Blackboard{}).AppendDirectives("a")
	left := base.AppendDirectives("b")
	right := base.AppendDirectives("c")

	assert.Equal(t, []any{"a"}, base.Directives)
	assert.Equal(t, []any{"a", "b"}, left.Directives)
	assert.Equal(t, []any{"a", "c"}, right.Directives)
}

func TestTick_Next(t *testing.T) {
	tk := NewTick(Blackboard{}, WithSequence(3)).AppendDirectives("d")
	next := tk.Next()
	assert.Equal(t, uint64(4), next.Sequence)
	assert.Empty(t, next.Directives)
	assert.Equal(t, []any{"d"}, tk.CloneDirectives())
}
