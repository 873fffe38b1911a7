package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveParams(t *testing.T) {
	bb := NewBlackboard(map[string]any{"user": "ada", "limit": 3})
	params := map[string]any{
		"name":   FromBlackboard{Key: "user"},
		"static": "value",
		"nested": map[string]any{"max": &FromBlackboard{Key: "limit"}},
		"list":   []any{FromBlackboard{Key: "user"}, 1},
	}

	got, err := ResolveParams(params, bb)
	require.NoError(t, err)
	assert.Equal(t, "ada", got["name"])
	assert.Equal(t, "value", got["static"])
	assert.Equal(t, map[string]any{"max": 3}, got["nested"])
	assert.Equal(t, []any{"ada", 1}, got["list"])

	// Input must be left untouched.
	assert.Equal(t, FromBlackboard{Key: "user"}, params["name"])
}

func TestResolveParams_MissingKey(t *testing.T) {
	_, err := ResolveParams(map[string]any{"x": FromBlackboard{Key: "nope"}}, Blackboard{})
	assert.ErrorIs(t, err, ErrBlackboardKeyMissing)
}

func TestResolveParams_NilPlaceholder(t *testing.T) {
	var missing *FromBlackboard
	params := map[string]any{"x": []any{missing}}

	require.NotPanics(t, func() {
		_, err := ResolveParams(params, NewBlackboard(map[string]any{"x": 1}))
		assert.ErrorIs(t, err, ErrBlackboardKeyMissing)
	})
}
