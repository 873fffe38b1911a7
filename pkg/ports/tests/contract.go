// Package tests holds behaviour suites shared by every port implementation.
package tests

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBlackboardStoreContract checks the checkpoint semantics every
// BlackboardStore must provide. Values are chosen to survive a JSON roundtrip.
func RunBlackboardStoreContract(t *testing.T, store ports.BlackboardStore) {
	t.Helper()
	ctx := context.Background()
	prefix := "contract-" + uuid.NewString()[:8]
	id := prefix + "-agent"

	t.Run("SaveLoad", func(t *testing.T) {
		bb := domain.NewBlackboard(map[string]any{
			"target": "dock",
			"pose":   map[string]any{"x": 1.5, "y": -2.0},
			"route":  []any{"a", "b"},
			"armed":  true,
		})
		require.NoError(t, store.Save(ctx, id, bb))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, bb.Snapshot(), loaded.Snapshot())
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id, domain.NewBlackboard(map[string]any{"target": "gate"})))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"target"}, loaded.Keys())
		assert.Equal(t, "gate", loaded.GetOr("target", nil))
	})

	t.Run("LoadMissing", func(t *testing.T) {
		_, err := store.Load(ctx, prefix+"-missing")
		assert.ErrorIs(t, err, domain.ErrBlackboardNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id, domain.NewBlackboard(nil)))
		require.NoError(t, store.Delete(ctx, id))

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrBlackboardNotFound)
		assert.NoError(t, store.Delete(ctx, id), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		want := []string{prefix + "-a", prefix + "-b", prefix + "-c"}
		for _, agentID := range []string{want[2], want[0], want[1]} {
			require.NoError(t, store.Save(ctx, agentID, domain.NewBlackboard(nil)))
		}
		t.Cleanup(func() {
			for _, agentID := range want {
				_ = store.Delete(ctx, agentID)
			}
		})
		require.NoError(t, store.Delete(ctx, want[1]))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		ours := slices.DeleteFunc(slices.Clone(ids), func(s string) bool { return !strings.HasPrefix(s, prefix) })
		assert.Equal(t, []string{want[0], want[2]}, ours, "sorted, without deleted checkpoints")
	})
}
