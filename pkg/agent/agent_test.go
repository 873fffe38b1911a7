package agent_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/canopy/pkg/adapters/memory"
	"github.com/aretw0/canopy/pkg/agent"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/node"
	"github.com/aretw0/canopy/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTree(t *testing.T, root node.Node) tree.Tree {
	t.Helper()
	tr, err := tree.New(root)
	require.NoError(t, err)
	return tr
}

// counter is a leaf that increments a blackboard key and succeeds.
func counter(key string) node.Node {
	return node.NewFunc("counter", func(_ context.Context, tk domain.Tick) (domain.Status, domain.Tick) {
		n, _ := tk.Blackboard.GetOr(key, 0).(int)
		return domain.Success, tk.Put(key, n+1)
	})
}

func startAgent(t *testing.T, root node.Node, opts ...agent.Option) *agent.Agent {
	t.Helper()
	a, err := agent.Start(context.Background(), mustTree(t, root), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })
	return a
}

func TestStart_Validation(t *testing.T) {
	_, err := agent.Start(context.Background(), tree.Tree{})
	assert.ErrorIs(t, err, domain.ErrInvalidNode)

	_, err = agent.Start(context.Background(), mustTree(t, counter("n")), agent.WithMode(agent.Auto), agent.WithInterval(0))
	assert.Error(t, err)
}

func TestAgent_ManualTicksPersistState(t *testing.T) {
	ctx := context.Background()
	a := startAgent(t, node.NewSequence(node.NewSetBlackboard(map[string]any{"x": 1}), node.NewWait(0)))

	st, err := a.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Running, st)

	x, ok, err := a.Get(ctx, "x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, x)

	st, err = a.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Success, st)

	stats, err := a.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.TickCount)
	assert.Equal(t, domain.Success, stats.LastStatus)
	assert.Equal(t, agent.Manual, stats.Mode)
	assert.False(t, stats.Scheduled)
}

func TestAgent_CompletedTreeCanTickAgain(t *testing.T) {
	ctx := context.Background()
	a := startAgent(t, counter("n"))

	for range 3 {
		st, err := a.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.Success, st)
	}
	n, err := a.GetOr(ctx, "n", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAgent_PutAndBlackboard(t *testing.T) {
	ctx := context.Background()
	a := startAgent(t, counter("n"), agent.WithBlackboard(domain.NewBlackboard(map[string]any{"seed": true})))

	require.NoError(t, a.Put(ctx, "k", "v"))

	bb, err := a.Blackboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "seed"}, bb.Keys())

	v, err := a.GetOr(ctx, "missing", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
}

func TestAgent_SequenceNumbersFollowTickCount(t *testing.T) {
	ctx := context.Background()
	var seqs []uint64
	probe := node.NewFunc("probe", func(_ context.Context, tk domain.Tick) (domain.Status, domain.Tick) {
		seqs = append(seqs, tk.Sequence)
		return domain.Success, tk
	})
	a := startAgent(t, probe)

	for range 3 {
		_, err := a.Tick(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, []uint64{0, 1, 2}, seqs)
}

func TestAgent_AutoModeTicksItself(t *testing.T) {
	reports := make(chan agent.Report, 16)
	a := startAgent(t, counter("n"),
		agent.WithMode(agent.Auto),
		agent.WithInterval(5*time.Millisecond),
		agent.WithOnTick(func(r agent.Report) {
			select {
			case reports <- r:
			default:
			}
		}),
	)

	for want := uint64(0); want < 3; want++ {
		select {
		case r := <-reports:
			assert.Equal(t, want, r.Sequence)
			assert.True(t, r.Auto)
			assert.Equal(t, a.ID(), r.AgentID)
		case <-time.After(2 * time.Second):
			t.Fatalf("no scheduled tick %d", want)
		}
	}
}

func TestAgent_SwitchingToManualCancelsTimer(t *testing.T) {
	ctx := context.Background()
	var ticks atomic.Int64
	leaf := node.NewFunc("leaf", func(_ context.Context, tk domain.Tick) (domain.Status, domain.Tick) {
		ticks.Add(1)
		return domain.Success, tk
	})
	a := startAgent(t, leaf, agent.WithMode(agent.Auto), agent.WithInterval(20*time.Millisecond))

	require.NoError(t, a.SetMode(ctx, agent.Manual))
	stats, err := a.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, stats.Scheduled)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int64(0), ticks.Load(), "no stray scheduled tick after switching to manual")

	require.NoError(t, a.SetMode(ctx, agent.Auto))
	assert.Eventually(t, func() bool { return ticks.Load() > 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestAgent_HaltCancelsTimerAndHaltsTree(t *testing.T) {
	ctx := context.Background()
	var halts atomic.Int64
	leaf := node.NewFunc("leaf", func(_ context.Context, tk domain.Tick) (domain.Status, domain.Tick) {
		return domain.Running, tk
	}).OnHalt(func(context.Context) { halts.Add(1) })
	a := startAgent(t, node.NewSequence(leaf), agent.WithMode(agent.Auto), agent.WithInterval(time.Hour))

	require.NoError(t, a.Halt(ctx))
	assert.Equal(t, int64(1), halts.Load())

	stats, err := a.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, stats.Scheduled)
	assert.Equal(t, agent.Auto, stats.Mode)
}

func TestAgent_ReplaceRoot(t *testing.T) {
	ctx := context.Background()
	a := startAgent(t, node.NewConstant(domain.Failure))

	st, err := a.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Failure, st)

	require.NoError(t, a.ReplaceRoot(ctx, node.NewConstant(domain.Success)))
	st, err = a.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Success, st)

	assert.ErrorIs(t, a.ReplaceRoot(ctx, nil), domain.ErrInvalidNode)
}

func TestAgent_StopHaltsAndRejectsFurtherCalls(t *testing.T) {
	ctx := context.Background()
	var halts atomic.Int64
	leaf := node.NewFunc("leaf", func(_ context.Context, tk domain.Tick) (domain.Status, domain.Tick) {
		return domain.Running, tk
	}).OnHalt(func(context.Context) { halts.Add(1) })

	a, err := agent.Start(ctx, mustTree(t, leaf))
	require.NoError(t, err)

	_, err = a.Tick(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Stop(ctx))

	assert.Equal(t, int64(1), halts.Load())
	select {
	case <-a.Done():
	default:
		t.Fatal("agent goroutine still running after Stop")
	}

	_, err = a.Tick(ctx)
	assert.ErrorIs(t, err, domain.ErrAgentStopped)
	assert.ErrorIs(t, a.Stop(ctx), domain.ErrAgentStopped)
}

func TestAgent_ContextCancellationStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a, err := agent.Start(ctx, mustTree(t, counter("n")))
	require.NoError(t, err)

	cancel()
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("agent did not stop on context cancellation")
	}
	_, err = a.Tick(context.Background())
	assert.ErrorIs(t, err, domain.ErrAgentStopped)
}

func TestAgent_StoreCheckpoints(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Save(ctx, "bot", domain.NewBlackboard(map[string]any{"n": 10})))

	a, err := agent.Start(ctx, mustTree(t, counter("n")), agent.WithID("bot"), agent.WithStore(store))
	require.NoError(t, err)

	_, err = a.Tick(ctx)
	require.NoError(t, err)

	saved, err := store.Load(ctx, "bot")
	require.NoError(t, err)
	assert.Equal(t, 11, saved.GetOr("n", nil))

	require.NoError(t, a.Put(ctx, "note", "hi"))
	require.NoError(t, a.Stop(ctx))

	saved, err = store.Load(ctx, "bot")
	require.NoError(t, err)
	assert.Equal(t, "hi", saved.GetOr("note", nil))
}

type failingStore struct{ *memory.Store }

func (*failingStore) Save(context.Context, string, domain.Blackboard) error {
	return errors.New("disk full")
}

func TestAgent_CheckpointErrorIsReported(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memory.NewStore()}
	a := startAgent(t, counter("n"), agent.WithStore(store))

	st, err := a.Tick(ctx)
	assert.Equal(t, domain.Success, st, "the tick itself still completes")
	assert.ErrorContains(t, err, "disk full")
}

func TestAgent_EmitsAgentEvents(t *testing.T) {
	ctx := context.Background()
	rec := memory.NewRecorder()
	a := startAgent(t, node.NewInverter(node.NewConstant(domain.Failure)), agent.WithSink(rec), agent.WithID("evt"))

	_, err := a.Tick(ctx)
	require.NoError(t, err)

	types := make([]domain.EventType, 0, rec.Len())
	for _, e := range rec.Events() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []domain.EventType{
		domain.EventAgentTickStart,
		domain.EventTickStart,
		domain.EventTickStart,
		domain.EventTickStop,
		domain.EventTickStop,
		domain.EventAgentTickStop,
	}, types)

	stops := rec.Filter(domain.EventAgentTickStop)
	require.Len(t, stops, 1)
	assert.Equal(t, "evt", stops[0].AgentID)
	assert.Equal(t, domain.Success, stops[0].Status)
}

func TestAgent_ThreadsAgentValue(t *testing.T) {
	ctx := context.Background()
	var seen []any
	leaf := node.NewFunc("leaf", func(_ context.Context, tk domain.Tick) (domain.Status, domain.Tick) {
		seen = append(seen, tk.Agent)
		n, _ := tk.Agent.(int)
		return domain.Success, tk.WithAgent(n + 1)
	})
	a := startAgent(t, leaf, agent.WithAgentValue(5))

	for range 2 {
		_, err := a.Tick(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, []any{5, 6}, seen)
}

func TestAgent_GeneratesID(t *testing.T) {
	a := startAgent(t, counter("n"))
	assert.Len(t, a.ID(), 36)
}
