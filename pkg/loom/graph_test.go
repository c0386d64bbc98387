package loom_test

import (
	"testing"

	"github.com/loom-ui/loom/pkg/loom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// edge tables stay exact inverses through tracking churn
func TestGraphSymmetry(t *testing.T) {
	g := loom.New()
	a := loom.NewSignal(g, 1)
	b := loom.NewSignal(g, 2)
	sum := loom.NewMemo(g, func() int { return a.Get() + b.Get() })

	cond := loom.NewSignal(g, true)
	loom.NewEffect(g, func() loom.Cleanup {
		if cond.Get() {
			sum.Get()
		} else {
			a.Get()
		}
		return nil
	})
	require.NoError(t, g.Verify())

	for i := 0; i < 5; i++ {
		cond.Set(i%2 == 0)
		a.Set(i)
		require.NoError(t, g.Verify(), "iteration %d", i)
	}
}

// stats reflect registered sources, computations, and live edges
func TestGraphStats(t *testing.T) {
	g := loom.New()
	s := loom.NewSignal(g, 0)
	m := loom.NewMemo(g, func() int { return s.Get() })

	st := g.Stats()
	assert.Equal(t, 2, st.Sources, "signal and memo are both sources")
	assert.Equal(t, 1, st.Computations)
	assert.Equal(t, 0, st.Edges, "lazy memo has no edges before first read")

	m.Get()
	st = g.Stats()
	assert.Equal(t, 1, st.Edges)
}

// independent graphs never interact
func TestGraphIsolation(t *testing.T) {
	g1 := loom.New()
	g2 := loom.New()
	s1 := loom.NewSignal(g1, 0)

	runs := 0
	loom.NewEffect(g2, func() loom.Cleanup {
		runs++
		return nil
	})
	require.Equal(t, 1, runs)

	s1.Set(42)
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, g1.Stats().Sources)
	assert.Equal(t, 1, g2.Stats().Computations)
}

// an attached scheduler is notified instead of the automatic flush
func TestEffectSchedulerHook(t *testing.T) {
	var notified []*loom.Effect
	g := loom.New(loom.WithEffectScheduler(func(e *loom.Effect) {
		notified = append(notified, e)
	}))
	s := loom.NewSignal(g, 0)

	runs := 0
	loom.NewEffect(g, func() loom.Cleanup {
		s.Get()
		runs++
		return nil
	})
	require.Equal(t, 1, runs, "initial run is synchronous")

	s.Set(1)
	assert.Equal(t, 1, runs, "no automatic flush with a scheduler attached")
	require.Len(t, notified, 1)

	require.NoError(t, g.FlushEffects())
	assert.Equal(t, 2, runs)

	require.NoError(t, g.FlushEffects())
	assert.Equal(t, 2, runs, "flush with an empty queue is a no-op")
}

// Invalidate dirties a source without touching its value
func TestGraphInvalidate(t *testing.T) {
	g := loom.New()
	s := loom.NewSignal(g, 42)

	runs := 0
	loom.NewEffect(g, func() loom.Cleanup {
		s.Get()
		runs++
		return nil
	})
	require.Equal(t, 1, runs)
	v0 := s.Version()

	require.True(t, g.Invalidate(s.ID()))
	assert.Equal(t, 2, runs, "dependents rerun even though the value is unchanged")
	assert.Equal(t, v0+1, s.Version())
	assert.Equal(t, 42, s.Peek())

	assert.False(t, g.Invalidate(99999), "unknown source id")
	assert.Equal(t, 2, runs)
}
