package loom_test

import (
	"testing"

	"github.com/loom-ui/loom/pkg/loom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signal -> memo -> effect: one write produces exactly one new log entry
func TestWritePropagatesThroughMemoOnce(t *testing.T) {
	g := loom.New()
	s := loom.NewSignal(g, 0)
	m := loom.NewMemo(g, func() int { return s.Get() * 2 })

	var logged []int
	loom.NewEffect(g, func() loom.Cleanup {
		logged = append(logged, m.Get())
		return nil
	})
	require.Equal(t, []int{0}, logged, "initial run records the starting value")

	s.Set(5)
	assert.Equal(t, []int{0, 10}, logged, "exactly one recomputation for the write")
}

// effects re-run when any tracked source changes, and only those
func TestEffectTracksExactReadSet(t *testing.T) {
	g := loom.New()
	cond := loom.NewSignal(g, true)
	a := loom.NewSignal(g, "a")
	b := loom.NewSignal(g, "b")

	runs := 0
	loom.NewEffect(g, func() loom.Cleanup {
		runs++
		if cond.Get() {
			a.Get()
		} else {
			b.Get()
		}
		return nil
	})
	assert.Equal(t, 1, runs)

	b.Set("b2")
	assert.Equal(t, 1, runs, "untaken branch must not be tracked")

	cond.Set(false)
	assert.Equal(t, 2, runs)

	a.Set("a2")
	assert.Equal(t, 2, runs, "stale branch must be dropped after re-tracking")
	b.Set("b3")
	assert.Equal(t, 3, runs)

	require.NoError(t, g.Verify())
}

// cleanups run before the next execution and once more on dispose
func TestEffectCleanupOrder(t *testing.T) {
	g := loom.New()
	s := loom.NewSignal(g, 0)

	var trace []string
	e := loom.NewEffect(g, func() loom.Cleanup {
		s.Get()
		trace = append(trace, "run")
		return func() { trace = append(trace, "cleanup") }
	})

	s.Set(1)
	e.Dispose()
	assert.Equal(t, []string{"run", "cleanup", "run", "cleanup"}, trace)

	s.Set(2)
	assert.Len(t, trace, 4, "disposed effect must ignore further writes")
}

// repeated marks before a flush coalesce into a single run
func TestEffectMarksCoalesce(t *testing.T) {
	g := loom.New()
	a := loom.NewSignal(g, 0)
	b := loom.NewSignal(g, 0)

	runs := 0
	loom.NewEffect(g, func() loom.Cleanup {
		a.Get()
		b.Get()
		runs++
		return nil
	})

	g.Batch(func() {
		a.Set(1)
		b.Set(1)
		a.Set(2)
	})
	assert.Equal(t, 2, runs, "three writes, one re-run")
}

// an effect that keeps re-dirtying itself is reported as unstable
func TestUnstableCascadeReported(t *testing.T) {
	var reported error
	g := loom.New(loom.WithOnError(func(err error) { reported = err }))
	s := loom.NewSignal(g, 0)

	loom.NewEffect(g, func() loom.Cleanup {
		s.Set(s.Get() + 1)
		return nil
	})

	err := g.FlushEffects()
	require.Error(t, err)
	assert.ErrorIs(t, err, loom.ErrUnstable)
	assert.ErrorIs(t, reported, loom.ErrUnstable)
}
