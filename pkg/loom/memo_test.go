package loom_test

import (
	"testing"

	"github.com/loom-ui/loom/pkg/loom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memos are lazy: they compute on read, not on write
func TestMemoLazyRecompute(t *testing.T) {
	g := loom.New()
	s := loom.NewSignal(g, 2)
	computes := 0
	m := loom.NewMemo(g, func() int {
		computes++
		return s.Get() * 2
	})

	assert.Equal(t, 0, computes, "creation must not compute")
	assert.Equal(t, 4, m.Get())
	assert.Equal(t, 1, computes)
	assert.Equal(t, 4, m.Get())
	assert.Equal(t, 1, computes, "clean memo must serve the cache")

	s.Set(5)
	assert.Equal(t, 1, computes, "write only invalidates")
	assert.Equal(t, 10, m.Get())
	assert.Equal(t, 2, computes)
}

// a memo chain invalidates transitively but recomputes on demand
func TestMemoChain(t *testing.T) {
	g := loom.New()
	s := loom.NewSignal(g, 1)
	m1 := loom.NewMemo(g, func() int { return s.Get() + 1 })
	m2 := loom.NewMemo(g, func() int { return m1.Get() * 10 })

	assert.Equal(t, 20, m2.Get())
	s.Set(4)
	assert.Equal(t, 50, m2.Get())
	require.NoError(t, g.Verify())
}

// memo versions advance only when the recomputed value differs
func TestMemoVersionOnChange(t *testing.T) {
	g := loom.New()
	s := loom.NewSignal(g, 3)
	positive := loom.NewMemo(g, func() bool { return s.Get() > 0 })

	assert.True(t, positive.Get())
	v := positive.Version()

	s.Set(7) // still positive
	assert.True(t, positive.Get())
	assert.Equal(t, v, positive.Version(), "same value, same version")

	s.Set(-1)
	assert.False(t, positive.Get())
	assert.Greater(t, positive.Version(), v)
}

// mutually recursive memos fail with a cycle error and keep prior state
func TestMemoCycleDetected(t *testing.T) {
	var cycleErr error
	g := loom.New(loom.WithOnError(func(err error) { cycleErr = err }))

	var a, b *loom.Memo[int]
	a = loom.NewMemo(g, func() int { return b.Get() + 1 })
	b = loom.NewMemo(g, func() int { return a.Get() + 1 })

	_, err := a.TryGet()
	require.Error(t, err)
	assert.ErrorIs(t, err, loom.ErrCycle)

	var ce *loom.CycleError
	require.ErrorAs(t, err, &ce)
	assert.GreaterOrEqual(t, len(ce.Path), 2)

	require.Error(t, cycleErr, "error handler must see the cycle too")
	assert.ErrorIs(t, cycleErr, loom.ErrCycle)
	require.NoError(t, g.Verify(), "aborted evaluation must leave edges symmetric")
}

// a cycle read inside an effect aborts that whole effect run
func TestCycleAbortsEnclosingEffect(t *testing.T) {
	var reported error
	g := loom.New(loom.WithOnError(func(err error) { reported = err }))

	var a, b *loom.Memo[int]
	a = loom.NewMemo(g, func() int { return b.Get() + 1 })
	b = loom.NewMemo(g, func() int { return a.Get() + 1 })

	var observed []int
	loom.NewEffect(g, func() loom.Cleanup {
		observed = append(observed, a.Get())
		return nil
	})

	assert.Empty(t, observed, "aborted run must not reach the append")
	assert.ErrorIs(t, reported, loom.ErrCycle)
}
