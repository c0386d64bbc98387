package loom_test

import (
	"testing"

	"github.com/loom-ui/loom/pkg/loom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// batched writes apply in program order; dependents observe only the last
func TestBatchObservesFinalValueOnly(t *testing.T) {
	g := loom.New()
	s := loom.NewSignal(g, 0)

	var observed []int
	loom.NewEffect(g, func() loom.Cleanup {
		observed = append(observed, s.Get())
		return nil
	})
	require.Equal(t, []int{0}, observed)

	g.Batch(func() {
		s.Set(1)
		assert.Equal(t, 1, s.Peek(), "writes land immediately inside the batch")
		s.Set(2)
	})
	assert.Equal(t, []int{0, 2}, observed, "1 must never be observed")
}

// a leaf effect recomputes exactly once per batch however many sources changed
func TestBatchDistinctDirtySet(t *testing.T) {
	g := loom.New()
	a := loom.NewSignal(g, 0)
	b := loom.NewSignal(g, 0)
	c := loom.NewSignal(g, 0)
	sum := loom.NewMemo(g, func() int { return a.Get() + b.Get() + c.Get() })

	runs := 0
	loom.NewEffect(g, func() loom.Cleanup {
		sum.Get()
		runs++
		return nil
	})
	require.Equal(t, 1, runs)

	g.Batch(func() {
		a.Set(1)
		b.Set(2)
		c.Set(3)
		a.Set(4)
	})
	assert.Equal(t, 2, runs, "one flush for the whole batch")
	assert.Equal(t, 9, sum.Peek())
}

// nested batches defer propagation until the outermost one closes
func TestBatchNesting(t *testing.T) {
	g := loom.New()
	s := loom.NewSignal(g, 0)
	runs := 0
	loom.NewEffect(g, func() loom.Cleanup {
		s.Get()
		runs++
		return nil
	})

	g.Batch(func() {
		s.Set(1)
		g.Batch(func() {
			s.Set(2)
		})
		assert.Equal(t, 1, runs, "inner close must not flush")
		s.Set(3)
	})
	assert.Equal(t, 2, runs)
	assert.Equal(t, 3, s.Peek())
}
