package loom_test

import (
	"testing"

	"github.com/loom-ui/loom/pkg/loom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// disposing a scope runs cleanups in reverse order, children first
func TestOwnerDisposalOrder(t *testing.T) {
	g := loom.New()
	var trace []string

	parent := loom.NewOwner(g)
	g.WithOwner(parent, func() {
		parent.OnCleanup(func() { trace = append(trace, "parent-1") })

		child := loom.NewOwner(g)
		g.WithOwner(child, func() {
			child.OnCleanup(func() { trace = append(trace, "child-1") })
			child.OnCleanup(func() { trace = append(trace, "child-2") })
		})

		parent.OnCleanup(func() { trace = append(trace, "parent-2") })
	})

	parent.Dispose()
	assert.Equal(t, []string{"child-2", "child-1", "parent-2", "parent-1"}, trace)
	assert.True(t, parent.Disposed())

	parent.Dispose() // idempotent
	assert.Len(t, trace, 4)
}

// primitives created in a scope die with it
func TestOwnerDisposesPrimitives(t *testing.T) {
	g := loom.New()
	s := loom.NewSignal(g, 0)

	runs := 0
	o := loom.NewOwner(g)
	g.WithOwner(o, func() {
		loom.NewEffect(g, func() loom.Cleanup {
			s.Get()
			runs++
			return nil
		})
	})
	require.Equal(t, 1, runs)

	s.Set(1)
	require.Equal(t, 2, runs)

	o.Dispose()
	s.Set(2)
	assert.Equal(t, 2, runs, "disposed scope must not react")
	require.NoError(t, g.Verify())
}

// hook slots give primitives stable identity across re-renders
func TestOwnerHookSlots(t *testing.T) {
	g := loom.New()
	o := loom.NewOwner(g)

	render := func(initial int) (count *loom.Signal[int], label *loom.Signal[string]) {
		o.BeginRender()
		defer o.EndRender()
		g.WithOwner(o, func() {
			count = loom.NewSignal(g, initial)
			label = loom.NewSignal(g, "x")
		})
		return count, label
	}

	c1, l1 := render(1)
	c1.Set(41)

	c2, l2 := render(999)
	assert.Same(t, c1, c2, "same slot, same signal")
	assert.Same(t, l1, l2)
	assert.Equal(t, 41, c2.Get(), "re-render must not reset state")

	// Cleanup registrations accumulate once per primitive, so disposal
	// after many renders still tears down exactly the live handles.
	o.Dispose()
	assert.True(t, o.Disposed())
}

// registering a cleanup on a disposed scope runs it immediately
func TestOwnerLateCleanup(t *testing.T) {
	g := loom.New()
	o := loom.NewOwner(g)
	o.Dispose()

	ran := false
	o.OnCleanup(func() { ran = true })
	assert.True(t, ran)
}
