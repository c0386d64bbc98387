package loom

import (
	"sync"
	"sync/atomic"
)

// Memo is a lazily cached derived value. Invalidation is pushed eagerly when
// a tracked source changes, but recomputation only happens on the next read.
// A memo is both a computation (it reads sources) and a source (other
// computations may read it), so chains of memos invalidate transitively
// without eager recomputation.
type Memo[T any] struct {
	g  *Graph
	id uint64
	fn func() T

	mu    sync.RWMutex
	value T

	// valid is false while the cached value is stale.
	valid atomic.Bool
}

// NewMemo creates a lazy memo in g. fn is not run until the first read. If
// an ownership scope is active, the memo is disposed with that scope.
func NewMemo[T any](g *Graph, fn func() T) *Memo[T] {
	if o := g.currentOwner(); o != nil {
		if prior, ok := ownerSlot[*Memo[T]](o); ok {
			return prior
		}
	}
	m := &Memo[T]{
		g:  g,
		id: g.newID(),
		fn: fn,
	}
	g.registerSource(m.id)
	g.registerComp(m)
	if o := g.currentOwner(); o != nil {
		storeOwnerSlot(o, m)
		o.onDispose(m.dispose)
	}
	return m
}

// ID returns the memo's graph-unique id.
func (m *Memo[T]) ID() uint64 { return m.id }

// MarkDirty invalidates the cached value and pushes staleness to the memo's
// own dependents. The recomputation itself stays lazy.
func (m *Memo[T]) MarkDirty() {
	if m.valid.CompareAndSwap(true, false) {
		m.g.fanOut(m.id)
	}
}

// Get returns the memo's value, recomputing it first if stale, and registers
// a dependency for the computation evaluating on this goroutine.
//
// Reading a memo that is itself mid-evaluation is a dependency cycle: the
// enclosing evaluation is aborted with a *CycleError. At top level the error
// goes to the graph's OnError handler and the previous cached value is
// returned; use TryGet for an explicit error.
func (m *Memo[T]) Get() T {
	m.checkReentry()
	if !m.valid.Load() {
		_ = m.recompute()
	}
	m.g.trackRead(m.id)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value
}

// TryGet is Get with the recomputation error made explicit.
func (m *Memo[T]) TryGet() (T, error) {
	m.checkReentry()
	var err error
	if !m.valid.Load() {
		err = m.recompute()
	}
	m.g.trackRead(m.id)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value, err
}

// Peek returns the value, recomputing if stale, without registering a
// dependency.
func (m *Memo[T]) Peek() T {
	m.checkReentry()
	if !m.valid.Load() {
		_ = m.recompute()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value
}

// checkReentry panics with the dependency cycle if this memo is already on
// the evaluation stack. The panic unwinds to the outermost Evaluate, which
// converts it to an error; a reentrant read always has such a boundary.
func (m *Memo[T]) checkReentry() {
	if m.g.evaluating(m.id) {
		panic(&CycleError{Path: m.g.cyclePath(m.id)})
	}
}

// Version returns the memo's version counter; it advances only when a
// recomputation produced a different value.
func (m *Memo[T]) Version() uint64 { return m.g.Version(m.id) }

// recompute re-evaluates fn under tracking. A cycle surfacing from nested
// reads propagates out of Evaluate as a panic when this evaluation is
// itself nested, and as an error at top level.
func (m *Memo[T]) recompute() error {
	// Mark valid before running so a concurrent write during the run
	// re-invalidates instead of being lost.
	m.valid.Store(true)
	completed := false
	defer func() {
		if !completed {
			m.valid.Store(false)
		}
	}()

	var next T
	if err := m.g.Evaluate(m, func() { next = m.fn() }); err != nil {
		return err
	}
	completed = true

	m.mu.Lock()
	changed := !defaultEquals(m.value, next)
	if changed {
		m.value = next
	}
	m.mu.Unlock()
	if changed {
		m.g.bumpVersion(m.id)
	}
	return nil
}

// dispose removes the memo from the graph.
func (m *Memo[T]) dispose() {
	m.g.dropComp(m.id)
	m.g.dropSource(m.id)
}
