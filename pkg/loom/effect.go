package loom

import "sync/atomic"

// Effect is a leaf computation that runs for its side effects. The function
// may return a Cleanup, which runs before the next execution and on dispose.
//
// Effects never run synchronously inside propagation: a dirty effect is
// queued (and an attached scheduler notified) and executes at the next flush
// point. Standalone graphs flush automatically after each write.
type Effect struct {
	g  *Graph
	id uint64
	fn func() Cleanup

	cleanup  Cleanup
	pending  atomic.Bool
	disposed atomic.Bool
}

// NewEffect creates an effect in g and runs it once immediately to collect
// its initial dependencies. If an ownership scope is active, the effect is
// disposed with that scope.
func NewEffect(g *Graph, fn func() Cleanup) *Effect {
	if o := g.currentOwner(); o != nil {
		if prior, ok := ownerSlot[*Effect](o); ok {
			return prior
		}
	}
	e := &Effect{
		g:  g,
		id: g.newID(),
		fn: fn,
	}
	g.registerComp(e)
	if o := g.currentOwner(); o != nil {
		storeOwnerSlot(o, e)
		o.onDispose(e.Dispose)
	}
	_ = e.run()
	return e
}

// ID returns the effect's graph-unique id.
func (e *Effect) ID() uint64 { return e.id }

// MarkDirty queues the effect for its next run. Repeated marks before that
// run coalesce.
func (e *Effect) MarkDirty() {
	if e.disposed.Load() {
		return
	}
	if e.pending.CompareAndSwap(false, true) {
		e.g.scheduleEffect(e)
	}
}

// run executes the effect under tracking: prior cleanup first, then fn,
// re-recording dependencies. Returns the evaluation error, if any.
func (e *Effect) run() error {
	if e.disposed.Load() {
		return nil
	}
	e.pending.Store(false)

	if e.cleanup != nil {
		c := e.cleanup
		e.cleanup = nil
		c()
	}

	var next Cleanup
	if err := e.g.Evaluate(e, func() { next = e.fn() }); err != nil {
		return err
	}
	e.cleanup = next
	return nil
}

// Dispose runs the pending cleanup and removes the effect from the graph.
// Subsequent marks are ignored.
func (e *Effect) Dispose() {
	if !e.disposed.CompareAndSwap(false, true) {
		return
	}
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
	e.g.dropComp(e.id)
}
