package loom

// Computation is a unit of derived work that depends on sources: a memo, an
// effect, or an embedding runtime's render unit. When any tracked source
// changes, MarkDirty is invoked exactly once per propagation wave.
type Computation interface {
	// ID returns the graph-unique identifier for this computation.
	ID() uint64

	// MarkDirty notifies the computation that at least one of its tracked
	// sources changed. Implementations must be cheap and non-blocking;
	// heavy work is deferred to a scheduled run.
	MarkDirty()
}

// Cleanup is a function that releases resources from a prior effect run or
// ownership scope. A nil Cleanup is valid and means nothing to release.
type Cleanup func()

// AllocateID hands out a fresh graph-unique id for a computation owned by an
// embedding runtime. Signals, memos and effects allocate their own.
func (g *Graph) AllocateID() uint64 {
	return g.newID()
}

// Register adds an externally owned computation to the graph. Once
// registered, Evaluate records its source reads and writes to those sources
// reach its MarkDirty.
func (g *Graph) Register(c Computation) {
	g.registerComp(c)
}

// Unregister removes a computation and severs its edges. A notification
// already in flight may still deliver one final MarkDirty.
func (g *Graph) Unregister(id uint64) {
	g.dropComp(id)
}
