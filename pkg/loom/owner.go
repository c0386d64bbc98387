package loom

import "sync"

// Owner is an ownership scope for reactive primitives. Signals, memos, and
// effects created while a scope is active are disposed with it; scopes nest,
// and disposing a parent disposes its children first (reverse creation
// order), then runs the scope's own cleanups in reverse registration order.
//
// During a render (between BeginRender and EndRender) the scope also acts as
// a hook-slot table: the Nth primitive created in the Nth position gets the
// same identity on every re-render, which is what lets component-local state
// survive across passes.
type Owner struct {
	g      *Graph
	parent *Owner

	mu       sync.Mutex
	children []*Owner
	cleanups []Cleanup
	disposed bool

	slots    []any
	cursor   int
	inRender bool
}

// NewOwner creates a scope in g, attached under the currently active scope
// if one exists.
func NewOwner(g *Graph) *Owner {
	o := &Owner{g: g}
	if parent := g.currentOwner(); parent != nil {
		o.parent = parent
		parent.mu.Lock()
		parent.children = append(parent.children, o)
		parent.mu.Unlock()
	}
	return o
}

// WithOwner runs fn with o as the active ownership scope.
func (g *Graph) WithOwner(o *Owner, fn func()) {
	g.mu.Lock()
	prev := g.owner
	g.owner = o
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.owner = prev
		g.mu.Unlock()
	}()
	fn()
}

// currentOwner returns the active ownership scope, if any.
func (g *Graph) currentOwner() *Owner {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner
}

// OnCleanup registers fn to run when the scope is disposed. Cleanups run in
// reverse registration order, after child scopes are gone.
func (o *Owner) OnCleanup(fn Cleanup) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.disposed {
		fn()
		return
	}
	o.cleanups = append(o.cleanups, fn)
}

// onDispose is OnCleanup for internal registration of primitive disposal.
func (o *Owner) onDispose(fn Cleanup) { o.OnCleanup(fn) }

// Disposed reports whether the scope has been disposed.
func (o *Owner) Disposed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.disposed
}

// Dispose tears down the scope: children in reverse creation order first,
// then this scope's cleanups in reverse registration order. Idempotent.
func (o *Owner) Dispose() {
	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		return
	}
	o.disposed = true
	children := o.children
	cleanups := o.cleanups
	o.children = nil
	o.cleanups = nil
	o.slots = nil
	o.mu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	if o.parent != nil {
		o.parent.detach(o)
	}
}

// detach removes a disposed child from the scope.
func (o *Owner) detach(child *Owner) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

// BeginRender resets the hook-slot cursor for a fresh render of the scope's
// component. Calls to NewSignal/NewMemo/NewEffect between BeginRender and
// EndRender resolve to the slot at their call position.
func (o *Owner) BeginRender() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cursor = 0
	o.inRender = true
}

// EndRender closes the render opened by BeginRender.
func (o *Owner) EndRender() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inRender = false
}

// ownerSlot returns the primitive stored at the scope's current hook slot
// when present and of the expected type, advancing the cursor. Outside a
// render it always misses.
func ownerSlot[T any](o *Owner) (T, bool) {
	var zero T
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.inRender || o.disposed {
		return zero, false
	}
	if o.cursor < len(o.slots) {
		if v, ok := o.slots[o.cursor].(T); ok {
			o.cursor++
			return v, true
		}
	}
	return zero, false
}

// storeOwnerSlot records a newly created primitive at the current hook slot
// and advances the cursor. Outside a render it is a no-op; such primitives
// are plain scope members without positional identity.
func storeOwnerSlot[T any](o *Owner, v T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.inRender || o.disposed {
		return
	}
	if o.cursor < len(o.slots) {
		o.slots[o.cursor] = v
	} else {
		o.slots = append(o.slots, v)
	}
	o.cursor++
}
