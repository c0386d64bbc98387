package sched

import (
	"github.com/loom-ui/loom/pkg/loom"
	"github.com/loom-ui/loom/pkg/vtree"
)

// Scope is the render context handed to a component function. It carries
// the signal graph and the props for this render, and collects the
// callbacks the render registers. A Scope is only valid for the duration
// of one render.
type Scope struct {
	g        *loom.Graph
	fiber    *Fiber
	props    vtree.Props
	mounts   []func()
	cleanups []func()
}

var _ vtree.RenderContext = (*Scope)(nil)

// Graph returns the loop's signal graph. Signals and memos created through
// it inside a render resolve by hook slot, so a component keeps its state
// across re-renders.
func (sc *Scope) Graph() *loom.Graph { return sc.g }

// Props returns the props for this render.
func (sc *Scope) Props() vtree.Props { return sc.props }

// Fiber returns the id of the fiber being rendered.
func (sc *Scope) Fiber() FiberID { return sc.fiber.id }

// OnMount registers fn to run after this fiber's first commit, once its
// subtree is live on the surface. Renders after the first ignore it.
func OnMount(rc vtree.RenderContext, fn func()) {
	sc := mustScope(rc)
	if sc.fiber.mounted || fn == nil {
		return
	}
	sc.mounts = append(sc.mounts, fn)
}

// OnCleanup registers fn to run when the fiber unmounts. Each committed
// render replaces the previous render's set, so register it on every
// render rather than guarding it.
func OnCleanup(rc vtree.RenderContext, fn func()) {
	sc := mustScope(rc)
	if fn == nil {
		return
	}
	sc.cleanups = append(sc.cleanups, fn)
}

func mustScope(rc vtree.RenderContext) *Scope {
	sc, ok := rc.(*Scope)
	if !ok {
		panic("sched: render context does not belong to a Loop")
	}
	return sc
}
