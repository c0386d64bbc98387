package sched

import (
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/loom-ui/loom/pkg/vtree"
)

// commit applies a completed pass. Patches go to the renderer first,
// sorted stably by op rank so prop updates land before removals, removals
// before replaces, replaces before moves, and moves before inserts; within
// a rank, emission order holds. Then the staged trees become the committed
// trees, and finally post-commit callbacks run: cleanups of unmounted
// subtrees parent-before-child, mount callbacks child-before-parent.
//
// A renderer error abandons the remaining patches, leaves the committed
// state untouched, and degrades the surface.
func (l *Loop) commit(p *pass) error {
	start := l.now()

	var batch []vtree.Patch
	for _, id := range p.order {
		batch = append(batch, p.results[id].patches...)
	}
	sort.SliceStable(batch, func(i, j int) bool { return batch[i].Op < batch[j].Op })

	// The sequence number is only consumed once the renderer hears it in
	// Commit. An Apply failure abandons the batch before that, so the
	// next successful commit reuses the number and the renderer sees a
	// contiguous sequence.
	emitted := len(batch) > 0
	var seq uint64
	if emitted {
		seq = l.commitSeq.Load() + 1
		for _, patch := range batch {
			if err := l.renderer.Apply(patch); err != nil {
				l.degraded.Store(true)
				return &PatchError{Seq: seq, Patch: patch, Err: err}
			}
		}
		l.commitSeq.Store(seq)
		if err := l.renderer.Commit(seq); err != nil {
			l.degraded.Store(true)
			return &PatchError{Seq: seq, Err: err}
		}
	}

	// The point of no return: staged trees swap in and the previous
	// committed trees are released.
	l.mu.Lock()
	for _, id := range p.order {
		f := l.arena.get(id)
		if f == nil {
			continue
		}
		res := p.results[id]
		f.committed = res.tree
		f.props = res.props
		f.childByNode = res.children
		f.children = res.childOrder
		f.cleanups = res.cleanups
	}
	l.mu.Unlock()

	for _, id := range p.unmounts {
		l.unmountSubtree(id)
	}
	l.runMounts(p)

	if emitted {
		l.obs.CommitApplied(seq, len(batch), l.now().Sub(start))
	}
	return nil
}

// runMounts fires mount callbacks for fibers that committed their first
// render, deepest first, so a child observes its own mount before its
// parent does. Fibers at equal depth keep render order.
func (l *Loop) runMounts(p *pass) {
	type mountSet struct {
		depth int
		fns   []func()
	}
	var pending []mountSet

	l.mu.Lock()
	for _, id := range p.order {
		f := l.arena.get(id)
		if f == nil || f.mounted {
			continue
		}
		f.mounted = true
		if res := p.results[id]; len(res.mounts) > 0 {
			pending = append(pending, mountSet{depth: res.depth, fns: res.mounts})
		}
	}
	l.mu.Unlock()

	sort.SliceStable(pending, func(i, j int) bool { return pending[i].depth > pending[j].depth })
	for _, ms := range pending {
		for _, fn := range ms.fns {
			l.runCallback("mount", fn)
		}
	}
}

// unmountSubtree tears down a fiber and everything below it. Cleanup
// callbacks run parent before child; each fiber's reactive primitives are
// disposed right after its own callbacks. No patches are emitted here, the
// renderer already dropped the subtree with its containing node.
func (l *Loop) unmountSubtree(id FiberID) {
	l.mu.Lock()
	f := l.arena.get(id)
	if f == nil {
		l.mu.Unlock()
		return
	}
	f.alive = false
	l.queue.remove(id)
	for i, r := range l.roots {
		if r == id {
			l.roots = append(l.roots[:i], l.roots[i+1:]...)
			break
		}
	}
	children := append([]FiberID(nil), f.children...)
	l.mu.Unlock()

	l.graph.Unregister(f.compID)
	for _, fn := range f.cleanups {
		l.runCallback("cleanup", fn)
	}
	f.owner.Dispose()

	for _, c := range children {
		l.unmountSubtree(c)
	}

	l.mu.Lock()
	l.arena.release(id)
	l.mu.Unlock()
}

// Unmount removes a mounted root and runs its teardown. For non-root
// fibers unmounting happens through reconciliation, not this.
func (l *Loop) Unmount(id FiberID) {
	l.mu.Lock()
	isRoot := false
	for _, r := range l.roots {
		if r == id {
			isRoot = true
			break
		}
	}
	f := l.arena.get(id)
	l.mu.Unlock()
	if !isRoot || f == nil {
		return
	}
	if root := f.committed; root != nil && root.ID != 0 {
		seq := l.commitSeq.Load() + 1
		rm := vtree.Patch{Op: vtree.OpRemove, Node: root.ID}
		if err := l.renderer.Apply(rm); err != nil {
			l.degraded.Store(true)
			l.surface(&PatchError{Seq: seq, Patch: rm, Err: err})
		} else {
			l.commitSeq.Store(seq)
			if err := l.renderer.Commit(seq); err != nil {
				l.degraded.Store(true)
				l.surface(&PatchError{Seq: seq, Err: err})
			}
		}
	}
	l.unmountSubtree(id)
}

// Remount tears down every root and mounts it afresh with the same
// component and props, recovering a degraded surface; the remounted passes
// re-emit their full trees. Call it from the loop goroutine, a dispatched
// function, or while the loop is idle.
func (l *Loop) Remount() {
	type rootSpec struct {
		comp  vtree.Component
		props vtree.Props
	}
	l.mu.Lock()
	roots := append([]FiberID(nil), l.roots...)
	l.mu.Unlock()

	var specs []rootSpec
	for _, id := range roots {
		f := l.fiber(id)
		if f == nil {
			continue
		}
		specs = append(specs, rootSpec{comp: f.comp, props: f.props})
		l.unmountSubtree(id)
	}

	l.degraded.Store(false)
	for _, s := range specs {
		l.Mount(s.comp, s.props)
	}
}

// runCallback runs a user mount or cleanup callback, turning a panic into
// a surfaced error instead of tearing down the loop.
func (l *Loop) runCallback(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.surface(fmt.Errorf("sched: %s callback panic: %v\n%s", kind, r, debug.Stack()))
		}
	}()
	fn()
}
