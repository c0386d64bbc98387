package sched

import (
	"sync/atomic"
	"time"

	"github.com/loom-ui/loom/pkg/loom"
	"github.com/loom-ui/loom/pkg/vtree"
)

// pass is one render pass in flight. Between slices it is the parked
// continuation: pending holds the fibers still to render, results what has
// been rendered but not committed. Everything except stale and rendered is
// touched only by the loop goroutine.
type pass struct {
	root    FiberID
	prio    Priority
	started time.Time

	pending    []FiberID
	pendingSet map[FiberID]struct{}

	// rendered is read by Invalidate from writer goroutines; the loop
	// lock guards it.
	rendered map[FiberID]struct{}

	order    []FiberID
	results  map[FiberID]*unitResult
	created  []FiberID
	unmounts []FiberID

	// stagedProps holds props a parent rendered for its children this
	// pass. Fibers keep their committed props until the pass lands, so a
	// discarded pass leaves nothing behind.
	stagedProps map[FiberID]vtree.Props

	stale  atomic.Bool
	yields int
}

func newPass(root FiberID, prio Priority, now time.Time) *pass {
	p := &pass{
		root:        root,
		prio:        prio,
		started:     now,
		pendingSet:  make(map[FiberID]struct{}),
		rendered:    make(map[FiberID]struct{}),
		results:     make(map[FiberID]*unitResult),
		stagedProps: make(map[FiberID]vtree.Props),
	}
	p.enqueue(root)
	return p
}

func (p *pass) enqueue(id FiberID) {
	if _, ok := p.pendingSet[id]; ok {
		return
	}
	p.pending = append(p.pending, id)
	p.pendingSet[id] = struct{}{}
}

func (p *pass) next() (FiberID, bool) {
	if len(p.pending) == 0 {
		return 0, false
	}
	id := p.pending[0]
	p.pending = p.pending[1:]
	delete(p.pendingSet, id)
	return id, true
}

// unitResult is the staged outcome of rendering one fiber. Nothing in it
// touches the fiber until commit, so a discarded pass drops these
// wholesale and the committed state stands.
type unitResult struct {
	tree       *vtree.VNode
	props      vtree.Props
	patches    []vtree.Patch
	mounts     []func()
	cleanups   []func()
	children   map[vtree.NodeID]FiberID
	childOrder []FiberID
	depth      int
}

// runUnit renders one fiber, diffs against its committed tree, and stages
// the result on the pass. This is the bounded unit the budget check runs
// between. A returned error is an evaluation failure and aborts the pass.
func (l *Loop) runUnit(p *pass, f *Fiber) error {
	epoch := f.epoch.Load()

	props := f.props
	if staged, ok := p.stagedProps[f.id]; ok {
		props = staged
	}
	sc := &Scope{g: l.graph, fiber: f, props: props}
	var tree *vtree.VNode
	err := l.graph.Evaluate(f, func() {
		l.graph.WithOwner(f.owner, func() {
			f.owner.BeginRender()
			defer f.owner.EndRender()
			tree = f.comp.Render(sc)
		})
	})
	if err != nil {
		return err
	}
	if tree == nil {
		tree = &vtree.VNode{Kind: vtree.KindFragment}
	}
	vtree.AssignIDs(tree, l.alloc)

	res := &unitResult{
		tree:     tree,
		props:    props,
		mounts:   sc.mounts,
		cleanups: sc.cleanups,
		children: make(map[vtree.NodeID]FiberID),
		depth:    f.depth,
	}
	if f.committed == nil {
		// First render: the whole subtree mounts under the fiber's host
		// slot in one insert.
		res.patches = []vtree.Patch{{Op: vtree.OpInsert, Parent: f.host, Index: 0, Tree: tree}}
	} else {
		res.patches = vtree.Diff(f.committed, tree)
	}

	l.bindChildren(p, f, tree, res)

	l.mu.Lock()
	p.order = append(p.order, f.id)
	p.results[f.id] = res
	p.rendered[f.id] = struct{}{}
	l.mu.Unlock()

	// A write that landed while this unit rendered makes the staged tree
	// stale even though Invalidate could not see the fiber as rendered
	// yet.
	if f.epoch.Load() != epoch {
		p.stale.Store(true)
	}
	return nil
}

// bindChildren reconciles the placeholders in a freshly rendered tree
// against the fiber's mounted children. Matched placeholders carry their
// committed id, so lookup is by node id: surviving children get new props
// and re-render only when those changed, fresh placeholders mount new
// fibers, and vanished ones queue their subtree for unmount at commit.
func (l *Loop) bindChildren(p *pass, f *Fiber, tree *vtree.VNode, res *unitResult) {
	vtree.Walk(tree, func(n *vtree.VNode) {
		if n.Kind != vtree.KindComponent || n.Comp == nil {
			return
		}
		if childID, ok := f.childByNode[n.ID]; ok {
			if child := l.fiber(childID); child != nil {
				res.children[n.ID] = childID
				res.childOrder = append(res.childOrder, childID)
				if !vtree.PropsEqual(child.props, n.Props) {
					p.stagedProps[childID] = n.Props
					p.enqueue(childID)
				}
				return
			}
		}
		child := l.mountChild(f, n)
		res.children[n.ID] = child.id
		res.childOrder = append(res.childOrder, child.id)
		p.created = append(p.created, child.id)
		p.enqueue(child.id)
	})

	for nodeID, childID := range f.childByNode {
		if _, still := res.children[nodeID]; !still {
			p.unmounts = append(p.unmounts, childID)
		}
	}
}

// mountChild allocates a fiber for a new placeholder. The first render is
// queued by the caller; until it commits the fiber has no committed tree.
func (l *Loop) mountChild(parent *Fiber, ph *vtree.VNode) *Fiber {
	l.mu.Lock()
	f := l.arena.alloc()
	f.loop = l
	f.compID = l.graph.AllocateID()
	f.comp = ph.Comp
	f.props = ph.Props
	f.parent = parent.id
	f.depth = parent.depth + 1
	f.basePrio = parent.basePrio
	f.host = ph.ID
	f.owner = loom.NewOwner(l.graph)
	f.childByNode = make(map[vtree.NodeID]FiberID)
	l.mu.Unlock()
	l.graph.Register(f)
	return f
}

// teardownCreated destroys the fibers a discarded or failed pass mounted.
// They never committed, so only their graph registration and primitives
// exist.
func (l *Loop) teardownCreated(p *pass) {
	for i := len(p.created) - 1; i >= 0; i-- {
		id := p.created[i]
		l.mu.Lock()
		f := l.arena.get(id)
		if f != nil {
			f.alive = false
			l.queue.remove(id)
			l.arena.release(id)
		}
		l.mu.Unlock()
		if f != nil {
			l.graph.Unregister(f.compID)
			f.owner.Dispose()
		}
	}
	p.created = nil
}
