package sched

import (
	"sync/atomic"

	"github.com/loom-ui/loom/pkg/loom"
	"github.com/loom-ui/loom/pkg/vtree"
)

// FiberID identifies a fiber slot in the loop's arena. Zero is never a
// valid id.
type FiberID uint32

// Fiber is one mounted component instance: the schedulable render unit.
// The loop goroutine is the only writer of everything except epoch, which
// signal notifications bump from any goroutine.
type Fiber struct {
	id     FiberID
	compID uint64 // id in the signal graph
	loop   *Loop

	comp  vtree.Component
	props vtree.Props
	owner *loom.Owner

	parent   FiberID
	children []FiberID
	depth    int
	basePrio Priority

	// host is the placeholder node this fiber's tree lives under; zero
	// for the root fiber, whose tree lives in the host root slot.
	host vtree.NodeID

	// committed is the tree from the last commit, placeholders included.
	// Render passes diff against it and never mutate it.
	committed   *vtree.VNode
	childByNode map[vtree.NodeID]FiberID

	cleanups []func()
	mounted  bool
	alive    bool

	epoch atomic.Uint64
}

var _ loom.Computation = (*Fiber)(nil)

// ID returns the fiber's signal-graph id.
func (f *Fiber) ID() uint64 { return f.compID }

// MarkDirty is called by the signal graph when a tracked source changed.
// It runs on the writer's goroutine and only enqueues.
func (f *Fiber) MarkDirty() {
	f.epoch.Add(1)
	f.loop.Invalidate(f.id)
}

// Props returns the props the fiber last rendered with.
func (f *Fiber) Props() vtree.Props { return f.props }

// arena stores fibers in reusable slots addressed by FiberID. All access
// happens under the loop's lock.
type arena struct {
	slots []*Fiber
	free  []FiberID
	live  int
}

func (a *arena) alloc() *Fiber {
	var id FiberID
	if n := len(a.free); n > 0 {
		id = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, nil)
		id = FiberID(len(a.slots))
	}
	f := &Fiber{id: id, alive: true}
	a.slots[id-1] = f
	a.live++
	return f
}

func (a *arena) get(id FiberID) *Fiber {
	if id == 0 || int(id) > len(a.slots) {
		return nil
	}
	f := a.slots[id-1]
	if f == nil || !f.alive {
		return nil
	}
	return f
}

func (a *arena) release(id FiberID) {
	if id == 0 || int(id) > len(a.slots) {
		return
	}
	if a.slots[id-1] != nil {
		a.slots[id-1] = nil
		a.free = append(a.free, id)
		a.live--
	}
}
