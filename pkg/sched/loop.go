package sched

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loom-ui/loom/pkg/loom"
	"github.com/loom-ui/loom/pkg/vtree"
)

const (
	defaultFrameBudget = 5 * time.Millisecond
	defaultInboxSize   = 256

	// maxStaleRestarts caps consecutive stale discards of one root. A
	// render that invalidates its own inputs would otherwise rerun
	// forever.
	maxStaleRestarts = 100
)

type dispatchEntry struct {
	fn   func()
	prio Priority
}

// Loop drives rendering for one surface. It owns a signal graph, a fiber
// arena and a priority queue, and is the sole writer of fiber and
// committed-tree state. Work arrives from any goroutine via Schedule,
// Invalidate and Dispatch; the loop consumes it either on its Run
// goroutine or through synchronous FlushSync stepping.
type Loop struct {
	graph    *loom.Graph
	renderer Renderer
	obs      Observer
	alloc    *vtree.IDAllocator

	frameBudget time.Duration
	aging       time.Duration
	now         func() time.Time
	onError     func(error)

	mu       sync.Mutex
	arena    arena
	queue    *runQueue
	wip      *pass
	roots    []FiberID
	override *Priority
	discards map[FiberID]int
	lastErr  error

	dispatchCh chan dispatchEntry
	wake       chan struct{}

	commitSeq      atomic.Uint64
	degraded       atomic.Bool
	effectsPending atomic.Bool
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithFrameBudget sets how long one render slice may run before the pass
// yields. Immediate passes ignore it.
func WithFrameBudget(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.frameBudget = d
		}
	}
}

// WithAging promotes queued work that waited longer than d by one priority
// level per interval, up to UserBlocking. The default of zero keeps strict
// priority order and accepts that Idle work can starve under load.
func WithAging(d time.Duration) LoopOption {
	return func(l *Loop) { l.aging = d }
}

// WithObserver installs a telemetry observer.
func WithObserver(o Observer) LoopOption {
	return func(l *Loop) {
		if o != nil {
			l.obs = o
		}
	}
}

// WithOnError installs a callback for surfaced errors: renderer failures,
// dependency cycles, callback panics. Errors are also retained for
// LastError regardless.
func WithOnError(fn func(error)) LoopOption {
	return func(l *Loop) { l.onError = fn }
}

// WithClock substitutes the time source. For tests.
func WithClock(now func() time.Time) LoopOption {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLoop creates a render loop over its own signal graph, committing to r.
func NewLoop(r Renderer, opts ...LoopOption) *Loop {
	l := &Loop{
		renderer:    r,
		obs:         NopObserver{},
		alloc:       vtree.NewIDAllocator(),
		frameBudget: defaultFrameBudget,
		now:         time.Now,
		discards:    make(map[FiberID]int),
		dispatchCh:  make(chan dispatchEntry, defaultInboxSize),
		wake:        make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(l)
	}
	l.queue = newRunQueue(l.aging)
	l.graph = loom.New(loom.WithEffectScheduler(func(*loom.Effect) {
		l.effectsPending.Store(true)
		l.poke()
	}))
	return l
}

// Graph returns the loop's signal graph.
func (l *Loop) Graph() *loom.Graph { return l.graph }

// Mount adds a root component and schedules its first render at Immediate
// priority. Call it before Run starts or from a dispatched function.
func (l *Loop) Mount(comp vtree.Component, props vtree.Props) FiberID {
	l.mu.Lock()
	f := l.arena.alloc()
	f.loop = l
	f.compID = l.graph.AllocateID()
	f.comp = comp
	f.props = props
	f.basePrio = Normal
	f.owner = loom.NewOwner(l.graph)
	f.childByNode = make(map[vtree.NodeID]FiberID)
	l.roots = append(l.roots, f.id)
	l.mu.Unlock()
	l.graph.Register(f)
	l.Schedule(f.id, Immediate)
	return f.id
}

// Schedule enqueues a render for fiber at the given priority, coalescing
// with any pending request: the more urgent of the two wins.
func (l *Loop) Schedule(id FiberID, prio Priority) {
	if !prio.valid() {
		prio = Normal
	}
	now := l.now()
	l.mu.Lock()
	if l.arena.get(id) == nil {
		l.mu.Unlock()
		return
	}
	changed := l.queue.push(id, prio, now)
	depth := l.queue.depth(prio)
	l.mu.Unlock()
	if changed {
		l.obs.QueueDepth(prio, depth)
		l.poke()
	}
}

// Invalidate enqueues a re-render after a signal the fiber read changed.
// The request lands at the fiber's base priority unless it arrives inside
// a more urgent dispatch. If the fiber already rendered in the pass in
// flight, that pass is now stale and will be discarded.
func (l *Loop) Invalidate(id FiberID) {
	now := l.now()
	l.mu.Lock()
	f := l.arena.get(id)
	if f == nil {
		l.mu.Unlock()
		return
	}
	prio := f.basePrio
	if l.override != nil && *l.override < prio {
		prio = *l.override
	}
	if p := l.wip; p != nil {
		if _, done := p.rendered[id]; done {
			p.stale.Store(true)
		}
	}
	changed := l.queue.push(id, prio, now)
	depth := l.queue.depth(prio)
	l.mu.Unlock()
	if changed {
		l.obs.QueueDepth(prio, depth)
		l.poke()
	}
}

// Dispatch queues fn to run on the loop goroutine at UserBlocking urgency.
// Event handlers land here: fn may read and write signals freely, and runs
// inside a batch so a handler writing several signals triggers one wave.
func (l *Loop) Dispatch(fn func()) error {
	return l.DispatchAt(UserBlocking, fn)
}

// DispatchAt queues fn with an explicit urgency. Invalidations caused by
// writes inside fn enqueue at prio when that is more urgent than the
// target fiber's own priority.
func (l *Loop) DispatchAt(prio Priority, fn func()) error {
	select {
	case l.dispatchCh <- dispatchEntry{fn: fn, prio: prio}:
		return nil
	default:
		return ErrInboxFull
	}
}

// DispatchSync runs fn on the caller's goroutine and drains all resulting
// work before returning. This is the drive mode for tests and server-side
// rendering; never call it while Run is active.
func (l *Loop) DispatchSync(fn func()) {
	l.runDispatch(dispatchEntry{fn: fn, prio: UserBlocking})
	l.FlushSync()
}

// Run drives the loop until ctx is done. The Run goroutine is the only one
// that renders and commits; between render slices it polls the inbox so
// input stays responsive while long low-priority work yields.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d := <-l.dispatchCh:
			l.runDispatch(d)
		case <-l.wake:
		}
		for l.step(l.frameBudget) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case d := <-l.dispatchCh:
				l.runDispatch(d)
			default:
			}
		}
	}
}

// FlushSync drains every queued pass and pending effect synchronously,
// ignoring the frame budget. Preemption and staleness still apply; the
// loop just never parks between slices.
func (l *Loop) FlushSync() {
	for l.step(0) {
	}
}

// step advances the loop by one slice: start or resume the most urgent
// pass, render units until it finishes, yields, goes stale or is
// preempted, and commit completed passes. A budget of zero disables the
// deadline. Returns true when progress was made and more work may remain.
func (l *Loop) step(budget time.Duration) bool {
	if l.degraded.Load() {
		return false
	}

	l.mu.Lock()
	p := l.wip
	if p == nil {
		id, prio, ok := l.queue.pop(l.now())
		if !ok {
			l.mu.Unlock()
			l.flushEffects()
			return false
		}
		if l.arena.get(id) == nil {
			l.mu.Unlock()
			return true
		}
		p = newPass(id, prio, l.now())
		l.wip = p
		l.mu.Unlock()
		l.obs.PassStarted(id, prio)
	} else {
		urgent, any := l.queue.peekUrgency()
		l.mu.Unlock()
		if any && urgent < p.prio {
			l.discard(p, DiscardPreempted)
			return true
		}
	}

	var deadline time.Time
	if budget > 0 && p.prio != Immediate {
		deadline = l.now().Add(budget)
	}

	for {
		if p.stale.Load() {
			l.discard(p, DiscardStale)
			return true
		}
		l.mu.Lock()
		urgent, any := l.queue.peekUrgency()
		l.mu.Unlock()
		if any && urgent < p.prio {
			l.discard(p, DiscardPreempted)
			return true
		}

		id, ok := p.next()
		if !ok {
			break
		}
		f := l.fiber(id)
		if f == nil {
			continue
		}
		if err := l.runUnit(p, f); err != nil {
			l.abort(p, err)
			return true
		}

		if !deadline.IsZero() && !l.now().Before(deadline) && len(p.pending) > 0 {
			p.yields++
			l.obs.PassYielded(p.root, p.prio, len(p.pending))
			return true
		}
	}

	if p.stale.Load() {
		l.discard(p, DiscardStale)
		return true
	}
	l.finishPass(p)
	return true
}

// finishPass commits a completed pass and clears the continuation.
func (l *Loop) finishPass(p *pass) {
	err := l.commit(p)
	l.mu.Lock()
	l.wip = nil
	delete(l.discards, p.root)
	l.mu.Unlock()
	if err != nil {
		l.teardownCreated(p)
		l.surface(err)
		return
	}
	l.flushEffects()
}

// discard abandons a pass, tears down anything it mounted, and requeues
// its root so the work reruns from scratch. Committed state is untouched.
// Stale discards are capped per root; preemption requeues unconditionally.
func (l *Loop) discard(p *pass, reason DiscardReason) {
	l.obs.PassDiscarded(p.root, p.prio, reason)
	l.teardownCreated(p)

	l.mu.Lock()
	l.wip = nil
	requeue := l.arena.get(p.root) != nil
	if reason == DiscardStale && requeue {
		n := l.discards[p.root] + 1
		l.discards[p.root] = n
		if n > maxStaleRestarts {
			delete(l.discards, p.root)
			requeue = false
		}
	}
	if requeue {
		l.queue.push(p.root, p.prio, l.now())
	}
	l.mu.Unlock()

	if !requeue && reason == DiscardStale {
		l.surface(fmt.Errorf("sched: fiber %d went stale %d passes in a row, dropping its work", p.root, maxStaleRestarts))
	}
}

// abort drops a pass after an evaluation failure without requeueing it;
// rerunning a deterministic failure would fail the same way. The next
// invalidation schedules the fiber again.
func (l *Loop) abort(p *pass, err error) {
	l.obs.PassDiscarded(p.root, p.prio, DiscardFailed)
	l.teardownCreated(p)
	l.mu.Lock()
	l.wip = nil
	l.mu.Unlock()
	l.surface(err)
}

// runDispatch executes a dispatched function inside a signal batch, with
// the entry's urgency applied to the invalidations it causes.
func (l *Loop) runDispatch(d dispatchEntry) {
	defer func() {
		l.mu.Lock()
		l.override = nil
		l.mu.Unlock()
		if r := recover(); r != nil {
			l.surface(fmt.Errorf("sched: dispatch panic: %v\n%s", r, debug.Stack()))
		}
	}()
	l.mu.Lock()
	prio := d.prio
	l.override = &prio
	l.mu.Unlock()
	l.graph.Batch(d.fn)
}

// flushEffects runs signal-scheduled effects when any are pending. Effects
// run after commits and when the loop is otherwise idle.
func (l *Loop) flushEffects() {
	if !l.effectsPending.CompareAndSwap(true, false) {
		return
	}
	if err := l.graph.FlushEffects(); err != nil {
		l.surface(err)
	}
}

func (l *Loop) poke() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) fiber(id FiberID) *Fiber {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.arena.get(id)
}

// surface retains err for LastError and hands it to the error callback.
func (l *Loop) surface(err error) {
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
	if l.onError != nil {
		l.onError(err)
	}
}

// LastError returns the most recently surfaced error.
func (l *Loop) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Degraded reports whether a renderer failure has broken the surface. A
// degraded loop stops rendering until Remount.
func (l *Loop) Degraded() bool {
	return l.degraded.Load()
}

// Roots returns the mounted root fibers in mount order.
func (l *Loop) Roots() []FiberID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]FiberID(nil), l.roots...)
}

// Snapshot returns the committed tree for a fiber, or nil before its first
// commit. Committed trees are never mutated, so the result is safe to read
// from any goroutine.
func (l *Loop) Snapshot(id FiberID) *vtree.VNode {
	l.mu.Lock()
	defer l.mu.Unlock()
	if f := l.arena.get(id); f != nil {
		return f.committed
	}
	return nil
}

// LoopStats is a point-in-time summary for health endpoints.
type LoopStats struct {
	Fibers   int    `json:"fibers"`
	Queued   int    `json:"queued"`
	Commits  uint64 `json:"commits"`
	Degraded bool   `json:"degraded"`
}

// Stats returns current loop counters.
func (l *Loop) Stats() LoopStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LoopStats{
		Fibers:   l.arena.live,
		Queued:   len(l.queue.byFiber),
		Commits:  l.commitSeq.Load(),
		Degraded: l.degraded.Load(),
	}
}
