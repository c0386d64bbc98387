package loom

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
)

// maxFlushRounds bounds effect cascades inside one flush. An effect that
// keeps re-dirtying itself (directly or through signals it writes) would
// otherwise spin the flush loop forever.
const maxFlushRounds = 1000

// sourceRecord is the graph's view of one readable source (a signal or a
// memo): its version counter and the ids of computations depending on it.
type sourceRecord struct {
	version    uint64
	dependents mapset.Set[uint64]
}

// compRecord is the graph's view of one computation: the exact set of source
// ids read during its most recent evaluation.
type compRecord struct {
	comp    Computation
	sources mapset.Set[uint64]
}

// evalFrame is one level of the tracked-evaluation stack.
type evalFrame struct {
	comp Computation
}

// Graph is the arena holding every signal, memo, and effect of one runtime
// instance, together with the dependency edges between them.
//
// The zero value is not usable; construct with New. Graphs are independent:
// handles from one graph must not be mixed with another.
type Graph struct {
	mu     sync.Mutex
	nextID atomic.Uint64

	sources map[uint64]*sourceRecord
	comps   map[uint64]*compRecord

	// stack of in-flight tracked evaluations. Only the goroutine recorded
	// in trackGID sees it; reads from other goroutines are untracked.
	stack    []evalFrame
	trackGID uint64

	owner *Owner

	batchDepth int
	pending    []Computation

	queued   []*Effect
	flushing bool
	schedule func(*Effect)
	onError  func(error)
}

// Option configures a Graph.
type Option func(*Graph)

// WithOnError installs a handler for errors raised during evaluation or
// effect flushes (cycles, unstable cascades). Without a handler such errors
// are still returned from the call that detected them, just not reported
// out-of-band.
func WithOnError(fn func(error)) Option {
	return func(g *Graph) { g.onError = fn }
}

// WithEffectScheduler notifies an external scheduler whenever an effect
// becomes dirty. The effect stays queued on the graph until FlushEffects;
// the hook must not run it inline, it is invoked while propagation is still
// unwinding. Attaching a scheduler also disables the automatic flush that
// standalone graphs perform after each write.
func WithEffectScheduler(fn func(*Effect)) Option {
	return func(g *Graph) { g.schedule = fn }
}

// New creates an empty reactive graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		sources: make(map[uint64]*sourceRecord),
		comps:   make(map[uint64]*compRecord),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// newID allocates a graph-unique id shared by sources and computations.
func (g *Graph) newID() uint64 {
	return g.nextID.Add(1)
}

// registerSource adds a source record for id.
func (g *Graph) registerSource(id uint64) {
	g.mu.Lock()
	g.sources[id] = &sourceRecord{dependents: mapset.NewThreadUnsafeSet[uint64]()}
	g.mu.Unlock()
}

// registerComp adds a computation record for c.
func (g *Graph) registerComp(c Computation) {
	g.mu.Lock()
	g.comps[c.ID()] = &compRecord{comp: c, sources: mapset.NewThreadUnsafeSet[uint64]()}
	g.mu.Unlock()
}

// dropSource removes a source and both directions of its edges.
func (g *Graph) dropSource(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec := g.sources[id]
	if rec == nil {
		return
	}
	for _, dep := range rec.dependents.ToSlice() {
		if cr := g.comps[dep]; cr != nil {
			cr.sources.Remove(id)
		}
	}
	delete(g.sources, id)
}

// dropComp removes a computation and both directions of its edges.
func (g *Graph) dropComp(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cr := g.comps[id]
	if cr == nil {
		return
	}
	for _, src := range cr.sources.ToSlice() {
		if sr := g.sources[src]; sr != nil {
			sr.dependents.Remove(id)
		}
	}
	delete(g.comps, id)
}

// trackRead records an edge between sourceID and the computation currently
// evaluating on this goroutine, if any.
func (g *Graph) trackRead(sourceID uint64) {
	gid := goroutineID()
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.stack) == 0 || g.trackGID != gid {
		return
	}
	active := g.stack[len(g.stack)-1].comp
	sr := g.sources[sourceID]
	cr := g.comps[active.ID()]
	if sr == nil || cr == nil {
		return
	}
	sr.dependents.Add(active.ID())
	cr.sources.Add(sourceID)
}

// bumpVersion increments a source's version counter and returns the new value.
func (g *Graph) bumpVersion(id uint64) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	sr := g.sources[id]
	if sr == nil {
		return 0
	}
	sr.version++
	return sr.version
}

// Version returns the current version counter for a source id.
func (g *Graph) Version(id uint64) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sr := g.sources[id]; sr != nil {
		return sr.version
	}
	return 0
}

// Invalidate force-marks the source id dirty, as if it had been written
// with a new value: the version bumps and every dependent is notified.
// The typed handle's value is untouched. Returns false when id is not a
// registered source. This is the entry point for hosts that learn about
// out-of-band changes, for example an invalidation request arriving over
// the wire.
func (g *Graph) Invalidate(id uint64) bool {
	g.mu.Lock()
	sr := g.sources[id]
	if sr == nil {
		g.mu.Unlock()
		return false
	}
	sr.version++
	g.mu.Unlock()

	g.fanOut(id)
	g.autoFlush()
	return true
}

// fanOut marks every dependent of sourceID dirty, or queues them when a
// batch is open. Dependents are snapshotted under the lock and notified
// outside it, since MarkDirty on a memo re-enters the graph.
func (g *Graph) fanOut(sourceID uint64) {
	g.mu.Lock()
	sr := g.sources[sourceID]
	if sr == nil {
		g.mu.Unlock()
		return
	}
	ids := sr.dependents.ToSlice()
	targets := make([]Computation, 0, len(ids))
	for _, id := range ids {
		if cr := g.comps[id]; cr != nil {
			targets = append(targets, cr.comp)
		}
	}
	if g.batchDepth > 0 {
		g.pending = append(g.pending, targets...)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	for _, c := range targets {
		c.MarkDirty()
	}
}

// beginEvaluation pushes c onto the tracked-evaluation stack and resets its
// source set, so the edges recorded by the run replace the previous ones.
func (g *Graph) beginEvaluation(c Computation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cr := g.comps[c.ID()]; cr != nil {
		for _, src := range cr.sources.ToSlice() {
			if sr := g.sources[src]; sr != nil {
				sr.dependents.Remove(c.ID())
			}
		}
		cr.sources.Clear()
	}
	g.stack = append(g.stack, evalFrame{comp: c})
	g.trackGID = goroutineID()
}

// endEvaluation pops the tracked-evaluation stack.
func (g *Graph) endEvaluation() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n := len(g.stack); n > 0 {
		g.stack[n-1] = evalFrame{}
		g.stack = g.stack[:n-1]
	}
	if len(g.stack) == 0 {
		g.trackGID = 0
	}
}

// depth returns the current evaluation nesting level.
func (g *Graph) depth() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.stack)
}

// evaluating reports whether the computation id is somewhere on the current
// evaluation stack of this goroutine. Used for cycle detection on memo
// reads; reads from other goroutines race benignly and are never cycles.
func (g *Graph) evaluating(id uint64) bool {
	gid := goroutineID()
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.trackGID != gid {
		return false
	}
	for _, f := range g.stack {
		if f.comp.ID() == id {
			return true
		}
	}
	return false
}

// cyclePath returns the ids on the evaluation stack from the given id to the
// top, forming the detected dependency cycle.
func (g *Graph) cyclePath(id uint64) []uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	start := -1
	for i, f := range g.stack {
		if f.comp.ID() == id {
			start = i
			break
		}
	}
	if start < 0 {
		return []uint64{id}
	}
	path := make([]uint64, 0, len(g.stack)-start+1)
	for _, f := range g.stack[start:] {
		path = append(path, f.comp.ID())
	}
	return append(path, id)
}

// Evaluate runs fn as a tracked evaluation of c: every source read inside fn
// is recorded as a dependency of c, replacing edges from the previous run.
// A dependency cycle detected during fn aborts the evaluation and is
// returned as a *CycleError.
//
// Evaluate is the boundary used by memo recomputation, effect runs, and
// embedding runtimes evaluating render units. It must be called from a
// single worker goroutine at a time.
func (g *Graph) Evaluate(c Computation, fn func()) (err error) {
	g.beginEvaluation(c)
	defer func() {
		g.endEvaluation()
		if r := recover(); r != nil {
			ce, ok := r.(*CycleError)
			if !ok {
				panic(r)
			}
			if g.depth() > 0 {
				// Unwind to the outermost evaluation; the whole pass
				// aborts, not just the innermost memo.
				panic(ce)
			}
			g.reportError(ce)
			err = ce
		}
	}()
	fn()
	return nil
}

// Untracked runs fn with dependency tracking suspended. Reads inside fn do
// not register edges for the enclosing evaluation.
func (g *Graph) Untracked(fn func()) {
	g.mu.Lock()
	saved := g.stack
	savedGID := g.trackGID
	g.stack = nil
	g.trackGID = 0
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.stack = saved
		g.trackGID = savedGID
		g.mu.Unlock()
	}()
	fn()
}

// scheduleEffect queues a dirty effect for the next FlushEffects and, when a
// scheduler hook is attached, notifies it so the owning loop can pick a flush
// point.
func (g *Graph) scheduleEffect(e *Effect) {
	g.mu.Lock()
	g.queued = append(g.queued, e)
	g.mu.Unlock()
	if g.schedule != nil {
		g.schedule(e)
	}
}

// autoFlush drains queued effects after a standalone write. Graphs attached
// to a scheduler flush on the loop's cadence instead, and writes issued from
// inside an evaluation or an ongoing flush are drained by the enclosing
// flush rounds.
func (g *Graph) autoFlush() {
	g.mu.Lock()
	standalone := g.schedule == nil && g.batchDepth == 0 && !g.flushing && len(g.stack) == 0
	if standalone {
		g.flushing = true
	}
	g.mu.Unlock()
	if !standalone {
		return
	}
	defer func() {
		g.mu.Lock()
		g.flushing = false
		g.mu.Unlock()
	}()
	g.FlushEffects()
}

// takeQueued removes and returns all currently queued effects.
func (g *Graph) takeQueued() []*Effect {
	g.mu.Lock()
	defer g.mu.Unlock()
	q := g.queued
	g.queued = nil
	return q
}

// FlushEffects runs queued effects until none remain, including effects
// re-queued by the runs themselves. Returns the first error encountered
// (later effects still run), or ErrUnstable when the cascade does not
// settle within the round bound.
func (g *Graph) FlushEffects() error {
	var first error
	for round := 0; ; round++ {
		batch := g.takeQueued()
		if len(batch) == 0 {
			return first
		}
		if round == maxFlushRounds {
			err := fmt.Errorf("effect cascade did not settle after %d rounds: %w", round, ErrUnstable)
			g.reportError(err)
			if first == nil {
				first = err
			}
			return first
		}
		for _, e := range batch {
			if err := e.run(); err != nil && first == nil {
				first = err
			}
		}
	}
}

// reportError delivers err to the configured error handler, if any.
func (g *Graph) reportError(err error) {
	if g.onError != nil {
		g.onError(err)
	}
}

// Stats summarizes graph occupancy.
type Stats struct {
	Sources      int `json:"sources"`
	Computations int `json:"computations"`
	Edges        int `json:"edges"`
}

// Stats returns current source, computation, and edge counts.
func (g *Graph) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := Stats{Sources: len(g.sources), Computations: len(g.comps)}
	for _, sr := range g.sources {
		st.Edges += sr.dependents.Cardinality()
	}
	return st
}

// Verify checks that the source→computation and computation→source edge
// tables are exact inverses of each other.
func (g *Graph) Verify() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, sr := range g.sources {
		for _, dep := range sr.dependents.ToSlice() {
			cr := g.comps[dep]
			if cr == nil {
				return fmt.Errorf("source %d lists unknown computation %d", id, dep)
			}
			if !cr.sources.Contains(id) {
				return fmt.Errorf("source %d lists computation %d, but not inversely", id, dep)
			}
		}
	}
	for id, cr := range g.comps {
		for _, src := range cr.sources.ToSlice() {
			sr := g.sources[src]
			if sr == nil {
				return fmt.Errorf("computation %d lists unknown source %d", id, src)
			}
			if !sr.dependents.Contains(id) {
				return fmt.Errorf("computation %d lists source %d, but not inversely", id, src)
			}
		}
	}
	return nil
}

// goroutineID extracts the numeric id of the calling goroutine from its
// stack header ("goroutine 18 [running]:"). Used to confine dependency
// tracking to the goroutine that entered Evaluate.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
