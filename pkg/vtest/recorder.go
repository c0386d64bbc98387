package vtest

import (
	"sync"

	"github.com/loom-ui/loom/pkg/sched"
	"github.com/loom-ui/loom/pkg/vtree"
)

// Commit is one atomically applied patch batch.
type Commit struct {
	Seq     uint64
	Patches []vtree.Patch
}

// Recorder is the harness renderer: it keeps every committed batch in
// order instead of applying patches anywhere.
type Recorder struct {
	mu       sync.Mutex
	pending  []vtree.Patch
	commits  []Commit
	applyErr error
}

var _ sched.Renderer = (*Recorder)(nil)

// Apply buffers one patch for the current commit.
func (r *Recorder) Apply(p vtree.Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.applyErr; err != nil {
		r.applyErr = nil
		return err
	}
	r.pending = append(r.pending, p)
	return nil
}

// Commit seals the buffered patches under seq.
func (r *Recorder) Commit(seq uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commits = append(r.commits, Commit{Seq: seq, Patches: r.pending})
	r.pending = nil
	return nil
}

// Commits returns a copy of every recorded commit in order.
func (r *Recorder) Commits() []Commit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Commit(nil), r.commits...)
}

// Len returns the number of recorded commits.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commits)
}

// At returns the i-th commit.
func (r *Recorder) At(i int) Commit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commits[i]
}

// FailNextApply makes the next Apply return err, exercising the loop's
// degraded path.
func (r *Recorder) FailNextApply(err error) {
	r.mu.Lock()
	r.applyErr = err
	r.mu.Unlock()
}
