package sched

import "github.com/loom-ui/loom/pkg/vtree"

// Renderer applies committed patches to a concrete surface: a browser DOM
// driven over a socket, a test recorder, a headless snapshot. All calls
// arrive on the loop goroutine, already in application order.
type Renderer interface {
	// Apply applies one patch. Returning an error abandons the rest of
	// the batch and degrades the surface; only a remount recovers it.
	Apply(p vtree.Patch) error

	// Commit marks the end of batch seq, after all of its patches were
	// applied. Sequence numbers start at 1 and increase by one per
	// non-empty commit.
	Commit(seq uint64) error
}

// NopRenderer discards patches. Useful when only the committed trees
// matter.
type NopRenderer struct{}

func (NopRenderer) Apply(vtree.Patch) error { return nil }
func (NopRenderer) Commit(uint64) error     { return nil }
