package sched

import (
	"errors"
	"fmt"

	"github.com/loom-ui/loom/pkg/vtree"
)

// ErrInboxFull is returned by Dispatch when the loop cannot accept more
// work without blocking.
var ErrInboxFull = errors.New("sched: dispatch inbox full")

// PatchError reports a renderer failure during a commit. The rest of the
// batch was abandoned and the surface is degraded until a remount.
type PatchError struct {
	Seq   uint64
	Patch vtree.Patch
	Err   error
}

func (e *PatchError) Error() string {
	if e.Patch.Op == 0 {
		return fmt.Sprintf("sched: commit %d failed: %v", e.Seq, e.Err)
	}
	return fmt.Sprintf("sched: commit %d failed applying %s: %v", e.Seq, e.Patch.String(), e.Err)
}

func (e *PatchError) Unwrap() error { return e.Err }
