package loom

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycle reports that a computation transitively re-read a source
	// that depends on its own output.
	ErrCycle = errors.New("cyclic dependency")

	// ErrUnstable reports an effect cascade that never settles: effects
	// kept re-dirtying themselves past the flush round bound.
	ErrUnstable = errors.New("unstable effect cascade")

	// ErrDisposed reports use of a handle whose owning scope was disposed.
	ErrDisposed = errors.New("disposed")
)

// CycleError carries the dependency cycle detected during a tracked
// evaluation: the computation ids from the re-entered computation back to
// itself, in evaluation order.
type CycleError struct {
	Path []uint64
}

func (e *CycleError) Error() string {
	var sb strings.Builder
	sb.WriteString("cyclic dependency: ")
	for i, id := range e.Path {
		if i > 0 {
			sb.WriteString(" -> ")
		}
		fmt.Fprintf(&sb, "#%d", id)
	}
	return sb.String()
}

func (e *CycleError) Unwrap() error { return ErrCycle }
