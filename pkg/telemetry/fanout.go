package telemetry

import (
	"time"

	"github.com/loom-ui/loom/pkg/sched"
)

// Fanout combines observers so a loop can feed metrics, tracing, and
// logging at once. Calls dispatch in argument order.
func Fanout(observers ...sched.Observer) sched.Observer {
	return fanout(observers)
}

type fanout []sched.Observer

func (f fanout) PassStarted(root sched.FiberID, prio sched.Priority) {
	for _, o := range f {
		o.PassStarted(root, prio)
	}
}

func (f fanout) PassYielded(root sched.FiberID, prio sched.Priority, pendingUnits int) {
	for _, o := range f {
		o.PassYielded(root, prio, pendingUnits)
	}
}

func (f fanout) PassDiscarded(root sched.FiberID, prio sched.Priority, reason sched.DiscardReason) {
	for _, o := range f {
		o.PassDiscarded(root, prio, reason)
	}
}

func (f fanout) CommitApplied(seq uint64, patches int, took time.Duration) {
	for _, o := range f {
		o.CommitApplied(seq, patches, took)
	}
}

func (f fanout) QueueDepth(prio sched.Priority, depth int) {
	for _, o := range f {
		o.QueueDepth(prio, depth)
	}
}
