package sched

import "time"

// DiscardReason says why a render pass was thrown away before commit.
type DiscardReason uint8

const (
	// DiscardPreempted means more urgent work arrived; the pass reruns
	// from scratch afterwards.
	DiscardPreempted DiscardReason = iota + 1

	// DiscardStale means a signal some already-rendered fiber depends on
	// changed mid-pass, so the staged result no longer reflects the
	// graph.
	DiscardStale

	// DiscardFailed means evaluation itself failed, typically on a
	// dependency cycle. Failed passes are not automatically retried.
	DiscardFailed
)

func (r DiscardReason) String() string {
	switch r {
	case DiscardPreempted:
		return "preempted"
	case DiscardStale:
		return "stale"
	case DiscardFailed:
		return "failed"
	}
	return "unknown"
}

// Observer receives loop telemetry on the loop goroutine. Implementations
// must be cheap and must not call back into the loop.
type Observer interface {
	PassStarted(root FiberID, prio Priority)
	PassYielded(root FiberID, prio Priority, pendingUnits int)
	PassDiscarded(root FiberID, prio Priority, reason DiscardReason)
	CommitApplied(seq uint64, patches int, took time.Duration)
	QueueDepth(prio Priority, depth int)
}

// NopObserver ignores all telemetry.
type NopObserver struct{}

func (NopObserver) PassStarted(FiberID, Priority)                  {}
func (NopObserver) PassYielded(FiberID, Priority, int)             {}
func (NopObserver) PassDiscarded(FiberID, Priority, DiscardReason) {}
func (NopObserver) CommitApplied(uint64, int, time.Duration)       {}
func (NopObserver) QueueDepth(Priority, int)                       {}
