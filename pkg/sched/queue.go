package sched

import "time"

type queueEntry struct {
	fiber FiberID
	at    time.Time
}

// runQueue holds pending render requests bucketed by priority, FIFO within
// a bucket, at most one entry per fiber. The loop's lock guards it.
type runQueue struct {
	buckets [numPriorities][]queueEntry
	byFiber map[FiberID]Priority

	// agingAfter promotes entries that waited longer than this by one
	// level per interval, up to UserBlocking. Zero accepts starvation.
	agingAfter time.Duration
}

func newRunQueue(agingAfter time.Duration) *runQueue {
	return &runQueue{
		byFiber:    make(map[FiberID]Priority),
		agingAfter: agingAfter,
	}
}

// push enqueues fiber at prio, coalescing with any existing entry: the more
// urgent of the two wins, and the original enqueue time is kept. Returns
// false when an entry at the same or higher urgency already covers this
// request.
func (q *runQueue) push(fiber FiberID, prio Priority, now time.Time) bool {
	cur, queued := q.byFiber[fiber]
	if queued {
		if cur <= prio {
			return false
		}
		e := q.take(fiber, cur)
		e.fiber = fiber
		q.buckets[prio] = append(q.buckets[prio], e)
		q.byFiber[fiber] = prio
		return true
	}
	q.buckets[prio] = append(q.buckets[prio], queueEntry{fiber: fiber, at: now})
	q.byFiber[fiber] = prio
	return true
}

// pop removes and returns the most urgent pending fiber.
func (q *runQueue) pop(now time.Time) (FiberID, Priority, bool) {
	if q.agingAfter > 0 {
		q.promoteAged(now)
	}
	for p := 0; p < numPriorities; p++ {
		b := q.buckets[p]
		if len(b) == 0 {
			continue
		}
		e := b[0]
		copy(b, b[1:])
		q.buckets[p] = b[:len(b)-1]
		delete(q.byFiber, e.fiber)
		return e.fiber, Priority(p), true
	}
	return 0, Normal, false
}

// promoteAged moves overdue entries up one level. Promoted entries restart
// their wait, so long-starved work climbs one level per interval, never
// jumping the queue. Nothing ages into Immediate.
func (q *runQueue) promoteAged(now time.Time) {
	for p := int(Idle); p > int(UserBlocking); p-- {
		b := q.buckets[p]
		kept := b[:0]
		for _, e := range b {
			if now.Sub(e.at) > q.agingAfter {
				e.at = now
				q.buckets[p-1] = append(q.buckets[p-1], e)
				q.byFiber[e.fiber] = Priority(p - 1)
				continue
			}
			kept = append(kept, e)
		}
		q.buckets[p] = kept
	}
}

// remove drops a queued entry for fiber, if any.
func (q *runQueue) remove(fiber FiberID) {
	if p, ok := q.byFiber[fiber]; ok {
		q.take(fiber, p)
	}
}

// take removes fiber's entry from the given bucket and returns it.
func (q *runQueue) take(fiber FiberID, p Priority) queueEntry {
	b := q.buckets[p]
	for i, e := range b {
		if e.fiber == fiber {
			q.buckets[p] = append(b[:i], b[i+1:]...)
			delete(q.byFiber, fiber)
			return e
		}
	}
	delete(q.byFiber, fiber)
	return queueEntry{fiber: fiber}
}

// peekUrgency returns the most urgent level with pending work.
func (q *runQueue) peekUrgency() (Priority, bool) {
	for p := 0; p < numPriorities; p++ {
		if len(q.buckets[p]) > 0 {
			return Priority(p), true
		}
	}
	return Idle, false
}

func (q *runQueue) depth(p Priority) int {
	return len(q.buckets[p])
}

func (q *runQueue) empty() bool {
	return len(q.byFiber) == 0
}
