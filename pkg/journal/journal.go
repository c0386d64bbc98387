// Package journal retains recently committed patch frames for client
// resync. A fixed-capacity ring buffer holds the last N frames keyed by
// commit sequence; a client that reports a gap gets the missing frames
// replayed from here, and only falls back to a full remount when the
// buffer no longer covers its position. An optional Archiver drains
// frames to object storage for offline inspection.
package journal

import (
	"sync"
	"time"
)

// DefaultCapacity is the ring size used when none is configured.
const DefaultCapacity = 128

// Entry is one retained frame.
type Entry struct {
	Seq   uint64    // commit sequence the frame carries
	Frame []byte    // pre-encoded Patches frame, ready to resend
	At    time.Time // when the frame was recorded
}

// Journal is a thread-safe ring buffer of committed patch frames.
// Frames are appended in commit order with contiguous sequences; the
// ring overwrites the oldest entry when full, keeping a sliding window
// of what can still be replayed.
type Journal struct {
	mu       sync.RWMutex
	entries  []*Entry
	head     int // next write position
	count    int
	capacity int
	minSeq   uint64 // oldest retained sequence
	maxSeq   uint64 // newest retained sequence
	acked    uint64 // highest client-acknowledged sequence
}

// New creates a journal holding up to capacity frames.
func New(capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Journal{
		entries:  make([]*Entry, capacity),
		capacity: capacity,
	}
}

// Append records a frame after it has been handed to the transport. The
// frame bytes are copied, callers may reuse their buffer.
func (j *Journal) Append(seq uint64, frame []byte) {
	frameCopy := make([]byte, len(frame))
	copy(frameCopy, frame)

	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries[j.head] = &Entry{Seq: seq, Frame: frameCopy, At: time.Now()}
	j.head = (j.head + 1) % j.capacity

	if j.count < j.capacity {
		j.count++
	}

	j.maxSeq = seq
	if j.count == 1 {
		j.minSeq = seq
	} else if j.count == j.capacity {
		// Full ring: the oldest entry is the one head now points at.
		if oldest := j.entries[j.head]; oldest != nil {
			j.minSeq = oldest.Seq
		}
	}
}

// Replay returns the frames for every sequence after afterSeq, oldest
// first. It returns nil when the window no longer reaches back to
// afterSeq+1; the caller must then reset the client instead.
func (j *Journal) Replay(afterSeq uint64) [][]byte {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.count == 0 || afterSeq >= j.maxSeq {
		return nil
	}
	if afterSeq+1 < j.minSeq {
		return nil
	}

	// Entries sit in the ring in append order, which is sequence order.
	frames := make([][]byte, 0, j.maxSeq-afterSeq)
	for i := 0; i < j.count; i++ {
		idx := (j.head - j.count + i + j.capacity) % j.capacity
		e := j.entries[idx]
		if e == nil || e.Seq <= afterSeq {
			continue
		}
		frames = append(frames, e.Frame)
	}
	return frames
}

// CanReplay reports whether the window still covers a client that last
// applied lastSeq, with at least one frame to send.
func (j *Journal) CanReplay(lastSeq uint64) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.count == 0 {
		return false
	}
	return lastSeq+1 >= j.minSeq && lastSeq < j.maxSeq
}

// Ack records the highest sequence the client acknowledged. Entries at
// or below it are no longer needed and age out of the ring naturally.
func (j *Journal) Ack(seq uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if seq > j.acked {
		j.acked = seq
	}
}

// Acked returns the highest acknowledged sequence.
func (j *Journal) Acked() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.acked
}

// Outstanding returns how many committed frames the client has not yet
// acknowledged.
func (j *Journal) Outstanding() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.maxSeq <= j.acked {
		return 0
	}
	return j.maxSeq - j.acked
}

// MinSeq returns the oldest retained sequence.
func (j *Journal) MinSeq() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.minSeq
}

// MaxSeq returns the newest retained sequence.
func (j *Journal) MaxSeq() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.maxSeq
}

// Len returns the number of retained frames.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.count
}

// Clear drops every retained frame. Used when a session resets and the
// old window no longer describes the client's tree.
func (j *Journal) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()

	for i := range j.entries {
		j.entries[i] = nil
	}
	j.head = 0
	j.count = 0
	j.minSeq = 0
	j.maxSeq = 0
	j.acked = 0
}
