package sched

import "fmt"

// Priority orders render work. Smaller values are more urgent; the queue
// always drains a level completely before touching the next.
type Priority uint8

const (
	// Immediate work runs synchronously to completion and never yields.
	// Reserved for mounts and remounts where showing nothing is worse
	// than blocking.
	Immediate Priority = iota

	// UserBlocking work follows direct input: clicks, keystrokes, focus.
	UserBlocking

	// Normal is the default for signal-driven invalidations.
	Normal

	// Low covers work the user has not asked for yet: prefetch, data
	// refresh.
	Low

	// Idle work runs only when nothing else is queued and may starve
	// indefinitely under sustained load.
	Idle

	numPriorities = int(Idle) + 1
)

func (p Priority) String() string {
	switch p {
	case Immediate:
		return "immediate"
	case UserBlocking:
		return "user-blocking"
	case Normal:
		return "normal"
	case Low:
		return "low"
	case Idle:
		return "idle"
	}
	return fmt.Sprintf("priority(%d)", uint8(p))
}

// ParsePriority converts a config or wire string to a Priority.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "immediate":
		return Immediate, nil
	case "user-blocking":
		return UserBlocking, nil
	case "normal":
		return Normal, nil
	case "low":
		return Low, nil
	case "idle":
		return Idle, nil
	}
	return Normal, fmt.Errorf("sched: unknown priority %q", s)
}

// valid reports whether p names a defined level.
func (p Priority) valid() bool {
	return int(p) < numPriorities
}
