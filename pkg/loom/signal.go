package loom

import (
	"reflect"
	"sync"
)

// Signal is a reactive value holder. Reading it during a tracked evaluation
// (memo recompute, effect run, component render) registers a dependency edge
// for the evaluating computation; writing it bumps the signal's version and
// marks every dependent dirty.
//
// The value lives in the typed handle; the graph arena only knows the
// signal's id, version, and edges.
type Signal[T any] struct {
	g  *Graph
	id uint64

	mu    sync.RWMutex
	value T

	// equal decides whether a write actually changed the value. Nil means
	// defaultEquals.
	equal func(T, T) bool
}

// SignalOption configures a signal at creation.
type SignalOption[T any] func(*Signal[T])

// WithEquals sets a custom equality function, for types where
// reflect.DeepEqual is too expensive or has the wrong semantics.
func WithEquals[T any](fn func(T, T) bool) SignalOption[T] {
	return func(s *Signal[T]) { s.equal = fn }
}

// NewSignal creates a signal in g holding initial. If an ownership scope is
// active, the signal is disposed with that scope.
func NewSignal[T any](g *Graph, initial T, opts ...SignalOption[T]) *Signal[T] {
	if o := g.currentOwner(); o != nil {
		if prior, ok := ownerSlot[*Signal[T]](o); ok {
			return prior
		}
	}
	s := &Signal[T]{
		g:     g,
		id:    g.newID(),
		value: initial,
	}
	for _, opt := range opts {
		opt(s)
	}
	g.registerSource(s.id)
	if o := g.currentOwner(); o != nil {
		storeOwnerSlot(o, s)
		o.onDispose(func() { g.dropSource(s.id) })
	}
	return s
}

// Get returns the current value and registers a dependency for the
// computation evaluating on this goroutine, if any.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	v := s.value
	s.mu.RUnlock()
	s.g.trackRead(s.id)
	return v
}

// Peek returns the current value without registering a dependency.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set writes a new value. If the value changed under the signal's equality
// function, the version is bumped and all dependents are marked dirty (or
// queued, inside a batch). Safe to call from any goroutine.
func (s *Signal[T]) Set(v T) {
	s.mu.Lock()
	changed := !s.equals(s.value, v)
	if changed {
		s.value = v
	}
	s.mu.Unlock()

	if changed {
		s.g.bumpVersion(s.id)
		s.g.fanOut(s.id)
		s.g.autoFlush()
	}
}

// Update applies fn to the current value and writes the result, atomically
// with respect to other writers.
func (s *Signal[T]) Update(fn func(T) T) {
	s.mu.Lock()
	next := fn(s.value)
	changed := !s.equals(s.value, next)
	if changed {
		s.value = next
	}
	s.mu.Unlock()

	if changed {
		s.g.bumpVersion(s.id)
		s.g.fanOut(s.id)
		s.g.autoFlush()
	}
}

// ID returns the signal's graph-unique id.
func (s *Signal[T]) ID() uint64 { return s.id }

// Version returns the signal's current version counter.
func (s *Signal[T]) Version() uint64 { return s.g.Version(s.id) }

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals uses == for the common scalar types and reflect.DeepEqual
// for everything else.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int64:
		return av == any(b).(int64)
	case uint64:
		return av == any(b).(uint64)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	default:
		return reflect.DeepEqual(a, b)
	}
}
