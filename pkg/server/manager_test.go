package server

import (
	"errors"
	"fmt"
	"testing"
)

func stubSession(id string) *Session {
	return &Session{ID: id, done: make(chan struct{})}
}

func TestManagerAddGetRemove(t *testing.T) {
	m := NewSessionManager(0)

	sess := stubSession("a")
	if err := m.Add(sess); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if got := m.Get("a"); got != sess {
		t.Errorf("Get = %v, want the added session", got)
	}
	if got := m.Get("missing"); got != nil {
		t.Errorf("Get(missing) = %v, want nil", got)
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}

	m.Remove("a")
	if m.Count() != 0 {
		t.Errorf("Count after Remove = %d, want 0", m.Count())
	}
	// Removing twice must not skew the closed counter.
	m.Remove("a")
	if stats := m.Stats(); stats.TotalClosed != 1 {
		t.Errorf("TotalClosed = %d, want 1", stats.TotalClosed)
	}
}

func TestManagerLimit(t *testing.T) {
	m := NewSessionManager(2)

	if err := m.Add(stubSession("a")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := m.Add(stubSession("b")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := m.Add(stubSession("c")); !errors.Is(err, ErrMaxSessionsReached) {
		t.Fatalf("Add error = %v, want ErrMaxSessionsReached", err)
	}

	// A removal frees a slot.
	m.Remove("a")
	if err := m.Add(stubSession("c")); err != nil {
		t.Fatalf("Add after Remove failed: %v", err)
	}
}

func TestManagerRange(t *testing.T) {
	m := NewSessionManager(0)
	for i := 0; i < 5; i++ {
		m.Add(stubSession(fmt.Sprintf("s%d", i)))
	}

	seen := 0
	m.Range(func(*Session) bool {
		seen++
		return true
	})
	if seen != 5 {
		t.Errorf("visited %d sessions, want 5", seen)
	}

	seen = 0
	m.Range(func(*Session) bool {
		seen++
		return false
	})
	if seen != 1 {
		t.Errorf("early stop visited %d sessions, want 1", seen)
	}
}

func TestManagerCloseAll(t *testing.T) {
	m := NewSessionManager(0)
	a := stubSession("a")
	b := stubSession("b")
	m.Add(a)
	m.Add(b)

	m.CloseAll()

	if m.Count() != 0 {
		t.Errorf("Count = %d, want 0", m.Count())
	}
	for _, sess := range []*Session{a, b} {
		select {
		case <-sess.Done():
		default:
			t.Errorf("session %s not closed", sess.ID)
		}
	}
	if stats := m.Stats(); stats.TotalCreated != 2 || stats.TotalClosed != 2 {
		t.Errorf("stats = %+v, want 2 created 2 closed", stats)
	}
}

func TestManagerStats(t *testing.T) {
	m := NewSessionManager(0)
	m.Add(stubSession("a"))
	m.Add(stubSession("b"))
	m.Remove("a")

	stats := m.Stats()
	if stats.Active != 1 || stats.TotalCreated != 2 || stats.TotalClosed != 1 {
		t.Errorf("stats = %+v, want 1 active, 2 created, 1 closed", stats)
	}
}
