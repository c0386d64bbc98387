package vtree

import "sync"

// IDAllocator hands out NodeIDs for freshly rendered nodes. One allocator
// belongs to one runtime instance, so ids are unique within a session and
// meaningless across sessions.
type IDAllocator struct {
	mu   sync.Mutex
	next uint64
}

// NewIDAllocator creates an allocator starting at 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns a fresh NodeID.
func (a *IDAllocator) Next() NodeID {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	return NodeID(a.next)
}

// AssignIDs walks the subtree and gives every unassigned node a fresh id.
// Reconciliation later overwrites matched nodes with their committed
// counterpart's id, so only genuinely new nodes keep these.
func AssignIDs(n *VNode, alloc *IDAllocator) {
	if n == nil {
		return
	}
	if n.ID == 0 {
		n.ID = alloc.Next()
	}
	for _, c := range n.Children {
		AssignIDs(c, alloc)
	}
}

// copyIDs transfers ids from prev onto an identically shaped next subtree.
// Used when a fingerprint match lets the reconciler skip a subtree without
// losing the identity of its nodes.
func copyIDs(prev, next *VNode) {
	if prev == nil || next == nil {
		return
	}
	next.ID = prev.ID
	for i := 0; i < len(prev.Children) && i < len(next.Children); i++ {
		copyIDs(prev.Children[i], next.Children[i])
	}
}
