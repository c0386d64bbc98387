package vtree

import "fmt"

// Op discriminates patch variants. The numeric order is the commit
// ordering: prop updates land before structural changes, removals and
// replacements of old subtrees before moves, moves before inserts. The
// commit stage stable-sorts a batch by Op, so within one rank patches
// apply in emission order.
type Op uint8

const (
	// OpUpdateProps sets one prop key on the target node. A nil Value
	// deletes the key. Text content changes use the "text" key.
	OpUpdateProps Op = iota + 1
	// OpRemove detaches the target node and its subtree.
	OpRemove
	// OpReplace swaps the target node's subtree for Tree.
	OpReplace
	// OpMove repositions the target node under Parent at Index, counted
	// among the surviving children at application time.
	OpMove
	// OpInsert mounts Tree under Parent at Index, counted in the final
	// child list as built so far.
	OpInsert
)

// String returns the op name.
func (o Op) String() string {
	switch o {
	case OpUpdateProps:
		return "update-props"
	case OpRemove:
		return "remove"
	case OpReplace:
		return "replace"
	case OpMove:
		return "move"
	case OpInsert:
		return "insert"
	default:
		return "invalid"
	}
}

// Patch is one structural or property edit against the committed tree.
// Within a batch, indices are interpreted at application time: every patch
// of an earlier rank, and every same-rank patch emitted earlier, has
// already been applied.
type Patch struct {
	Op     Op
	Node   NodeID // target node (update, remove, replace, move)
	Parent NodeID // destination parent (move, insert)
	Index  int    // destination position (move, insert)
	PropKey string // changed prop (update-props)
	Value  any    // new prop value; nil deletes (update-props)
	Tree   *VNode // mounted subtree (insert, replace)
}

// String renders a compact description, mainly for tests and logs.
func (p Patch) String() string {
	switch p.Op {
	case OpUpdateProps:
		return fmt.Sprintf("update-props(#%d %s=%v)", p.Node, p.PropKey, p.Value)
	case OpRemove:
		return fmt.Sprintf("remove(#%d)", p.Node)
	case OpReplace:
		return fmt.Sprintf("replace(#%d)", p.Node)
	case OpMove:
		return fmt.Sprintf("move(#%d -> #%d[%d])", p.Node, p.Parent, p.Index)
	case OpInsert:
		return fmt.Sprintf("insert(#%d[%d])", p.Parent, p.Index)
	default:
		return "invalid"
	}
}
