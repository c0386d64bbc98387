package vtree

import (
	"reflect"
	"sort"
)

// Diff compares the committed tree prev against the freshly rendered next
// and returns the patches that transform one into the other. Matched nodes
// adopt their committed counterpart's id as a side effect, which is how
// identity survives re-renders; run AssignIDs on next first so unmatched
// nodes have ids of their own.
//
// Identical trees produce an empty patch list. Patches are emitted in
// traversal order; the commit stage owns the application ordering.
func Diff(prev, next *VNode) []Patch {
	var patches []Patch
	diffNodes(prev, next, 0, 0, &patches)
	return patches
}

// diffNodes reconciles one slot. parent and index locate the slot for
// insertions; removals and replacements target the old node directly.
func diffNodes(prev, next *VNode, parent NodeID, index int, patches *[]Patch) {
	if prev == nil && next == nil {
		return
	}
	if prev == nil {
		*patches = append(*patches, Patch{Op: OpInsert, Parent: parent, Index: index, Tree: next})
		return
	}
	if next == nil {
		*patches = append(*patches, Patch{Op: OpRemove, Node: prev.ID})
		return
	}
	if prev.Kind != next.Kind {
		*patches = append(*patches, Patch{Op: OpReplace, Node: prev.ID, Tree: next})
		return
	}
	if Fingerprint(prev) == Fingerprint(next) {
		copyIDs(prev, next)
		return
	}

	switch prev.Kind {
	case KindText:
		next.ID = prev.ID
		if prev.Text != next.Text {
			*patches = append(*patches, Patch{Op: OpUpdateProps, Node: prev.ID, PropKey: "text", Value: next.Text})
		}

	case KindElement:
		if prev.Tag != next.Tag {
			*patches = append(*patches, Patch{Op: OpReplace, Node: prev.ID, Tree: next})
			return
		}
		next.ID = prev.ID
		diffProps(prev.ID, prev.Props, next.Props, patches)
		diffChildren(prev.ID, prev.Children, next.Children, patches)

	case KindComponent:
		if !SameComponent(prev.Comp, next.Comp) {
			*patches = append(*patches, Patch{Op: OpReplace, Node: prev.ID, Tree: next})
			return
		}
		// Prop changes on a placeholder re-render the child instance;
		// they are consumed by the runtime, not the renderer.
		next.ID = prev.ID

	case KindFragment:
		next.ID = prev.ID
		diffChildren(prev.ID, prev.Children, next.Children, patches)
	}
}

// diffProps emits one UpdateProps per changed key, in sorted key order so a
// given change always produces the same patch sequence. The "key" prop is
// identity, not data; function-valued props are runtime-local handlers and
// never patch.
func diffProps(id NodeID, prev, next Props, patches *[]Patch) {
	if len(prev) == 0 && len(next) == 0 {
		return
	}
	keys := make([]string, 0, len(prev)+len(next))
	for k := range prev {
		keys = append(keys, k)
	}
	for k := range next {
		if _, dup := prev[k]; !dup {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if k == "key" {
			continue
		}
		pv, inPrev := prev[k]
		nv, inNext := next[k]
		if IsHandler(pv) || IsHandler(nv) {
			continue
		}
		switch {
		case !inNext:
			*patches = append(*patches, Patch{Op: OpUpdateProps, Node: id, PropKey: k, Value: nil})
		case !inPrev:
			*patches = append(*patches, Patch{Op: OpUpdateProps, Node: id, PropKey: k, Value: nv})
		case !propEqual(pv, nv):
			*patches = append(*patches, Patch{Op: OpUpdateProps, Node: id, PropKey: k, Value: nv})
		}
	}
}

// diffChildren dispatches between keyed and positional reconciliation.
func diffChildren(parent NodeID, prev, next []*VNode, patches *[]Patch) {
	if hasKeys(prev) || hasKeys(next) {
		diffKeyedChildren(parent, prev, next, patches)
		return
	}
	maxLen := len(prev)
	if len(next) > maxLen {
		maxLen = len(next)
	}
	for i := 0; i < maxLen; i++ {
		var pc, nc *VNode
		if i < len(prev) {
			pc = prev[i]
		}
		if i < len(next) {
			nc = next[i]
		}
		diffNodes(pc, nc, parent, i, patches)
	}
}

// diffKeyedChildren reconciles keyed siblings by identity. Matched keys
// keep their node (and everything hanging off it); the longest increasing
// run of surviving old positions stays put and the rest move, so a pure
// permutation costs only its displaced nodes. Unkeyed nodes inside a keyed
// list never match and churn as remove+insert.
func diffKeyedChildren(parent NodeID, prev, next []*VNode, patches *[]Patch) {
	prevIndexByKey := make(map[string]int, len(prev))
	for i, c := range prev {
		if k := nodeKey(c); k != "" {
			prevIndexByKey[k] = i
		}
	}

	used := make([]bool, len(prev))
	matchIdx := make([]int, len(next))
	for i, nc := range next {
		matchIdx[i] = -1
		if k := nodeKey(nc); k != "" {
			if pi, ok := prevIndexByKey[k]; ok && !used[pi] && canMatch(prev[pi], nc) {
				matchIdx[i] = pi
				used[pi] = true
			}
		}
	}

	for pi, pc := range prev {
		if !used[pi] {
			*patches = append(*patches, Patch{Op: OpRemove, Node: pc.ID})
		}
	}

	seq := make([]int, 0, len(next))
	for _, pi := range matchIdx {
		if pi >= 0 {
			seq = append(seq, pi)
		}
	}
	stay := longestIncreasingRun(seq)

	surviving := 0
	for i, nc := range next {
		pi := matchIdx[i]
		if pi < 0 {
			*patches = append(*patches, Patch{Op: OpInsert, Parent: parent, Index: i, Tree: nc})
			continue
		}
		diffNodes(prev[pi], nc, parent, i, patches)
		if !stay[surviving] {
			*patches = append(*patches, Patch{Op: OpMove, Node: prev[pi].ID, Parent: parent, Index: surviving})
		}
		surviving++
	}
}

// canMatch reports whether a key match is usable. A reused key over a
// different kind, tag or component carries no state worth keeping, and a
// matched pair must never fall into the Replace branch: a Move aimed at a
// node the same batch replaces would dangle.
func canMatch(a, b *VNode) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindElement:
		return a.Tag == b.Tag
	case KindComponent:
		return SameComponent(a.Comp, b.Comp)
	}
	return true
}

// longestIncreasingRun returns a mask over seq marking one longest strictly
// increasing subsequence. seq holds distinct old positions in new order.
func longestIncreasingRun(seq []int) []bool {
	stay := make([]bool, len(seq))
	if len(seq) == 0 {
		return stay
	}
	tails := make([]int, 0, len(seq)) // indices into seq
	prevIdx := make([]int, len(seq))
	for i, v := range seq {
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if seq[tails[mid]] < v {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prevIdx[i] = tails[lo-1]
		} else {
			prevIdx[i] = -1
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}
	for i := tails[len(tails)-1]; i >= 0; i = prevIdx[i] {
		stay[i] = true
	}
	return stay
}

// PropsEqual reports whether two prop sets match under the reconciler's
// rules: shallow per-key comparison, handler props by presence only, the
// "key" prop excluded.
func PropsEqual(a, b Props) bool {
	for k, av := range a {
		if k == "key" {
			continue
		}
		bv, ok := b[k]
		if !ok {
			return false
		}
		if IsHandler(av) || IsHandler(bv) {
			if IsHandler(av) != IsHandler(bv) {
				return false
			}
			continue
		}
		if !propEqual(av, bv) {
			return false
		}
	}
	for k := range b {
		if k == "key" {
			continue
		}
		if _, ok := a[k]; !ok {
			return false
		}
	}
	return true
}

// propEqual compares two prop values shallowly, with fast paths for the
// common scalar types.
func propEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return reflect.DeepEqual(a, b)
}

// IsHandler reports whether a prop value is a function. Handler props
// never cross the wire and compare by presence, not value.
func IsHandler(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Func
}
