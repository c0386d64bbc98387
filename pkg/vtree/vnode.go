package vtree

import (
	"reflect"

	"github.com/loom-ui/loom/pkg/loom"
)

// Kind discriminates the closed set of virtual node variants. Every
// traversal in this package switches exhaustively over it.
type Kind uint8

const (
	// KindElement is a platform element with a tag, props, and children.
	KindElement Kind = iota + 1
	// KindText is a leaf holding text content.
	KindText
	// KindComponent is a placeholder for a child component instance; its
	// subtree is rendered and reconciled by that instance's own fiber.
	KindComponent
	// KindFragment groups children without introducing an element.
	KindFragment
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindComponent:
		return "component"
	case KindFragment:
		return "fragment"
	default:
		return "invalid"
	}
}

// NodeID identifies a realized node across patches and render passes.
// Zero means unassigned.
type NodeID uint64

// Props is the property bag of a node. Values are compared shallowly,
// key by key, during reconciliation. Function-valued props (handlers) are
// compared by presence only and never leave the runtime.
type Props map[string]any

// VNode is one node of a virtual tree.
type VNode struct {
	Kind     Kind
	ID       NodeID
	Tag      string // element tag, KindElement only
	Props    Props
	Children []*VNode
	Key      string // stable sibling identity, optional
	Text     string // content, KindText only
	Comp     Component // KindComponent only

	// fp caches the subtree fingerprint; zero until computed.
	fp uint64
}

// RenderContext is what a component sees while rendering: the reactive
// graph it may create state in, and the props its parent passed. Concrete
// contexts are provided by the scheduling runtime.
type RenderContext interface {
	// Graph returns the reactive graph of the owning runtime instance.
	Graph() *loom.Graph
	// Props returns the props passed by the parent for this render.
	Props() Props
}

// Component produces a virtual subtree from the current state of the world.
// Render runs on the runtime's render worker; it may read and write signals
// and create reactive state, which survives re-renders of the same instance.
type Component interface {
	Render(rc RenderContext) *VNode
}

// Func adapts a plain function to Component.
type Func func(rc RenderContext) *VNode

// Render implements Component.
func (f Func) Render(rc RenderContext) *VNode { return f(rc) }

// SameComponent reports whether two placeholders refer to the same
// component definition, which is the reconciler's type-match criterion for
// KindComponent slots. Func components compare by function identity, other
// implementations by dynamic type.
func SameComponent(a, b Component) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if fa, ok := a.(Func); ok {
		return reflect.ValueOf(fa).Pointer() == reflect.ValueOf(b.(Func)).Pointer()
	}
	return true
}

// nodeKey returns the node's reconciliation key: the Key field, or a
// string-valued "key" prop.
func nodeKey(n *VNode) string {
	if n == nil {
		return ""
	}
	if n.Key != "" {
		return n.Key
	}
	if n.Props == nil {
		return ""
	}
	if k, ok := n.Props["key"].(string); ok {
		return k
	}
	return ""
}

// hasKeys reports whether any child carries a key.
func hasKeys(children []*VNode) bool {
	for _, c := range children {
		if nodeKey(c) != "" {
			return true
		}
	}
	return false
}

// Walk visits n and every descendant in depth-first order. Component
// placeholders carry no children of their own; their rendered subtrees
// live on other fibers and are not reachable from here.
func Walk(n *VNode, visit func(*VNode)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.Children {
		Walk(c, visit)
	}
}

// Find returns the first node in the subtree for which pred holds.
func Find(n *VNode, pred func(*VNode) bool) *VNode {
	if n == nil {
		return nil
	}
	if pred(n) {
		return n
	}
	for _, c := range n.Children {
		if hit := Find(c, pred); hit != nil {
			return hit
		}
	}
	return nil
}

// Clone returns a deep copy of the subtree. Props maps are copied shallowly
// per node; children slices are fresh.
func Clone(n *VNode) *VNode {
	if n == nil {
		return nil
	}
	cp := *n
	if n.Props != nil {
		cp.Props = make(Props, len(n.Props))
		for k, v := range n.Props {
			cp.Props[k] = v
		}
	}
	if n.Children != nil {
		cp.Children = make([]*VNode, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = Clone(c)
		}
	}
	return &cp
}
