package vtree

import (
	"fmt"
	"strconv"
)

// El builds an element node. Arguments fold by type: Props maps merge into
// the node's props (later keys win), *VNode and []*VNode append as children,
// strings and ints become text children, nil args are skipped.
func El(tag string, args ...any) *VNode {
	n := &VNode{Kind: KindElement, Tag: tag}
	for _, arg := range args {
		switch a := arg.(type) {
		case nil:
		case Props:
			if n.Props == nil {
				n.Props = make(Props, len(a))
			}
			for k, v := range a {
				n.Props[k] = v
			}
		case *VNode:
			if a != nil {
				n.Children = append(n.Children, a)
			}
		case []*VNode:
			for _, c := range a {
				if c != nil {
					n.Children = append(n.Children, c)
				}
			}
		case string:
			n.Children = append(n.Children, Text(a))
		case int:
			n.Children = append(n.Children, Text(strconv.Itoa(a)))
		default:
			panic(fmt.Sprintf("vtree: El(%q): unsupported argument type %T", tag, arg))
		}
	}
	return n
}

// Text builds a text node.
func Text(s string) *VNode {
	return &VNode{Kind: KindText, Text: s}
}

// Textf builds a text node from a format string.
func Textf(format string, a ...any) *VNode {
	return Text(fmt.Sprintf(format, a...))
}

// Frag groups children without introducing an element. Nil children are
// skipped.
func Frag(children ...*VNode) *VNode {
	n := &VNode{Kind: KindFragment}
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

// Comp builds a component placeholder. The runtime mounts an instance for
// it and renders the instance's own subtree; placeholders carry props but
// no children.
func Comp(c Component, props Props) *VNode {
	return &VNode{Kind: KindComponent, Comp: c, Props: props}
}

// Keyed assigns a reconciliation key and returns the node.
func Keyed(key string, n *VNode) *VNode {
	n.Key = key
	return n
}

// If returns the node when cond holds, nil otherwise. Nil nodes vanish in
// El and Frag.
func If(cond bool, n *VNode) *VNode {
	if cond {
		return n
	}
	return nil
}

// IfElse picks between two nodes.
func IfElse(cond bool, then, otherwise *VNode) *VNode {
	if cond {
		return then
	}
	return otherwise
}

// Map renders a slice through fn, for building child lists.
func Map[T any](items []T, fn func(T) *VNode) []*VNode {
	out := make([]*VNode, 0, len(items))
	for _, it := range items {
		if n := fn(it); n != nil {
			out = append(out, n)
		}
	}
	return out
}
