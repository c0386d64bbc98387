package protocol

import (
	"errors"

	"github.com/loom-ui/loom/pkg/vtree"
)

// ErrInvalidNodeKind is returned when a decoded node carries an
// unrecognized kind byte.
var ErrInvalidNodeKind = errors.New("protocol: invalid node kind")

// Node wire format. Every node starts with a kind byte (0xFF marks nil),
// then its node id as a varint and kind-specific fields. Handler props
// are stripped; reconciliation keys never cross the wire. Component
// placeholders encode as leaves, their rendered subtrees arrive as
// separate Insert patches targeting the placeholder id.

const nodeNil = 0xFF

// EncodeNode encodes a virtual node tree using the provided encoder.
func EncodeNode(e *Encoder, n *vtree.VNode) {
	if n == nil {
		e.WriteByte(nodeNil)
		return
	}

	e.WriteByte(byte(n.Kind))
	e.WriteUvarint(uint64(n.ID))

	switch n.Kind {
	case vtree.KindElement:
		e.WriteString(n.Tag)
		encodeProps(e, n.Props)
		e.WriteUvarint(uint64(len(n.Children)))
		for _, child := range n.Children {
			EncodeNode(e, child)
		}

	case vtree.KindText:
		e.WriteString(n.Text)

	case vtree.KindFragment:
		e.WriteUvarint(uint64(len(n.Children)))
		for _, child := range n.Children {
			EncodeNode(e, child)
		}

	case vtree.KindComponent:
		// Leaf on the wire.
	}
}

func encodeProps(e *Encoder, props vtree.Props) {
	n := 0
	for k, v := range props {
		if k == "key" || vtree.IsHandler(v) {
			continue
		}
		n++
	}
	e.WriteUvarint(uint64(n))
	for k, v := range props {
		if k == "key" || vtree.IsHandler(v) {
			continue
		}
		e.WriteString(k)
		EncodeValue(e, v)
	}
}

// DecodeNode decodes a virtual node tree.
func DecodeNode(d *Decoder) (*vtree.VNode, error) {
	return decodeNodeDepth(d, 0)
}

func decodeNodeDepth(d *Decoder, depth int) (*vtree.VNode, error) {
	if err := checkDepth(depth, MaxNodeDepth); err != nil {
		return nil, err
	}

	kindByte, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if kindByte == nodeNil {
		return nil, nil
	}

	id, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	n := &vtree.VNode{
		Kind: vtree.Kind(kindByte),
		ID:   vtree.NodeID(id),
	}

	switch n.Kind {
	case vtree.KindElement:
		if n.Tag, err = d.ReadString(); err != nil {
			return nil, err
		}
		if n.Props, err = decodeProps(d); err != nil {
			return nil, err
		}
		if n.Children, err = decodeChildren(d, depth); err != nil {
			return nil, err
		}

	case vtree.KindText:
		if n.Text, err = d.ReadString(); err != nil {
			return nil, err
		}

	case vtree.KindFragment:
		if n.Children, err = decodeChildren(d, depth); err != nil {
			return nil, err
		}

	case vtree.KindComponent:
		// Leaf on the wire.

	default:
		return nil, ErrInvalidNodeKind
	}

	return n, nil
}

func decodeProps(d *Decoder) (vtree.Props, error) {
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	props := make(vtree.Props, count)
	for i := 0; i < count; i++ {
		k, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		if props[k], err = DecodeValue(d); err != nil {
			return nil, err
		}
	}
	return props, nil
}

func decodeChildren(d *Decoder, depth int) ([]*vtree.VNode, error) {
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	children := make([]*vtree.VNode, count)
	for i := 0; i < count; i++ {
		if children[i], err = decodeNodeDepth(d, depth+1); err != nil {
			return nil, err
		}
	}
	return children, nil
}
