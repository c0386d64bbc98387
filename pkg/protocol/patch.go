package protocol

import (
	"errors"

	"github.com/loom-ui/loom/pkg/vtree"
)

// ErrUnknownPatchOp is returned when a decoded patch carries an op byte
// this version does not understand. Skipping an unknown op would leave
// the two trees out of sync, so decoding fails instead and the client
// falls back to a resync.
var ErrUnknownPatchOp = errors.New("protocol: unknown patch op")

// PatchBatch is one committed frame of tree changes: the commit sequence
// number followed by the patches in application order.
type PatchBatch struct {
	Seq     uint64
	Patches []vtree.Patch
}

// EncodeBatch encodes a patch batch to a byte slice.
func EncodeBatch(b *PatchBatch) []byte {
	e := NewEncoder()
	EncodeBatchTo(e, b)
	return e.Bytes()
}

// EncodeBatchTo encodes a patch batch using the provided encoder.
func EncodeBatchTo(e *Encoder, b *PatchBatch) {
	e.WriteUvarint(b.Seq)
	e.WriteUvarint(uint64(len(b.Patches)))
	for i := range b.Patches {
		encodePatch(e, &b.Patches[i])
	}
}

func encodePatch(e *Encoder, p *vtree.Patch) {
	e.WriteByte(byte(p.Op))

	switch p.Op {
	case vtree.OpUpdateProps:
		e.WriteUvarint(uint64(p.Node))
		e.WriteString(p.PropKey)
		EncodeValue(e, p.Value)

	case vtree.OpRemove:
		e.WriteUvarint(uint64(p.Node))

	case vtree.OpReplace:
		e.WriteUvarint(uint64(p.Node))
		EncodeNode(e, p.Tree)

	case vtree.OpMove:
		e.WriteUvarint(uint64(p.Node))
		e.WriteUvarint(uint64(p.Parent))
		e.WriteUvarint(uint64(p.Index))

	case vtree.OpInsert:
		e.WriteUvarint(uint64(p.Parent))
		e.WriteUvarint(uint64(p.Index))
		EncodeNode(e, p.Tree)
	}
}

// DecodeBatch decodes a patch batch from a byte slice.
func DecodeBatch(data []byte) (*PatchBatch, error) {
	return DecodeBatchFrom(NewDecoder(data))
}

// DecodeBatchFrom decodes a patch batch using the provided decoder.
func DecodeBatchFrom(d *Decoder) (*PatchBatch, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}

	b := &PatchBatch{Seq: seq}
	if count > 0 {
		b.Patches = make([]vtree.Patch, count)
	}
	for i := 0; i < count; i++ {
		if err := decodePatch(d, &b.Patches[i]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func decodePatch(d *Decoder, p *vtree.Patch) error {
	opByte, err := d.ReadByte()
	if err != nil {
		return err
	}
	p.Op = vtree.Op(opByte)

	switch p.Op {
	case vtree.OpUpdateProps:
		if err := readNodeID(d, &p.Node); err != nil {
			return err
		}
		if p.PropKey, err = d.ReadString(); err != nil {
			return err
		}
		if p.Value, err = DecodeValue(d); err != nil {
			return err
		}

	case vtree.OpRemove:
		return readNodeID(d, &p.Node)

	case vtree.OpReplace:
		if err := readNodeID(d, &p.Node); err != nil {
			return err
		}
		if p.Tree, err = DecodeNode(d); err != nil {
			return err
		}

	case vtree.OpMove:
		if err := readNodeID(d, &p.Node); err != nil {
			return err
		}
		if err := readNodeID(d, &p.Parent); err != nil {
			return err
		}
		idx, err := d.ReadUvarint()
		if err != nil {
			return err
		}
		p.Index = int(idx)

	case vtree.OpInsert:
		if err := readNodeID(d, &p.Parent); err != nil {
			return err
		}
		idx, err := d.ReadUvarint()
		if err != nil {
			return err
		}
		p.Index = int(idx)
		if p.Tree, err = DecodeNode(d); err != nil {
			return err
		}

	default:
		return ErrUnknownPatchOp
	}

	return nil
}

func readNodeID(d *Decoder, dst *vtree.NodeID) error {
	v, err := d.ReadUvarint()
	if err != nil {
		return err
	}
	*dst = vtree.NodeID(v)
	return nil
}
