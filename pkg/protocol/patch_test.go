package protocol

import (
	"errors"
	"reflect"
	"testing"

	"github.com/loom-ui/loom/pkg/vtree"
)

func testTree(t *testing.T, n *vtree.VNode) *vtree.VNode {
	t.Helper()
	vtree.AssignIDs(n, vtree.NewIDAllocator())
	return n
}

func TestPatchBatchEncodeDecode(t *testing.T) {
	insertTree := testTree(t, vtree.El("div", vtree.Props{"class": "item"},
		vtree.Text("hello"),
	))
	replaceTree := testTree(t, vtree.El("span", vtree.Props{"id": "r"}))

	tests := []struct {
		name  string
		patch vtree.Patch
	}{
		{
			name:  "update_props",
			patch: vtree.Patch{Op: vtree.OpUpdateProps, Node: 7, PropKey: "class", Value: "active"},
		},
		{
			name:  "update_props_delete",
			patch: vtree.Patch{Op: vtree.OpUpdateProps, Node: 7, PropKey: "disabled", Value: nil},
		},
		{
			name:  "remove",
			patch: vtree.Patch{Op: vtree.OpRemove, Node: 12},
		},
		{
			name:  "replace",
			patch: vtree.Patch{Op: vtree.OpReplace, Node: 3, Tree: replaceTree},
		},
		{
			name:  "move",
			patch: vtree.Patch{Op: vtree.OpMove, Node: 9, Parent: 2, Index: 4},
		},
		{
			name:  "insert",
			patch: vtree.Patch{Op: vtree.OpInsert, Parent: 1, Index: 0, Tree: insertTree},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := &PatchBatch{Seq: 42, Patches: []vtree.Patch{tc.patch}}
			out, err := DecodeBatch(EncodeBatch(in))
			if err != nil {
				t.Fatalf("DecodeBatch: %v", err)
			}
			if out.Seq != 42 {
				t.Errorf("Seq = %d, want 42", out.Seq)
			}
			if len(out.Patches) != 1 {
				t.Fatalf("decoded %d patches, want 1", len(out.Patches))
			}
			if !reflect.DeepEqual(out.Patches[0], tc.patch) {
				t.Errorf("patch = %+v, want %+v", out.Patches[0], tc.patch)
			}
		})
	}
}

func TestPatchBatchMultiple(t *testing.T) {
	in := &PatchBatch{
		Seq: 9,
		Patches: []vtree.Patch{
			{Op: vtree.OpUpdateProps, Node: 1, PropKey: "class", Value: "on"},
			{Op: vtree.OpRemove, Node: 2},
			{Op: vtree.OpMove, Node: 3, Parent: 1, Index: 2},
		},
	}

	out, err := DecodeBatch(EncodeBatch(in))
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("batch = %+v, want %+v", out, in)
	}
}

func TestPatchBatchEmpty(t *testing.T) {
	out, err := DecodeBatch(EncodeBatch(&PatchBatch{Seq: 1}))
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if out.Seq != 1 || len(out.Patches) != 0 {
		t.Errorf("batch = %+v, want seq 1 with no patches", out)
	}
}

func TestPatchValueNormalization(t *testing.T) {
	// Platform ints become int64 on the wire.
	in := &PatchBatch{Seq: 1, Patches: []vtree.Patch{
		{Op: vtree.OpUpdateProps, Node: 5, PropKey: "count", Value: 7},
	}}
	out, err := DecodeBatch(EncodeBatch(in))
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if got := out.Patches[0].Value; got != int64(7) {
		t.Errorf("Value = %v (%T), want int64(7)", got, got)
	}
}

func TestDecodeBatchUnknownOp(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(1) // seq
	e.WriteUvarint(1) // count
	e.WriteByte(0xEE) // bogus op

	if _, err := DecodeBatch(e.Bytes()); !errors.Is(err, ErrUnknownPatchOp) {
		t.Errorf("DecodeBatch error = %v, want ErrUnknownPatchOp", err)
	}
}

func TestDecodeBatchCollectionLimit(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(1)
	e.WriteUvarint(uint64(MaxCollectionCount + 1))

	if _, err := DecodeBatch(e.Bytes()); !errors.Is(err, ErrCollectionTooLarge) {
		t.Errorf("DecodeBatch error = %v, want ErrCollectionTooLarge", err)
	}
}

func TestNodeEncodeDecode(t *testing.T) {
	tree := testTree(t, vtree.El("ul", vtree.Props{"class": "list", "count": int64(2)},
		vtree.El("li", vtree.Props{"data-id": "a"}, vtree.Text("first")),
		vtree.Frag(
			vtree.Text("second"),
			vtree.El("li", nil),
		),
	))

	e := NewEncoder()
	EncodeNode(e, tree)

	out, err := DecodeNode(NewDecoder(e.Bytes()))
	if err != nil {
		t.Fatalf("DecodeNode: %v", err)
	}
	if !reflect.DeepEqual(out, tree) {
		t.Errorf("node = %+v, want %+v", out, tree)
	}
}

func TestNodeNil(t *testing.T) {
	e := NewEncoder()
	EncodeNode(e, nil)

	out, err := DecodeNode(NewDecoder(e.Bytes()))
	if err != nil {
		t.Fatalf("DecodeNode: %v", err)
	}
	if out != nil {
		t.Errorf("node = %+v, want nil", out)
	}
}

func TestNodeHandlerAndKeyStripped(t *testing.T) {
	handler := func() {}
	tree := testTree(t, vtree.El("button", vtree.Props{
		"class":   "cta",
		"onClick": handler,
		"key":     "b1",
	}))

	e := NewEncoder()
	EncodeNode(e, tree)

	out, err := DecodeNode(NewDecoder(e.Bytes()))
	if err != nil {
		t.Fatalf("DecodeNode: %v", err)
	}
	want := vtree.Props{"class": "cta"}
	if !reflect.DeepEqual(out.Props, want) {
		t.Errorf("Props = %+v, want %+v", out.Props, want)
	}
}

func TestNodeComponentIsLeaf(t *testing.T) {
	comp := &vtree.VNode{Kind: vtree.KindComponent, ID: 5}

	e := NewEncoder()
	EncodeNode(e, comp)

	out, err := DecodeNode(NewDecoder(e.Bytes()))
	if err != nil {
		t.Fatalf("DecodeNode: %v", err)
	}
	if out.Kind != vtree.KindComponent || out.ID != 5 {
		t.Errorf("node = %+v, want component leaf with ID 5", out)
	}
	if len(out.Children) != 0 {
		t.Errorf("component decoded with %d children, want 0", len(out.Children))
	}
}

func TestDecodeNodeDepthLimit(t *testing.T) {
	root := vtree.El("div", nil)
	cur := root
	for i := 0; i < MaxNodeDepth+1; i++ {
		child := vtree.El("div", nil)
		cur.Children = append(cur.Children, child)
		cur = child
	}
	vtree.AssignIDs(root, vtree.NewIDAllocator())

	e := NewEncoder()
	EncodeNode(e, root)

	if _, err := DecodeNode(NewDecoder(e.Bytes())); !errors.Is(err, ErrMaxDepthExceeded) {
		t.Errorf("DecodeNode error = %v, want ErrMaxDepthExceeded", err)
	}
}

func TestDecodeNodeInvalidKind(t *testing.T) {
	e := NewEncoder()
	e.WriteByte(0x7E) // not a kind, not the nil marker
	e.WriteUvarint(1)

	if _, err := DecodeNode(NewDecoder(e.Bytes())); !errors.Is(err, ErrInvalidNodeKind) {
		t.Errorf("DecodeNode error = %v, want ErrInvalidNodeKind", err)
	}
}

func TestDecodeNodeChildCountLimit(t *testing.T) {
	e := NewEncoder()
	e.WriteByte(byte(vtree.KindFragment))
	e.WriteUvarint(1)                              // id
	e.WriteUvarint(uint64(MaxCollectionCount + 1)) // forged child count

	if _, err := DecodeNode(NewDecoder(e.Bytes())); !errors.Is(err, ErrCollectionTooLarge) {
		t.Errorf("DecodeNode error = %v, want ErrCollectionTooLarge", err)
	}
}
