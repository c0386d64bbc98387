package vtree

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a structural hash of the subtree: kind, tag, key,
// text, props, and children, but not node ids. Equal fingerprints let the
// reconciler skip whole subtrees. The value is cached on the node; trees
// must not be mutated after the first call.
func Fingerprint(n *VNode) uint64 {
	if n == nil {
		return 0
	}
	if n.fp != 0 {
		return n.fp
	}

	d := xxhash.New()
	var scratch [8]byte

	d.Write([]byte{byte(n.Kind)})
	d.WriteString(n.Tag)
	d.WriteString(n.Key)
	d.WriteString(n.Text)

	if len(n.Props) > 0 {
		keys := make([]string, 0, len(n.Props))
		for k := range n.Props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			d.WriteString(k)
			// Handler props hash by presence; values are runtime-local.
			if IsHandler(n.Props[k]) {
				d.WriteString("\x00fn")
				continue
			}
			fmt.Fprintf(d, "%v", n.Props[k])
		}
	}

	if n.Kind == KindComponent && n.Comp != nil {
		// Placeholders fingerprint by component identity. Their rendered
		// subtree lives in another fiber and is invisible here.
		rv := reflect.ValueOf(n.Comp)
		fmt.Fprintf(d, "%s", rv.Type())
		switch rv.Kind() {
		case reflect.Func, reflect.Pointer:
			binary.LittleEndian.PutUint64(scratch[:], uint64(rv.Pointer()))
			d.Write(scratch[:])
		}
	}

	for _, c := range n.Children {
		binary.LittleEndian.PutUint64(scratch[:], Fingerprint(c))
		d.Write(scratch[:])
	}

	h := d.Sum64()
	if h == 0 {
		h = 1
	}
	n.fp = h
	return h
}
