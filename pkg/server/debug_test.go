package server

import (
	"encoding/json"
	"testing"

	"github.com/loom-ui/loom/pkg/vtree"
)

func TestDumpNode(t *testing.T) {
	ch := make(chan int)
	n := vtree.El("button",
		vtree.Props{
			"class":   "primary",
			"onclick": func() {},
			"raw":     ch,
		},
		vtree.Text("save"),
	)
	n.ID = 12
	n.Children[0].ID = 13

	out := dumpNode(n)

	if out.Kind != "element" || out.Tag != "button" || out.ID != 12 {
		t.Errorf("node = %+v", out)
	}
	if _, ok := out.Props["onclick"]; ok {
		t.Error("handler prop leaked into the dump")
	}
	if got := out.Props["class"]; got != "primary" {
		t.Errorf("class = %v, want primary", got)
	}
	if _, ok := out.Props["raw"].(string); !ok {
		t.Errorf("unserializable prop = %#v, want stringified", out.Props["raw"])
	}
	if len(out.Children) != 1 || out.Children[0].Text != "save" {
		t.Fatalf("children = %+v", out.Children)
	}
	if out.Children[0].ID != 13 {
		t.Errorf("child id = %d, want 13", out.Children[0].ID)
	}

	// The dump must be JSON-encodable as a whole.
	if _, err := json.Marshal(out); err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
}

func TestDumpNodeNil(t *testing.T) {
	if out := dumpNode(nil); out != nil {
		t.Errorf("dumpNode(nil) = %+v, want nil", out)
	}
}
