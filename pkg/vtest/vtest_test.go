package vtest_test

import (
	"errors"
	"testing"

	"github.com/loom-ui/loom/pkg/loom"
	"github.com/loom-ui/loom/pkg/sched"
	"github.com/loom-ui/loom/pkg/vtest"
	"github.com/loom-ui/loom/pkg/vtree"
)

func counter() (vtree.Component, **loom.Signal[int]) {
	sig := new(*loom.Signal[int])
	comp := vtree.Func(func(rc vtree.RenderContext) *vtree.VNode {
		s := loom.NewSignal(rc.Graph(), 0)
		*sig = s
		return vtree.El("div",
			vtree.Textf("count: %d", s.Get()),
			vtree.El("button", vtree.Props{"class": "primary"}, "inc"),
		)
	})
	return comp, sig
}

func TestMountCommitsInitialTree(t *testing.T) {
	comp, _ := counter()
	h := vtest.Mount(t, comp)

	h.ExpectCommits(1)
	c := h.LastCommit()
	if c.Seq != 1 {
		t.Errorf("seq = %d, want 1", c.Seq)
	}
	if len(c.Patches) != 1 || c.Patches[0].Op != vtree.OpInsert {
		t.Fatalf("patches = %v, want one Insert", c.Patches)
	}

	vtest.ExpectText(t, h.Tree(), "count: 0")
	vtest.ExpectElement(t, h.Tree(), "button")
	vtest.ExpectProp(t, h.Tree(), "button", "class", "primary")
}

func TestDispatchRerenders(t *testing.T) {
	comp, sig := counter()
	h := vtest.Mount(t, comp)

	h.Dispatch(func() { (*sig).Set(3) })

	h.ExpectCommits(2)
	vtest.ExpectText(t, h.Tree(), "count: 3")
	vtest.ExpectNoText(t, h.Tree(), "count: 0")

	c := h.LastCommit()
	if len(c.Patches) != 1 {
		t.Fatalf("patches = %v, want one text update", c.Patches)
	}
	p := c.Patches[0]
	if p.Op != vtree.OpUpdateProps || p.PropKey != "text" || p.Value != "count: 3" {
		t.Errorf("patch = %v", p)
	}
}

func TestScheduleForcesRender(t *testing.T) {
	renders := 0
	h := vtest.Mount(t, vtree.Func(func(rc vtree.RenderContext) *vtree.VNode {
		renders++
		return vtree.El("div", vtree.Textf("render %d", renders))
	}))
	vtest.ExpectText(t, h.Tree(), "render 1")

	h.Schedule(sched.Normal)

	vtest.ExpectText(t, h.Tree(), "render 2")
	h.ExpectCommits(2)
}

func TestWithProps(t *testing.T) {
	h := vtest.Mount(t, vtree.Func(func(rc vtree.RenderContext) *vtree.VNode {
		name, _ := rc.Props()["name"].(string)
		return vtree.El("div", vtree.Textf("hello %s", name))
	}), vtest.WithProps(vtree.Props{"name": "Ada"}))

	vtest.ExpectText(t, h.Tree(), "hello Ada")
}

func TestUnmountCommitsRemoval(t *testing.T) {
	comp, _ := counter()
	h := vtest.Mount(t, comp)

	h.Unmount()

	c := h.LastCommit()
	if len(c.Patches) != 1 || c.Patches[0].Op != vtree.OpRemove {
		t.Fatalf("patches = %v, want one Remove", c.Patches)
	}
}

func TestFailNextApplyDegradesLoop(t *testing.T) {
	comp, sig := counter()
	h := vtest.Mount(t, comp)

	h.FailNextApply(errors.New("renderer gone"))
	h.Dispatch(func() { (*sig).Set(1) })

	if !h.Loop().Degraded() {
		t.Error("loop should be degraded after a failed apply")
	}
	h.ExpectCommits(1)
	if len(h.Errors()) == 0 {
		t.Error("surfaced error not collected")
	}
}

// The assertion helpers report through the provided TB, so a throwaway
// instance shows whether they would have failed.
func TestExpectHelpers(t *testing.T) {
	comp, _ := counter()
	h := vtest.Mount(t, comp)
	tree := h.Tree()

	pass := &testing.T{}
	vtest.ExpectText(pass, tree, "count: 0")
	vtest.ExpectNoText(pass, tree, "goodbye")
	vtest.ExpectElement(pass, tree, "div")
	vtest.ExpectProp(pass, tree, "button", "class", "primary")
	if pass.Failed() {
		t.Error("assertions failed on a matching tree")
	}

	fail := &testing.T{}
	vtest.ExpectText(fail, tree, "missing")
	if !fail.Failed() {
		t.Error("ExpectText passed on absent text")
	}

	fail = &testing.T{}
	vtest.ExpectElement(fail, tree, "table")
	if !fail.Failed() {
		t.Error("ExpectElement passed on absent tag")
	}

	fail = &testing.T{}
	vtest.ExpectProp(fail, tree, "button", "class", "secondary")
	if !fail.Failed() {
		t.Error("ExpectProp passed on wrong value")
	}
}
