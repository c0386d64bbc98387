// Package vtest mounts components into a headless scheduler loop for
// unit testing. Patches land in an in-memory recorder instead of a
// transport, and every flush is synchronous, so tests read committed
// trees and patch lists without goroutines or sleeps.
//
// # Quick Start
//
//	func TestCounter(t *testing.T) {
//	    var count *loom.Signal[int]
//	    h := vtest.Mount(t, vtree.Func(func(rc vtree.RenderContext) *vtree.VNode {
//	        count = loom.NewSignal(rc.Graph(), 0)
//	        return vtree.El("div", vtree.Textf("count: %d", count.Get()))
//	    }))
//	    vtest.ExpectText(t, h.Tree(), "count: 0")
//
//	    h.Dispatch(func() { count.Set(1) })
//	    vtest.ExpectText(t, h.Tree(), "count: 1")
//	}
//
// # Driving the Loop
//
// Dispatch runs a function on the loop and drains all resulting renders
// before returning:
//
//	h.Dispatch(func() { name.Set("Ada") })
//
// Schedule queues a render pass without a signal write, and Flush drains
// whatever is pending:
//
//	h.Schedule(sched.Low)
//	h.Flush()
//
// # Tree Assertions
//
// Assertions walk the committed tree:
//
//	vtest.ExpectText(t, h.Tree(), "Welcome")
//	vtest.ExpectNoText(t, h.Tree(), "Error")
//	vtest.ExpectElement(t, h.Tree(), "button")
//	vtest.ExpectProp(t, h.Tree(), "button", "class", "primary")
//
// # Patch Assertions
//
// The recorder keeps every commit in order:
//
//	c := h.LastCommit()
//	if c.Patches[0].Op != vtree.OpUpdateProps { ... }
//	h.ExpectCommits(2)
//
// # Failure Injection
//
// FailNextApply makes the recorder reject the next patch, driving the
// loop's degraded path:
//
//	h.FailNextApply(errors.New("renderer gone"))
//	h.Dispatch(func() { count.Set(2) })
//	// h.Loop().Degraded() is now true
package vtest
