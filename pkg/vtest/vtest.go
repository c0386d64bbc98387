package vtest

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/loom-ui/loom/pkg/loom"
	"github.com/loom-ui/loom/pkg/sched"
	"github.com/loom-ui/loom/pkg/vtree"
)

type options struct {
	props    vtree.Props
	loopOpts []sched.LoopOption
}

// Option configures a harness mount.
type Option func(*options)

// WithProps passes props to the mounted component.
func WithProps(props vtree.Props) Option {
	return func(o *options) { o.props = props }
}

// WithLoopOptions forwards options to the underlying loop, for tests
// that need a fake clock or a frame budget.
func WithLoopOptions(opts ...sched.LoopOption) Option {
	return func(o *options) { o.loopOpts = append(o.loopOpts, opts...) }
}

// Harness drives one mounted component through a headless loop.
type Harness struct {
	tb   testing.TB
	loop *sched.Loop
	rec  *Recorder
	root sched.FiberID

	mu   sync.Mutex
	errs []error
}

// Mount builds a loop around a recorder, mounts comp, and flushes the
// initial render. Errors the loop surfaces are collected on the harness
// rather than failing the test, so degraded paths stay testable.
func Mount(tb testing.TB, comp vtree.Component, opts ...Option) *Harness {
	tb.Helper()
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	h := &Harness{tb: tb, rec: &Recorder{}}
	loopOpts := append([]sched.LoopOption{
		sched.WithOnError(func(err error) {
			h.mu.Lock()
			h.errs = append(h.errs, err)
			h.mu.Unlock()
		}),
	}, o.loopOpts...)

	h.loop = sched.NewLoop(h.rec, loopOpts...)
	h.root = h.loop.Mount(comp, o.props)
	h.loop.FlushSync()
	return h
}

// Loop returns the underlying scheduler loop.
func (h *Harness) Loop() *sched.Loop { return h.loop }

// Graph returns the loop's reactive graph, for creating signals outside
// a render.
func (h *Harness) Graph() *loom.Graph { return h.loop.Graph() }

// Root returns the mounted root's fiber id.
func (h *Harness) Root() sched.FiberID { return h.root }

// Recorder returns the renderer capturing the commits.
func (h *Harness) Recorder() *Recorder { return h.rec }

// Dispatch runs fn on the loop and drains every resulting render before
// returning.
func (h *Harness) Dispatch(fn func()) {
	h.loop.DispatchSync(fn)
}

// Flush drains all pending passes and effects.
func (h *Harness) Flush() {
	h.loop.FlushSync()
}

// Schedule queues a render pass for the root at prio and flushes it.
func (h *Harness) Schedule(prio sched.Priority) {
	h.loop.Schedule(h.root, prio)
	h.loop.FlushSync()
}

// Unmount tears down the root and flushes the removal commit.
func (h *Harness) Unmount() {
	h.loop.Unmount(h.root)
	h.loop.FlushSync()
}

// Tree returns the root's committed tree. It fails the test when nothing
// has been committed.
func (h *Harness) Tree() *vtree.VNode {
	h.tb.Helper()
	snap := h.loop.Snapshot(h.root)
	if snap == nil {
		h.tb.Fatal("no committed tree")
	}
	return snap
}

// LastCommit returns the most recent commit. It fails the test when no
// commit has happened.
func (h *Harness) LastCommit() Commit {
	h.tb.Helper()
	n := h.rec.Len()
	if n == 0 {
		h.tb.Fatal("no commits recorded")
	}
	return h.rec.At(n - 1)
}

// ExpectCommits asserts the total number of commits so far.
func (h *Harness) ExpectCommits(want int) {
	h.tb.Helper()
	if got := h.rec.Len(); got != want {
		h.tb.Errorf("commits = %d, want %d", got, want)
	}
}

// FailNextApply arms the recorder to reject the next patch.
func (h *Harness) FailNextApply(err error) {
	h.rec.FailNextApply(err)
}

// Errors returns every error the loop surfaced so far.
func (h *Harness) Errors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.errs...)
}

// ExpectText asserts that some text node in the tree contains want.
//
// Example:
//
//	vtest.ExpectText(t, h.Tree(), "Welcome")
func ExpectText(tb testing.TB, tree *vtree.VNode, want string) {
	tb.Helper()
	hit := vtree.Find(tree, func(n *vtree.VNode) bool {
		return n.Kind == vtree.KindText && strings.Contains(n.Text, want)
	})
	if hit == nil {
		tb.Errorf("expected tree to contain text %q, got:\n%s", want, dumpText(tree))
	}
}

// ExpectNoText asserts that no text node in the tree contains unwanted.
func ExpectNoText(tb testing.TB, tree *vtree.VNode, unwanted string) {
	tb.Helper()
	hit := vtree.Find(tree, func(n *vtree.VNode) bool {
		return n.Kind == vtree.KindText && strings.Contains(n.Text, unwanted)
	})
	if hit != nil {
		tb.Errorf("expected tree to NOT contain text %q, got:\n%s", unwanted, dumpText(tree))
	}
}

// ExpectElement asserts that the tree contains an element with tag.
//
// Example:
//
//	vtest.ExpectElement(t, h.Tree(), "button")
func ExpectElement(tb testing.TB, tree *vtree.VNode, tag string) {
	tb.Helper()
	if findElement(tree, tag) == nil {
		tb.Errorf("expected tree to contain <%s> element", tag)
	}
}

// ExpectProp asserts that the first element with tag carries prop key
// with the given value.
//
// Example:
//
//	vtest.ExpectProp(t, h.Tree(), "button", "class", "primary")
func ExpectProp(tb testing.TB, tree *vtree.VNode, tag, key string, want any) {
	tb.Helper()
	el := findElement(tree, tag)
	if el == nil {
		tb.Errorf("expected tree to contain <%s> element", tag)
		return
	}
	got, ok := el.Props[key]
	if !ok {
		tb.Errorf("<%s> has no prop %q", tag, key)
		return
	}
	if !reflect.DeepEqual(got, want) {
		tb.Errorf("<%s> prop %s = %v, want %v", tag, key, got, want)
	}
}

func findElement(tree *vtree.VNode, tag string) *vtree.VNode {
	return vtree.Find(tree, func(n *vtree.VNode) bool {
		return n.Kind == vtree.KindElement && n.Tag == tag
	})
}

// dumpText flattens the tree's text content for failure messages.
func dumpText(tree *vtree.VNode) string {
	var b strings.Builder
	vtree.Walk(tree, func(n *vtree.VNode) {
		if n.Kind == vtree.KindText && n.Text != "" {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(n.Text)
		}
	})
	if b.Len() == 0 {
		return "(no text nodes)"
	}
	return b.String()
}
