package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/loom-ui/loom/pkg/vtree"
)

// treeNode is the JSON shape of one committed virtual node. Handler props
// are elided the same way the wire codec elides them.
type treeNode struct {
	Kind     string         `json:"kind"`
	ID       uint64         `json:"id,omitempty"`
	Tag      string         `json:"tag,omitempty"`
	Key      string         `json:"key,omitempty"`
	Text     string         `json:"text,omitempty"`
	Props    map[string]any `json:"props,omitempty"`
	Children []*treeNode    `json:"children,omitempty"`
}

func dumpNode(n *vtree.VNode) *treeNode {
	if n == nil {
		return nil
	}
	t := &treeNode{
		Kind: n.Kind.String(),
		ID:   uint64(n.ID),
		Tag:  n.Tag,
		Key:  n.Key,
		Text: n.Text,
	}
	for k, v := range n.Props {
		if vtree.IsHandler(v) {
			continue
		}
		if t.Props == nil {
			t.Props = make(map[string]any)
		}
		if _, err := json.Marshal(v); err != nil {
			t.Props[k] = fmt.Sprintf("%v", v)
			continue
		}
		t.Props[k] = v
	}
	for _, c := range n.Children {
		t.Children = append(t.Children, dumpNode(c))
	}
	return t
}

// sessionTree is the /debug/tree entry for one session.
type sessionTree struct {
	Session string       `json:"session"`
	Stats   SessionStats `json:"stats"`
	Roots   []*treeNode  `json:"roots"`
}

// handleDebugTree dumps every session's committed trees. Committed trees
// are immutable, so reading them off-loop is safe.
func (s *Server) handleDebugTree(w http.ResponseWriter, _ *http.Request) {
	var out []sessionTree
	s.sessions.Range(func(sess *Session) bool {
		st := sessionTree{Session: sess.ID, Stats: sess.Stats()}
		for _, id := range sess.loop.Roots() {
			if snap := sess.loop.Snapshot(id); snap != nil {
				st.Roots = append(st.Roots, dumpNode(snap))
			}
		}
		out = append(out, st)
		return true
	})
	if out == nil {
		out = []sessionTree{}
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
