package server

import (
	"fmt"

	"github.com/loom-ui/loom/pkg/protocol"
	"github.com/loom-ui/loom/pkg/sched"
	"github.com/loom-ui/loom/pkg/vtree"
)

// patchSink is the session's renderer. The loop hands it the committed
// patches in application order; the sink turns each commit into one or
// more Patches frames, records them in the journal, and ships them to the
// client. All calls arrive on the loop goroutine.
type patchSink struct {
	session *Session
	buf     []vtree.Patch
}

var _ sched.Renderer = (*patchSink)(nil)

func (k *patchSink) Apply(p vtree.Patch) error {
	k.buf = append(k.buf, p)
	return nil
}

func (k *patchSink) Commit(seq uint64) error {
	patches := k.buf
	k.buf = k.buf[:0]
	if len(patches) == 0 {
		return nil
	}

	// One frame per commit in the common case. When the encoded batch
	// does not fit the u16 payload length, split at patch boundaries
	// into consecutive frames carrying the same sequence; every frame
	// but the last sets FlagMore.
	for start := 0; start < len(patches); {
		n := len(patches) - start
		var payload []byte
		for {
			payload = protocol.EncodeBatch(&protocol.PatchBatch{
				Seq:     seq,
				Patches: patches[start : start+n],
			})
			if len(payload) <= protocol.MaxPayloadSize || n == 1 {
				break
			}
			n /= 2
		}
		if len(payload) > protocol.MaxPayloadSize {
			return fmt.Errorf("server: commit %d patch %d: %w",
				seq, start, protocol.ErrFrameTooLarge)
		}

		var flags protocol.FrameFlags
		if start+n < len(patches) {
			flags |= protocol.FlagMore
		}
		frame := protocol.NewFrameWithFlags(protocol.FramePatches, flags, payload)
		if err := k.session.ship(seq, frame.Encode()); err != nil {
			return err
		}
		start += n
	}
	return nil
}
