// Package protocol implements the binary wire protocol between a loom
// host and its remote renderer clients.
//
// Patch batches flow host to client; schedule and invalidate requests flow
// client to host. The encoding is hand-rolled byte manipulation, no
// reflection, sized for frames that usually fit in well under a hundred
// bytes.
//
// # Wire Format
//
// Every message is framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHandshake (0x00): connection setup, both directions
//   - FramePatches (0x01): host → client committed patch batch
//   - FrameSchedule (0x02): client → host render pass request
//   - FrameInvalidate (0x03): client → host signal invalidation
//   - FrameAck (0x04): client → host batch acknowledgment
//   - FrameControl (0x05): ping, pong, resync, close
//   - FrameError (0x06): error report
//
// # Encoding
//
//   - Varint: protobuf-style, 7 bits per byte with continuation bit
//   - ZigZag: signed integers mapped onto unsigned varints
//   - Length-prefixed: strings and byte slices carry a varint length
//   - Big-endian: fixed-width integers
//
// Patch batches carry the commit sequence number followed by the ordered
// patches; each patch is an op byte plus op-specific fields. Inserted and
// replacing subtrees are encoded as wire node trees with handler props
// stripped.
//
// Decoding enforces allocation, collection and depth limits so a hostile
// peer cannot force large allocations or deep recursion.
package protocol
