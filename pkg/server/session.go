package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/loom-ui/loom/pkg/journal"
	"github.com/loom-ui/loom/pkg/protocol"
	"github.com/loom-ui/loom/pkg/sched"
	"github.com/loom-ui/loom/pkg/telemetry"
)

// errNotConnected reports a write attempted while the session is detached.
var errNotConnected = errors.New("server: session not connected")

// Session owns one client's scheduler loop, journal, and WebSocket
// connection. The loop keeps running while the client is away; committed
// frames accumulate in the journal and are replayed on reconnect.
type Session struct {
	ID        string
	CreatedAt time.Time

	srv    *Server
	config *Config
	logger *slog.Logger

	// conn is nil while detached. writeMu serializes conn writes and
	// guards the swap on reattach.
	conn    *websocket.Conn
	writeMu sync.Mutex

	loop *sched.Loop

	journal  *journal.Journal
	archiver *journal.Archiver

	cancel context.CancelFunc
	done   chan struct{}

	closed     atomic.Bool
	lastActive atomic.Int64 // unix nanos
	ackWindow  atomic.Uint64

	bytesSent  atomic.Uint64
	bytesRecv  atomic.Uint64
	framesSent atomic.Uint64
}

// newSessionID returns a cryptographically random session id.
func newSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Weak session ids are worse than no server.
		panic(fmt.Sprintf("server: crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// newSession builds a session around a fresh loop. The caller mounts the
// root and calls start once the handshake reply is on the wire.
func newSession(srv *Server, conn *websocket.Conn) *Session {
	s := &Session{
		ID:        newSessionID(),
		CreatedAt: time.Now(),
		srv:       srv,
		config:    srv.config,
		conn:      conn,
		journal:   journal.New(srv.config.JournalCapacity),
		done:      make(chan struct{}),
	}
	s.logger = srv.logger.With("session_id", s.ID)
	s.touch()
	s.ackWindow.Store(protocol.DefaultWindow)

	sink := &patchSink{session: s}
	opts := []sched.LoopOption{
		sched.WithObserver(telemetry.Fanout(
			srv.metrics,
			telemetry.NewTracing(),
			telemetry.NewLogging(s.logger),
		)),
		sched.WithOnError(func(err error) {
			s.logger.Error("loop error", "error", err)
		}),
	}
	if srv.config.FrameBudget > 0 {
		opts = append(opts, sched.WithFrameBudget(srv.config.FrameBudget))
	}
	if srv.config.Aging > 0 {
		opts = append(opts, sched.WithAging(srv.config.Aging))
	}
	s.loop = sched.NewLoop(sink, opts...)

	if srv.config.ArchiveStore != nil {
		s.archiver = journal.NewArchiver(
			srv.config.ArchiveStore,
			srv.config.ArchiveBucket,
			s.ID+"/",
			journal.WithLogger(s.logger),
		)
	}
	return s
}

// start launches the loop, the archiver, and the per-connection pumps.
func (s *Session) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		if err := s.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("loop exited", "error", err)
		}
	}()
	if s.archiver != nil {
		go s.archiver.Run(ctx)
	}
	go s.heartbeatLoop()
	go s.readLoop(s.conn)
}

// Loop returns the session's scheduler loop. Application code dispatches
// signal writes through it.
func (s *Session) Loop() *sched.Loop { return s.loop }

// Journal returns the session's patch journal.
func (s *Session) Journal() *journal.Journal { return s.journal }

// Connected reports whether a client is currently attached.
func (s *Session) Connected() bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn != nil
}

// LastActive returns the time of the last client activity.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// reattach swaps in a new connection after a reconnect and restarts the
// read pump. The loop never stopped.
func (s *Session) reattach(conn *websocket.Conn) {
	s.writeMu.Lock()
	old := s.conn
	s.conn = conn
	s.writeMu.Unlock()
	if old != nil {
		old.Close()
	}
	s.touch()
	go s.readLoop(conn)
}

// detach drops conn if it is still the current connection. The session
// stays alive for the resume window.
func (s *Session) detach(conn *websocket.Conn) {
	s.writeMu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.writeMu.Unlock()
	conn.Close()
	s.touch()
}

// Close tears the session down: loop, archiver, connection, and the
// manager entry. Idempotent.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.writeMu.Lock()
	if s.conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		s.conn.Close()
		s.conn = nil
	}
	s.writeMu.Unlock()
	if s.srv != nil {
		s.srv.sessions.Remove(s.ID)
	}
	close(s.done)
}

// Done is closed when the session has fully shut down.
func (s *Session) Done() <-chan struct{} { return s.done }

// ship records one encoded Patches frame and forwards it to the client.
// Runs on the loop goroutine. A detached or slow client never fails the
// commit: the journal keeps the frame and a later resync delivers it.
func (s *Session) ship(seq uint64, data []byte) error {
	s.journal.Append(seq, data)
	if s.archiver != nil {
		s.archiver.Offer(seq, data)
	}

	// Past the ack window the client is too far behind for live frames
	// to help; stop sending and let it ask for a replay.
	if window := s.ackWindow.Load(); window > 0 && s.journal.Outstanding() > window {
		return nil
	}

	if err := s.writeBinary(data); err != nil && !errors.Is(err, errNotConnected) {
		s.logger.Debug("patch write failed", "seq", seq, "error", err)
	}
	return nil
}

// writeBinary writes one message under the write lock. A failed write
// detaches the connection.
func (s *Session) writeBinary(data []byte) error {
	s.writeMu.Lock()
	conn := s.conn
	if conn == nil {
		s.writeMu.Unlock()
		return errNotConnected
	}
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	err := conn.WriteMessage(websocket.BinaryMessage, data)
	if err != nil {
		s.conn = nil
	}
	s.writeMu.Unlock()
	if err != nil {
		conn.Close()
		return err
	}
	s.bytesSent.Add(uint64(len(data)))
	s.framesSent.Add(1)
	return nil
}

// readLoop pumps frames off one connection until it dies. Each attach
// runs its own pump; a stale pump exits when its conn is no longer
// current.
func (s *Session) readLoop(conn *websocket.Conn) {
	defer s.detach(conn)

	for {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}
		s.touch()
		s.bytesRecv.Add(uint64(len(msg)))

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.logger.Warn("frame decode error", "error", err)
			s.sendError(protocol.CodeInvalidFrame, "malformed frame", false)
			continue
		}

		switch frame.Type {
		case protocol.FrameSchedule:
			s.handleSchedule(frame.Payload)
		case protocol.FrameInvalidate:
			s.handleInvalidate(frame.Payload)
		case protocol.FrameAck:
			s.handleAck(frame.Payload)
		case protocol.FrameControl:
			s.handleControl(frame.Payload)
		case protocol.FrameError:
			s.handleClientError(frame.Payload)
		default:
			s.logger.Warn("unexpected frame type", "type", frame.Type)
			s.sendError(protocol.CodeInvalidFrame,
				fmt.Sprintf("unexpected frame type %s", frame.Type), false)
		}
	}
}

// handleSchedule queues a render pass requested by the client. Root 0
// means every mounted root.
func (s *Session) handleSchedule(payload []byte) {
	req, err := protocol.DecodeScheduleRequest(payload)
	if err != nil {
		s.sendError(protocol.CodeInvalidRequest, "malformed schedule request", false)
		return
	}
	if req.Priority > uint8(sched.Idle) {
		s.sendError(protocol.CodeInvalidRequest,
			fmt.Sprintf("unknown priority %d", req.Priority), false)
		return
	}
	prio := sched.Priority(req.Priority)

	if req.Root == 0 {
		for _, id := range s.loop.Roots() {
			s.loop.Schedule(id, prio)
		}
		return
	}
	if req.Root > math.MaxUint32 || !s.isRoot(sched.FiberID(req.Root)) {
		s.sendError(protocol.CodeUnknownRoot,
			fmt.Sprintf("unknown root %d", req.Root), false)
		return
	}
	s.loop.Schedule(sched.FiberID(req.Root), prio)
}

func (s *Session) isRoot(id sched.FiberID) bool {
	for _, r := range s.loop.Roots() {
		if r == id {
			return true
		}
	}
	return false
}

// handleInvalidate force-dirties a signal on behalf of the client.
func (s *Session) handleInvalidate(payload []byte) {
	req, err := protocol.DecodeInvalidateRequest(payload)
	if err != nil {
		s.sendError(protocol.CodeInvalidRequest, "malformed invalidate request", false)
		return
	}
	if !s.loop.Graph().Invalidate(req.Signal) {
		s.sendError(protocol.CodeUnknownSignal,
			fmt.Sprintf("unknown signal %d", req.Signal), false)
	}
}

// handleAck records the client's progress so the journal can measure how
// far behind it is.
func (s *Session) handleAck(payload []byte) {
	ack, err := protocol.DecodeAck(payload)
	if err != nil {
		s.sendError(protocol.CodeInvalidRequest, "malformed ack", false)
		return
	}
	s.journal.Ack(ack.LastSeq)
	if ack.Window > 0 {
		s.ackWindow.Store(ack.Window)
	}
	s.logger.Debug("ack", "seq", ack.LastSeq, "window", ack.Window)
}

// handleControl dispatches ping, pong, resync, and close messages.
func (s *Session) handleControl(payload []byte) {
	ct, data, err := protocol.DecodeControl(payload)
	if err != nil {
		s.logger.Warn("control decode error", "error", err)
		s.sendError(protocol.CodeInvalidFrame, "malformed control message", false)
		return
	}

	switch ct {
	case protocol.ControlPing:
		if pp, ok := data.(*protocol.PingPong); ok {
			s.sendControl(protocol.NewPong(pp.Timestamp))
		}
	case protocol.ControlPong:
		s.logger.Debug("pong")
	case protocol.ControlResyncRequest:
		if rr, ok := data.(*protocol.ResyncRequest); ok {
			s.resync(rr.LastSeq)
		}
	case protocol.ControlClose:
		if cm, ok := data.(*protocol.CloseMessage); ok {
			s.logger.Info("client closing", "reason", cm.Reason, "message", cm.Message)
		}
		s.Close()
	default:
		s.logger.Debug("unhandled control message", "type", ct)
	}
}

func (s *Session) handleClientError(payload []byte) {
	em, err := protocol.DecodeErrorMessage(payload)
	if err != nil {
		s.logger.Warn("client error frame undecodable", "error", err)
		return
	}
	s.logger.Warn("client reported error", "code", em.Code, "message", em.Message, "fatal", em.Fatal)
}

// resync brings a client that last applied lastSeq back in step. Frames
// still in the journal are replayed with FlagResync; once the window is
// lost the tree is remounted from scratch and the client told to reset.
func (s *Session) resync(lastSeq uint64) {
	if s.journal.CanReplay(lastSeq) {
		s.journal.Ack(lastSeq)
		for _, stored := range s.journal.Replay(lastSeq) {
			// The journal owns the stored bytes; flip the flag on a copy.
			data := make([]byte, len(stored))
			copy(data, stored)
			data[1] |= byte(protocol.FlagResync)
			if err := s.writeBinary(data); err != nil {
				return
			}
		}
		return
	}
	if lastSeq == s.journal.MaxSeq() {
		return
	}

	// Remount and compute the reset point in one dispatched step so no
	// commit can land in between: the fresh trees take the next
	// sequence numbers after NextSeq-1.
	err := s.loop.Dispatch(func() {
		s.loop.Remount()
		next := s.loop.Stats().Commits + 1
		s.sendControl(protocol.NewResyncReset(next))
	})
	if err != nil {
		s.logger.Error("resync reset dispatch failed", "error", err)
	}
}

// heartbeatLoop pings an attached client on the configured cadence.
func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !s.Connected() {
				continue
			}
			s.sendControl(protocol.NewPing(uint64(time.Now().UnixMilli())))
		case <-s.done:
			return
		}
	}
}

// sendControl encodes and writes one control frame.
func (s *Session) sendControl(ct protocol.ControlType, payload any) {
	frame := protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ct, payload))
	if err := s.writeBinary(frame.Encode()); err != nil && !errors.Is(err, errNotConnected) {
		s.logger.Debug("control write failed", "type", ct, "error", err)
	}
}

// sendError reports a protocol-level failure to the client. Fatal errors
// close the session after the write.
func (s *Session) sendError(code protocol.ErrorCode, message string, fatal bool) {
	em := &protocol.ErrorMessage{Code: code, Message: message, Fatal: fatal}
	frame := protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(em))
	if err := s.writeBinary(frame.Encode()); err != nil && !errors.Is(err, errNotConnected) {
		s.logger.Debug("error write failed", "code", code, "error", err)
	}
	if fatal {
		s.Close()
	}
}

// SessionStats is a point-in-time summary for health and debug endpoints.
type SessionStats struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	LastActive time.Time       `json:"last_active"`
	Connected  bool            `json:"connected"`
	Loop       sched.LoopStats `json:"loop"`
	JournalMin uint64          `json:"journal_min_seq"`
	JournalMax uint64          `json:"journal_max_seq"`
	Acked      uint64          `json:"acked_seq"`
	BytesSent  uint64          `json:"bytes_sent"`
	BytesRecv  uint64          `json:"bytes_recv"`
	FramesSent uint64          `json:"frames_sent"`
}

// Stats returns current session counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastActive: s.LastActive(),
		Connected:  s.Connected(),
		Loop:       s.loop.Stats(),
		JournalMin: s.journal.MinSeq(),
		JournalMax: s.journal.MaxSeq(),
		Acked:      s.journal.Acked(),
		BytesSent:  s.bytesSent.Load(),
		BytesRecv:  s.bytesRecv.Load(),
		FramesSent: s.framesSent.Load(),
	}
}
