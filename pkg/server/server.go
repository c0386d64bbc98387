// Package server hosts scheduler loops behind a WebSocket patch stream.
// Each connected client gets its own session: a signal graph, a render
// loop, and a journal of committed patch frames for reconnect catch-up.
// The HTTP surface is a chi router with the upgrade endpoint plus health,
// metrics, and debug routes.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loom-ui/loom/pkg/protocol"
	"github.com/loom-ui/loom/pkg/telemetry"
	"github.com/loom-ui/loom/pkg/vtree"
)

// Server accepts WebSocket clients and runs one scheduler loop per
// session.
type Server struct {
	config   *Config
	sessions *SessionManager
	upgrader websocket.Upgrader
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	// rootFactory builds the root component mounted into every new
	// session's loop.
	rootFactory func() vtree.Component

	httpServer *http.Server
	startedAt  time.Time
	reaperDone chan struct{}
	reaperStop chan struct{}
}

// New creates a server. A nil config uses DefaultConfig; unset fields are
// filled with defaults.
func New(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		config.normalize()
	}

	logger := slog.Default().With("component", "server")
	if err := config.Validate(); err != nil {
		logger.Error("config validation failed", "error", err)
	}

	s := &Server{
		config:   config,
		sessions: NewSessionManager(config.MaxSessions),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		metrics:    telemetry.NewMetrics(telemetry.WithRegistry(config.Registry)),
		logger:     logger,
		startedAt:  time.Now(),
		reaperDone: make(chan struct{}),
		reaperStop: make(chan struct{}),
	}
	go s.reapLoop()
	return s
}

// SetRoot sets the factory for the root component mounted into each new
// session.
func (s *Server) SetRoot(factory func() vtree.Component) {
	s.rootFactory = factory
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager { return s.sessions }

// Config returns the server configuration.
func (s *Server) Config() *Config { return s.config }

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger { return s.logger }

// SetLogger replaces the server logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger.With("component", "server")
	}
}

// Handler returns the HTTP surface for mounting in external routers or
// test servers.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/ws", s.handleWS)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
		s.config.Registry, promhttp.HandlerOpts{}))
	r.Get("/debug/tree", s.handleDebugTree)
	return r
}

// Run starts the HTTP server and blocks until a shutdown signal or a
// listener error.
func (s *Server) Run() error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.config.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-shutdown:
		s.logger.Info("shutting down")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every session and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	close(s.reaperStop)
	<-s.reaperDone
	s.sessions.CloseAll()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// reapLoop closes sessions that stayed detached past the idle timeout.
func (s *Server) reapLoop() {
	defer close(s.reaperDone)
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-s.config.IdleTimeout)
			s.sessions.Range(func(sess *Session) bool {
				if !sess.Connected() && sess.LastActive().Before(cutoff) {
					s.logger.Info("reaping idle session", "session_id", sess.ID)
					sess.Close()
				}
				return true
			})
		case <-s.reaperStop:
			return
		}
	}
}

// handleWS upgrades the connection, runs the handshake, and either
// resumes an existing session or creates a new one.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(s.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.config.HandshakeTimeout))

	_, msg, err := conn.ReadMessage()
	if err != nil {
		s.logger.Error("handshake read failed", "error", err)
		conn.Close()
		return
	}
	frame, err := protocol.DecodeFrame(msg)
	if err != nil || frame.Type != protocol.FrameHandshake {
		s.sendHelloError(conn, protocol.HandshakeInvalidFormat)
		conn.Close()
		return
	}
	hello, err := protocol.DecodeClientHello(frame.Payload)
	if err != nil {
		s.sendHelloError(conn, protocol.HandshakeInvalidFormat)
		conn.Close()
		return
	}
	if hello.Version.Major != protocol.CurrentVersion.Major {
		s.logger.Warn("version mismatch",
			"client", hello.Version, "server", protocol.CurrentVersion)
		s.sendHelloError(conn, protocol.HandshakeVersionMismatch)
		conn.Close()
		return
	}

	if hello.SessionID != "" {
		s.resumeSession(conn, hello)
		return
	}
	s.createSession(conn)
}

// resumeSession reattaches conn to a live session and brings the client
// back in step from the journal.
func (s *Server) resumeSession(conn *websocket.Conn, hello *protocol.ClientHello) {
	sess := s.sessions.Get(hello.SessionID)
	if sess == nil || sess.closed.Load() {
		s.logger.Info("resume rejected: unknown session", "session_id", hello.SessionID)
		s.sendHelloError(conn, protocol.HandshakeSessionExpired)
		conn.Close()
		return
	}

	sess.reattach(conn)
	s.sendHello(sess)
	sess.resync(hello.LastSeq)
	s.logger.Info("session resumed",
		"session_id", sess.ID, "last_seq", hello.LastSeq)
}

// createSession creates a session, mounts the root, and starts its loops.
func (s *Server) createSession(conn *websocket.Conn) {
	sess := newSession(s, conn)
	if err := s.sessions.Add(sess); err != nil {
		s.logger.Warn("session rejected", "error", err)
		s.sendHelloError(conn, protocol.HandshakeServerBusy)
		conn.Close()
		return
	}

	s.sendHello(sess)
	if s.rootFactory != nil {
		sess.loop.Mount(s.rootFactory(), nil)
	}
	sess.start()
	s.logger.Info("session created", "session_id", sess.ID)
}

// sendHello writes the success reply through the session's write lock, so
// it cannot interleave with heartbeat or patch writes.
func (s *Server) sendHello(sess *Session) {
	hello := protocol.NewServerHello(
		sess.ID,
		sess.journal.MaxSeq()+1,
		uint64(time.Now().UnixMilli()),
	)
	hello.Flags |= protocol.ServerFlagJournal
	frame := protocol.NewFrame(protocol.FrameHandshake, protocol.EncodeServerHello(hello))
	if err := sess.writeBinary(frame.Encode()); err != nil {
		s.logger.Warn("hello write failed", "session_id", sess.ID, "error", err)
	}
}

func (s *Server) sendHelloError(conn *websocket.Conn, status protocol.HandshakeStatus) {
	hello := protocol.NewServerHelloError(status)
	frame := protocol.NewFrame(protocol.FrameHandshake, protocol.EncodeServerHello(hello))
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
}

// healthPayload is the /healthz response body.
type healthPayload struct {
	Status        string       `json:"status"`
	UptimeSeconds float64      `json:"uptime_seconds"`
	Sessions      ManagerStats `json:"sessions"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthPayload{
		Status:        "ok",
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Sessions:      s.sessions.Stats(),
	})
}
