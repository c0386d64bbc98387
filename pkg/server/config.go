package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loom-ui/loom/pkg/journal"
)

// Config configures the server and the sessions it creates.
type Config struct {
	// Addr is the address to listen on (e.g. ":8080" or "localhost:3000").
	// Default: ":8080".
	Addr string

	// WebSocket buffer sizes

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin validates the request origin on upgrade.
	// Default: allows all origins (not recommended for production).
	CheckOrigin func(r *http.Request) bool

	// Timeouts

	// HandshakeTimeout is the maximum time to wait for the client hello
	// after the upgrade. Default: 10 seconds.
	HandshakeTimeout time.Duration

	// ReadTimeout is the maximum time to wait for a message from the
	// client. The heartbeat keeps healthy connections inside it.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between server pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// IdleTimeout is how long a detached session stays resumable before
	// the reaper closes it. Default: 5 minutes.
	IdleTimeout time.Duration

	// CleanupInterval is how often the reaper scans for idle sessions.
	// Default: 30 seconds.
	CleanupInterval time.Duration

	// Limits

	// MaxMessageSize is the maximum size of an incoming WebSocket
	// message. Default: 64KB.
	MaxMessageSize int64

	// MaxSessions is the maximum number of concurrent sessions.
	// 0 means no limit. Default: 0.
	MaxSessions int

	// Scheduler

	// FrameBudget is the render slice each session's loop runs before
	// yielding back to its inbox. Zero keeps the loop default.
	FrameBudget time.Duration

	// Aging promotes starved low-priority work after this long in queue.
	// Zero disables aging.
	Aging time.Duration

	// Journal

	// JournalCapacity is the number of recent patch frames each session
	// retains for resync. Default: journal.DefaultCapacity.
	JournalCapacity int

	// ArchiveStore, when set, streams every journaled frame to object
	// storage under ArchiveBucket, keyed by session and commit sequence.
	ArchiveStore journal.ObjectStore

	// ArchiveBucket is the object storage bucket for ArchiveStore.
	ArchiveBucket string

	// Telemetry

	// Registry receives the server's Prometheus metrics and backs the
	// /metrics endpoint. Default: a fresh private registry.
	Registry *prometheus.Registry
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:              ":8080",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		CheckOrigin:       func(*http.Request) bool { return true },
		HandshakeTimeout:  10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		IdleTimeout:       5 * time.Minute,
		CleanupInterval:   30 * time.Second,
		MaxMessageSize:    64 * 1024,
		JournalCapacity:   journal.DefaultCapacity,
		Registry:          prometheus.NewRegistry(),
	}
}

// normalize fills unset fields from DefaultConfig.
func (c *Config) normalize() {
	defaults := DefaultConfig()
	if c.Addr == "" {
		c.Addr = defaults.Addr
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = defaults.ReadBufferSize
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = defaults.WriteBufferSize
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = defaults.CheckOrigin
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = defaults.IdleTimeout
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = defaults.CleanupInterval
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}
	if c.JournalCapacity == 0 {
		c.JournalCapacity = defaults.JournalCapacity
	}
	if c.Registry == nil {
		c.Registry = prometheus.NewRegistry()
	}
}

// Validate checks the configuration for mistakes that would only surface
// at runtime.
func (c *Config) Validate() error {
	if c.MaxSessions < 0 {
		return fmt.Errorf("server: MaxSessions must be >= 0, got %d", c.MaxSessions)
	}
	if c.JournalCapacity < 0 {
		return fmt.Errorf("server: JournalCapacity must be >= 0, got %d", c.JournalCapacity)
	}
	if c.ArchiveStore != nil && c.ArchiveBucket == "" {
		return fmt.Errorf("server: ArchiveBucket is required when ArchiveStore is set")
	}
	if c.HeartbeatInterval >= c.ReadTimeout {
		return fmt.Errorf("server: HeartbeatInterval (%v) must be shorter than ReadTimeout (%v)",
			c.HeartbeatInterval, c.ReadTimeout)
	}
	return nil
}
