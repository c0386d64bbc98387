package telemetry

import (
	"log/slog"
	"time"

	"github.com/loom-ui/loom/pkg/sched"
)

// Logging is a sched.Observer writing loop activity to a structured
// logger at debug level; discards for failure log at warn. Meant for
// development and incident debugging, not steady-state production.
type Logging struct {
	logger *slog.Logger
}

var _ sched.Observer = (*Logging)(nil)

// NewLogging creates a logging observer. A nil logger uses
// slog.Default.
func NewLogging(logger *slog.Logger) *Logging {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logging{logger: logger}
}

func (l *Logging) PassStarted(root sched.FiberID, prio sched.Priority) {
	l.logger.Debug("pass started", "root", uint64(root), "priority", prio.String())
}

func (l *Logging) PassYielded(root sched.FiberID, prio sched.Priority, pendingUnits int) {
	l.logger.Debug("pass yielded", "root", uint64(root), "priority", prio.String(), "pending", pendingUnits)
}

func (l *Logging) PassDiscarded(root sched.FiberID, prio sched.Priority, reason sched.DiscardReason) {
	if reason == sched.DiscardFailed {
		l.logger.Warn("pass failed", "root", uint64(root), "priority", prio.String())
		return
	}
	l.logger.Debug("pass discarded", "root", uint64(root), "priority", prio.String(), "reason", reason.String())
}

func (l *Logging) CommitApplied(seq uint64, patches int, took time.Duration) {
	l.logger.Debug("commit applied", "seq", seq, "patches", patches, "took", took)
}

func (l *Logging) QueueDepth(prio sched.Priority, depth int) {}
