package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/loom-ui/loom/pkg/sched"
)

// Default tracer name for loom runtimes.
const defaultTracerName = "loom"

// Tracing is a sched.Observer emitting one span per render pass, with
// yields as span events and the commit as a child span. The loop runs
// one pass at a time, so the open span is plain state with no locking.
//
// The tracer comes from the global OpenTelemetry provider; configure it
// in main() before mounting:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
type Tracing struct {
	tracer trace.Tracer
	ctx    context.Context

	passCtx  context.Context
	passSpan trace.Span
}

var _ sched.Observer = (*Tracing)(nil)

// TracingOption configures a Tracing observer.
type TracingOption func(*Tracing)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(tr *Tracing) { tr.tracer = otel.Tracer(name) }
}

// WithContext sets the base context new pass spans start from, letting
// them parent under an enclosing session span.
func WithContext(ctx context.Context) TracingOption {
	return func(tr *Tracing) { tr.ctx = ctx }
}

// NewTracing creates a tracing observer using the global tracer
// provider.
func NewTracing(opts ...TracingOption) *Tracing {
	tr := &Tracing{
		tracer: otel.Tracer(defaultTracerName),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}

// PassStarted implements sched.Observer.
func (tr *Tracing) PassStarted(root sched.FiberID, prio sched.Priority) {
	// A pass span left open here means the previous pass ended without
	// a discard or commit event; close it rather than leak it.
	if tr.passSpan != nil {
		tr.passSpan.End()
	}

	tr.passCtx, tr.passSpan = tr.tracer.Start(tr.ctx, "loom.pass",
		trace.WithAttributes(
			attribute.Int64("loom.root", int64(root)),
			attribute.String("loom.priority", prio.String()),
		))
}

// PassYielded implements sched.Observer.
func (tr *Tracing) PassYielded(root sched.FiberID, prio sched.Priority, pendingUnits int) {
	if tr.passSpan == nil {
		return
	}
	tr.passSpan.AddEvent("yield",
		trace.WithAttributes(attribute.Int("loom.pending_units", pendingUnits)))
}

// PassDiscarded implements sched.Observer.
func (tr *Tracing) PassDiscarded(root sched.FiberID, prio sched.Priority, reason sched.DiscardReason) {
	if tr.passSpan == nil {
		return
	}
	tr.passSpan.SetAttributes(attribute.String("loom.discard_reason", reason.String()))
	if reason == sched.DiscardFailed {
		tr.passSpan.SetStatus(codes.Error, "render pass failed")
	}
	tr.passSpan.End()
	tr.passSpan = nil
	tr.passCtx = nil
}

// CommitApplied implements sched.Observer.
func (tr *Tracing) CommitApplied(seq uint64, patches int, took time.Duration) {
	if tr.passSpan == nil {
		return
	}

	now := time.Now()
	_, commitSpan := tr.tracer.Start(tr.passCtx, "loom.commit",
		trace.WithTimestamp(now.Add(-took)),
		trace.WithAttributes(
			attribute.Int64("loom.seq", int64(seq)),
			attribute.Int("loom.patches", patches),
		))
	commitSpan.End(trace.WithTimestamp(now))

	tr.passSpan.SetStatus(codes.Ok, "")
	tr.passSpan.End()
	tr.passSpan = nil
	tr.passCtx = nil
}

// QueueDepth implements sched.Observer.
func (tr *Tracing) QueueDepth(prio sched.Priority, depth int) {}
