// Package telemetry provides scheduler observers that export loop
// activity as Prometheus metrics, OpenTelemetry spans, and structured
// logs. Observers run on the loop goroutine and only touch lock-free or
// constant-time collector state.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/loom-ui/loom/pkg/sched"
)

// Config configures metric registration.
type Config struct {
	// Namespace is the metrics namespace (default: "loom").
	Namespace string

	// Subsystem is the metrics subsystem (default: "sched").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for commit duration in seconds.
	Buckets []float64

	// Registry is the Prometheus registry to register with.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Option configures metric registration.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) { c.Subsystem = subsystem }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

// WithBuckets sets the commit duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

func defaultConfig() Config {
	return Config{
		Namespace: "loom",
		Subsystem: "sched",
		// Commit application is sub-millisecond in the common case.
		Buckets:  []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		Registry: prometheus.DefaultRegisterer,
	}
}

// Metrics is a sched.Observer exporting loop activity as Prometheus
// collectors. One Metrics instance can observe many loops; per-loop
// distinction goes in ConstLabels.
type Metrics struct {
	passesStarted  *prometheus.CounterVec
	passYields     *prometheus.CounterVec
	passDiscards   *prometheus.CounterVec
	commitsTotal   prometheus.Counter
	commitPatches  prometheus.Histogram
	commitDuration prometheus.Histogram
	queueDepth     *prometheus.GaugeVec
}

var _ sched.Observer = (*Metrics)(nil)

// NewMetrics registers the loop collectors and returns the observer.
// Registration panics on metric name collision, register one Metrics per
// registry.
func NewMetrics(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		passesStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "passes_started_total",
			Help:        "Render passes started, by priority",
			ConstLabels: config.ConstLabels,
		}, []string{"priority"}),

		passYields: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_yields_total",
			Help:        "Times a render pass ran out of budget and parked",
			ConstLabels: config.ConstLabels,
		}, []string{"priority"}),

		passDiscards: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_discards_total",
			Help:        "Render passes thrown away before commit, by reason",
			ConstLabels: config.ConstLabels,
		}, []string{"priority", "reason"}),

		commitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commits_total",
			Help:        "Committed render passes",
			ConstLabels: config.ConstLabels,
		}),

		commitPatches: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commit_patches",
			Help:        "Patches applied per commit",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),

		commitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commit_duration_seconds",
			Help:        "Time spent applying a commit to the renderer",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "queue_depth",
			Help:        "Fibers waiting per priority bucket",
			ConstLabels: config.ConstLabels,
		}, []string{"priority"}),
	}
}

// PassStarted implements sched.Observer.
func (m *Metrics) PassStarted(root sched.FiberID, prio sched.Priority) {
	m.passesStarted.WithLabelValues(prio.String()).Inc()
}

// PassYielded implements sched.Observer.
func (m *Metrics) PassYielded(root sched.FiberID, prio sched.Priority, pendingUnits int) {
	m.passYields.WithLabelValues(prio.String()).Inc()
}

// PassDiscarded implements sched.Observer.
func (m *Metrics) PassDiscarded(root sched.FiberID, prio sched.Priority, reason sched.DiscardReason) {
	m.passDiscards.WithLabelValues(prio.String(), reason.String()).Inc()
}

// CommitApplied implements sched.Observer.
func (m *Metrics) CommitApplied(seq uint64, patches int, took time.Duration) {
	m.commitsTotal.Inc()
	m.commitPatches.Observe(float64(patches))
	m.commitDuration.Observe(took.Seconds())
}

// QueueDepth implements sched.Observer.
func (m *Metrics) QueueDepth(prio sched.Priority, depth int) {
	m.queueDepth.WithLabelValues(prio.String()).Set(float64(depth))
}
