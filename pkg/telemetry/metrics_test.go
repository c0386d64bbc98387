package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/loom-ui/loom/pkg/sched"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write: %v", err)
	}
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("histogram Write: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetricsCountsPassLifecycle(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	m.PassStarted(1, sched.Normal)
	m.PassStarted(1, sched.Normal)
	m.PassStarted(2, sched.UserBlocking)
	m.PassYielded(1, sched.Normal, 3)
	m.PassDiscarded(1, sched.Normal, sched.DiscardPreempted)
	m.PassDiscarded(2, sched.Low, sched.DiscardStale)

	if got := counterValue(t, m.passesStarted.WithLabelValues("normal")); got != 2 {
		t.Errorf("passes_started_total{normal} = %v, want 2", got)
	}
	if got := counterValue(t, m.passesStarted.WithLabelValues("user-blocking")); got != 1 {
		t.Errorf("passes_started_total{user-blocking} = %v, want 1", got)
	}
	if got := counterValue(t, m.passYields.WithLabelValues("normal")); got != 1 {
		t.Errorf("pass_yields_total{normal} = %v, want 1", got)
	}
	if got := counterValue(t, m.passDiscards.WithLabelValues("normal", "preempted")); got != 1 {
		t.Errorf("pass_discards_total{normal,preempted} = %v, want 1", got)
	}
	if got := counterValue(t, m.passDiscards.WithLabelValues("low", "stale")); got != 1 {
		t.Errorf("pass_discards_total{low,stale} = %v, want 1", got)
	}
}

func TestMetricsRecordsCommits(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	m.CommitApplied(1, 4, 200*time.Microsecond)
	m.CommitApplied(2, 9, 450*time.Microsecond)

	if got := counterValue(t, m.commitsTotal); got != 2 {
		t.Errorf("commits_total = %v, want 2", got)
	}
	if got := histogramCount(t, m.commitPatches); got != 2 {
		t.Errorf("commit_patches samples = %v, want 2", got)
	}
	if got := histogramCount(t, m.commitDuration); got != 2 {
		t.Errorf("commit_duration_seconds samples = %v, want 2", got)
	}
}

func TestMetricsTracksQueueDepth(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	m.QueueDepth(sched.Normal, 5)
	m.QueueDepth(sched.Normal, 2)
	m.QueueDepth(sched.Idle, 7)

	if got := gaugeValue(t, m.queueDepth.WithLabelValues("normal")); got != 2 {
		t.Errorf("queue_depth{normal} = %v, want 2", got)
	}
	if got := gaugeValue(t, m.queueDepth.WithLabelValues("idle")); got != 7 {
		t.Errorf("queue_depth{idle} = %v, want 7", got)
	}
}

func TestMetricsCustomNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("myapp"), WithSubsystem("ui"),
		WithConstLabels(prometheus.Labels{"session": "s1"}))
	m.CommitApplied(1, 1, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var found bool
	for _, fam := range families {
		if fam.GetName() != "myapp_ui_commits_total" {
			continue
		}
		found = true
		labels := fam.GetMetric()[0].GetLabel()
		if len(labels) != 1 || labels[0].GetName() != "session" || labels[0].GetValue() != "s1" {
			t.Errorf("labels = %v, want session=s1", labels)
		}
	}
	if !found {
		t.Error("myapp_ui_commits_total not gathered")
	}
}
