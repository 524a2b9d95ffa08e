package goGrant

import (
	"context"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricTokenCreated)

	if got := m.Value(MetricTokenCreated); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsHistogramBucketBounds(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		50 * time.Microsecond,
		100 * time.Microsecond,
		250 * time.Microsecond,
		500 * time.Microsecond,
		time.Millisecond,
		2500 * time.Microsecond,
		5 * time.Millisecond,
		7 * time.Millisecond,
	}
	for _, d := range observations {
		m.Observe(MetricVerifyLatency, d)
	}

	buckets := m.Snapshot().Histograms[MetricVerifyLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestEngineMetricsDisabled(t *testing.T) {
	engine := buildTestEngine(t, New().WithMetricsEnabled(false))
	engine.CreateToken(context.Background(), "HS256", testSecret, 60, ordersRead)

	snap := engine.MetricsSnapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestMetricsSnapshotIsACopy(t *testing.T) {
	engine := buildTestEngine(t, New())
	engine.CreateToken(context.Background(), "HS256", testSecret, 60, ordersRead)

	snap := engine.MetricsSnapshot()
	snap.Counters[MetricTokenCreated] = 99
	if got := engine.MetricsSnapshot().Counters[MetricTokenCreated]; got != 1 {
		t.Fatalf("snapshot mutation leaked into engine: %d", got)
	}
}
