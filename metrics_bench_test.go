package goGrant

import (
	"testing"
	"time"

	"github.com/MrEthical07/goGrant/token"
)

// BenchmarkVerifyOutcomeCounters measures the metric step of a failed verification:
// mapping the error to its counter and incrementing it.
func BenchmarkVerifyOutcomeCounters(b *testing.B) {
	failures := []error{
		token.ErrMalformed,
		token.ErrUnsupportedAlgorithm,
		token.ErrSignatureInvalid,
		token.ErrExpired,
		token.ErrGrantMismatch,
	}

	for _, enabled := range []bool{true, false} {
		name := "enabled"
		if !enabled {
			name = "disabled"
		}
		b.Run(name, func(b *testing.B) {
			m := NewMetrics(MetricsConfig{Enabled: enabled})
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				m.Inc(verifyMetric(failures[i%len(failures)]))
			}
		})
	}
}

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricVerifyValid)
		}
	})
}

// BenchmarkVerifyLatencyObserve spreads observations over every histogram bucket.
func BenchmarkVerifyLatencyObserve(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	samples := []time.Duration{
		30 * time.Microsecond,
		80 * time.Microsecond,
		200 * time.Microsecond,
		400 * time.Microsecond,
		900 * time.Microsecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
		10 * time.Millisecond,
	}
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Observe(MetricVerifyLatency, samples[i%len(samples)])
			i++
		}
	})
}

func BenchmarkMetricsSnapshot(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricTokenCreated)
	m.Observe(MetricVerifyLatency, time.Millisecond)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = m.Snapshot()
	}
}
