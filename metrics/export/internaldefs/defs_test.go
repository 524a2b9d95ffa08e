package internaldefs

import (
	"strings"
	"testing"

	goGrant "github.com/MrEthical07/goGrant"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := make(map[goGrant.MetricID]bool, len(CounterDefs))
	names := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate id %d", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate name %s", def.Name)
		}
		if !strings.HasPrefix(def.Name, "gogrant_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("bad counter name %s", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}
	if seen[goGrant.MetricVerifyLatency] {
		t.Fatal("latency histogram listed as a counter")
	}
	for id := goGrant.MetricTokenCreated; id < goGrant.MetricVerifyLatency; id++ {
		if !seen[id] {
			t.Fatalf("counter %d has no definition", id)
		}
	}
}

func TestBoundTablesAgree(t *testing.T) {
	if len(HistogramBounds) != 8 || len(HistogramBoundSuffix) != 8 {
		t.Fatalf("expected 8 bounds, got %d and %d", len(HistogramBounds), len(HistogramBoundSuffix))
	}
	if len(HistogramUpperBounds) != len(HistogramBounds)-1 {
		t.Fatalf("expected %d float bounds, got %d", len(HistogramBounds)-1, len(HistogramUpperBounds))
	}
	for i, b := range HistogramUpperBounds {
		if i > 0 && b <= HistogramUpperBounds[i-1] {
			t.Fatalf("bounds not increasing at %d", i)
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}
