package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	count   int
}

func (s *blockingSink) Emit(context.Context, Event) {
	<-s.release
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reports drops")
	}
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), Event{EventType: EventTokenVerified, Success: true})
	}
	d.Close()

	got := 0
	for len(sink.Events()) > 0 {
		<-sink.Events()
		got++
	}
	if got != 3 {
		t.Fatalf("delivered %d events, want 3", got)
	}

	d.Emit(context.Background(), Event{})
	if len(sink.Events()) != 0 {
		t.Fatal("closed dispatcher delivered an event")
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 20; i++ {
		d.Emit(context.Background(), Event{EventType: EventVerifyFailed})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink")
	}
	close(sink.release)
	d.Close()
}

type panicSink struct {
	delivered sync.WaitGroup
}

func (s *panicSink) Emit(_ context.Context, event Event) {
	defer s.delivered.Done()
	if event.Reason == "boom" {
		panic("sink failure")
	}
}

func TestDispatcherSurvivesSinkPanic(t *testing.T) {
	sink := &panicSink{}
	sink.delivered.Add(3)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)

	d.Emit(context.Background(), Event{EventType: EventVerifyFailed})
	d.Emit(context.Background(), Event{EventType: EventVerifyFailed, Reason: "boom"})
	d.Emit(context.Background(), Event{EventType: EventVerifyFailed})
	sink.delivered.Wait()
	d.Close()

	stats := d.Stats()
	if stats.Delivered != 2 || stats.SinkPanics != 1 || stats.Dropped != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestDispatcherBlockingCancelledContextDrops(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	// the first event occupies the sink, the second the buffer
	d.Emit(context.Background(), Event{})
	d.Emit(context.Background(), Event{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		d.Emit(ctx, Event{})
	}
	if d.Dropped() == 0 {
		t.Fatal("cancelled emits were not counted")
	}

	close(sink.release)
	d.Close()
	d.Close()
	if got := d.Stats().Delivered; got+d.Dropped() != 7 {
		t.Fatalf("delivered %d + dropped %d, want 7 events accounted for", got, d.Dropped())
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{
		Timestamp: time.Unix(1_700_000_000, 0).UTC(),
		EventType: EventTokenCreated,
		Algorithm: "HS256",
		Target:    "orders",
		Action:    "read",
		Success:   true,
	})

	line := strings.TrimSpace(buf.String())
	var out map[string]any
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		t.Fatalf("invalid json line %q: %v", line, err)
	}
	if out["event_type"] != EventTokenCreated || out["target"] != "orders" {
		t.Fatalf("unexpected event %v", out)
	}
	if _, ok := out["error"]; ok {
		t.Fatalf("empty error should be omitted: %v", out)
	}
}

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), Event{EventType: EventTokenVerified, Success: true, Target: "orders"})
	sink.Emit(context.Background(), Event{EventType: EventVerifyFailed, Reason: "expired", Metadata: map[string]string{"route": "verify"}})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].Message != EventTokenVerified {
		t.Fatalf("unexpected success entry %+v", entries[0])
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("failure logged at %v, want warn", entries[1].Level)
	}
	fields := entries[1].ContextMap()
	if fields["reason"] != "expired" || fields["meta.route"] != "verify" {
		t.Fatalf("unexpected failure fields %v", fields)
	}
	if _, ok := fields["target"]; ok {
		t.Fatal("empty fields should be omitted")
	}
}
