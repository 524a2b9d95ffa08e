package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events when the buffer is full instead of blocking the caller.
	DropIfFull bool
}

// Stats counts what happened to emitted events.
type Stats struct {
	Delivered  uint64
	Dropped    uint64
	SinkPanics uint64
}

// Dispatcher forwards audit events to a sink from one goroutine, so a slow sink never
// runs on the token path.
type Dispatcher struct {
	cfg  Config
	sink Sink
	ch   chan Event

	stop     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
	stopped  atomic.Bool

	delivered  atomic.Uint64
	dropped    atomic.Uint64
	sinkPanics atomic.Uint64
}

// NewDispatcher starts a dispatcher. It returns nil when cfg is disabled; a nil
// Dispatcher accepts and discards every call.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:      cfg,
		sink:     sink,
		ch:       make(chan Event, cfg.BufferSize),
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.finished)

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain delivers whatever is still buffered at Close.
func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		default:
			return
		}
	}
}

// deliver hands one event to the sink. A panicking sink loses that event only.
func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if recover() != nil {
			d.sinkPanics.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), event)
	d.delivered.Add(1)
}

// Emit queues event. With DropIfFull a full buffer drops it; otherwise Emit waits for
// room until ctx is done. Events emitted after Close are discarded.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.stopped.Load() {
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

// Close stops accepting events, delivers the buffered ones and waits for the sink.
// It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		close(d.stop)
	})
	<-d.finished
}

// Dropped returns the number of events lost to a full buffer or a cancelled context.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Delivered:  d.delivered.Load(),
		Dropped:    d.dropped.Load(),
		SinkPanics: d.sinkPanics.Load(),
	}
}
