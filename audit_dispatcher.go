package fitauth

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples flow latency from sink latency: engine methods
// enqueue events and a single pump goroutine delivers them to the sink in
// order. A nil dispatcher (auditing disabled) swallows every call.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool

	events  chan AuditEvent
	quit    chan struct{}
	stopped sync.WaitGroup

	mu      sync.Mutex
	closing bool

	dropped atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		events:     make(chan AuditEvent, buffer),
		quit:       make(chan struct{}),
	}
	d.stopped.Add(1)
	go d.pump()
	return d
}

// pump delivers events until the quit signal, then flushes whatever the
// buffer still holds so Close never discards an accepted event.
func (d *auditDispatcher) pump() {
	defer d.stopped.Done()

	for {
		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		case <-d.quit:
			d.flush()
			return
		}
	}
}

func (d *auditDispatcher) flush() {
	for {
		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit enqueues an event. With DropIfFull set a saturated buffer increments
// the drop counter instead of blocking; otherwise the caller waits until the
// buffer accepts, its context expires, or the dispatcher shuts down.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	d.mu.Lock()
	closing := d.closing
	d.mu.Unlock()
	if closing {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
		case <-d.quit:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.events <- event:
	case <-ctx.Done():
	case <-d.quit:
	}
}

// Close stops accepting events, flushes the buffer, and waits for the pump
// goroutine to exit. Safe to call more than once.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		return
	}
	d.closing = true
	d.mu.Unlock()

	close(d.quit)
	d.stopped.Wait()
}

// Dropped reports how many events DropIfFull discarded.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
