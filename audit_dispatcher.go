package memberauth

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples flow latency from sink latency: events are
// queued and delivered by a single background goroutine, so a slow sink
// never stalls a login. Queue pressure behavior is configured by
// AuditConfig.DropIfFull.
type auditDispatcher struct {
	dropIfFull bool

	queue chan AuditEvent
	stop  chan struct{}

	dropped atomic.Uint64
	closed  atomic.Bool

	closeOnce sync.Once
	drained   sync.WaitGroup
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 1
	}

	d := &auditDispatcher{
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, buffer),
		stop:       make(chan struct{}),
	}

	d.drained.Add(1)
	go d.deliver(sink)

	return d
}

// deliver is the single consumer. After a stop it flushes whatever the
// queue still holds before returning, so Close never discards accepted
// events.
func (d *auditDispatcher) deliver(sink AuditSink) {
	defer d.drained.Done()

	for {
		select {
		case event := <-d.queue:
			sink.Emit(context.Background(), event)
		case <-d.stop:
			for {
				select {
				case event := <-d.queue:
					sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Emit enqueues an event for background delivery. With DropIfFull the call
// never blocks and a full queue increments the dropped counter instead;
// without it the call waits for space, bounded by ctx cancellation or
// dispatcher shutdown. Safe to call on a nil or closed dispatcher.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close stops accepting events and blocks until the queue has drained.
// Idempotent; Emit after Close is a no-op.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.drained.Wait()
	})
}

// Dropped reports how many events were discarded under queue pressure.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
