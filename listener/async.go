package listener

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/krisalay/session-cache/internal/logging"
	"github.com/krisalay/session-cache/types"
)

/*
AsyncDispatcher hands events to one background worker through a buffered channel.

If the buffer is full the event is DROPPED, so a slow listener never stalls
cache writes or expiration goroutines. Drops are counted and logged.
*/
type AsyncDispatcher[V any] struct {
	fn     types.RemovalListener[V]
	logger *slog.Logger

	ch chan types.RemovalEvent[V]

	// mu orders Dispatch against Close so nothing is sent on a closed channel.
	mu     sync.RWMutex
	closed bool

	dropped atomic.Int64

	// wg is used to wait for the worker to finish during shutdown.
	wg sync.WaitGroup
}

// NewAsyncDispatcher starts the worker. buffer <= 0 falls back to 1.
func NewAsyncDispatcher[V any](fn types.RemovalListener[V], buffer int, logger *slog.Logger) *AsyncDispatcher[V] {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &AsyncDispatcher[V]{
		fn:     fn,
		logger: logger,
		ch:     make(chan types.RemovalEvent[V], buffer),
	}

	d.wg.Add(1)
	go d.worker()

	return d
}

func (d *AsyncDispatcher[V]) Dispatch(ev types.RemovalEvent[V]) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}

	select {
	case d.ch <- ev:
	default:
		n := d.dropped.Add(1)
		d.logger.Warn("removal event dropped, listener queue full",
			"key", ev.Key.String(),
			"reason", ev.Reason.String(),
			"dropped_total", n,
		)
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (d *AsyncDispatcher[V]) Dropped() int64 {
	return d.dropped.Load()
}

func (d *AsyncDispatcher[V]) worker() {
	defer d.wg.Done()

	for ev := range d.ch {
		deliver(d.logger, d.fn, ev)
	}
}

/*
Close shuts the dispatcher down gracefully:
1. Stop accepting events
2. Wait for the worker to deliver everything already queued

Calling Close more than once is safe.
*/
func (d *AsyncDispatcher[V]) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.ch)
	d.mu.Unlock()

	d.wg.Wait()
}
