package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/krisalay/session-cache/expiration"
	"github.com/krisalay/session-cache/internal/logging"
	"github.com/krisalay/session-cache/listener"
	"github.com/krisalay/session-cache/types"
)

/*
CacheEngine is the "brain" of the cache system.
It is responsible for the "behavior" of the cache, NOT storage.
This acts as the policy layer.

It decides:
- What time it is and how expiration actions get scheduled
- How removals are reported to listeners
- How metrics are recorded
- How data is loaded on a read-through miss

It does NOT:
- Store data
- Handle sharding
- Handle locking

The store calls into the engine only after releasing its shard lock, except
for Now, which never blocks.
*/
type CacheEngine[V any] struct {

	// Scheduler runs expiration actions. Defaults to runtime timers.
	Scheduler expiration.Scheduler

	// Dispatcher delivers removal events. Defaults to dropping them.
	Dispatcher listener.Dispatcher[V]

	// Metrics is how we keep track of what the cache is doing.
	Metrics types.Metrics

	// Logger receives debug traces of scheduling and expiry, and warnings.
	Logger *slog.Logger
}

/*
NewCacheEngine creates a CacheEngine. Any nil argument is replaced by its
default so the rest of the codebase never checks for nil.
*/
func NewCacheEngine[V any](
	scheduler expiration.Scheduler,
	dispatcher listener.Dispatcher[V],
	metrics types.Metrics,
	logger *slog.Logger,
) *CacheEngine[V] {
	if scheduler == nil {
		scheduler = expiration.TimerScheduler{}
	}
	if dispatcher == nil {
		dispatcher = listener.Noop[V]{}
	}
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &CacheEngine[V]{
		Scheduler:  scheduler,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	}
}

// Now returns the scheduler's clock.
func (e *CacheEngine[V]) Now() time.Time {
	return e.Scheduler.Now()
}

// IsExpired checks an entry against the scheduler's clock.
func (e *CacheEngine[V]) IsExpired(ent *types.Entry[V]) bool {
	return expiration.IsExpired(ent, e.Now())
}

/*
ScheduleExpiry asks the scheduler to run fire after ttl.

A scheduling failure is logged and reported as false; it only concerns this
one entry, which stays readable until its deadline and is then dropped by the
lazy check on the read path.
*/
func (e *CacheEngine[V]) ScheduleExpiry(key types.CompositeKey, version uint64, ttl time.Duration, fire func()) bool {
	if err := e.Scheduler.AfterFunc(ttl, fire); err != nil {
		e.Logger.Warn("expiration not scheduled",
			"key", key.String(),
			"version", version,
			"ttl", ttl,
			"err", err,
		)
		return false
	}
	e.Logger.Debug("expiration scheduled", "key", key.String(), "version", version, "ttl", ttl)
	return true
}

// OnWrite records a successful write and reports the value it displaced.
func (e *CacheEngine[V]) OnWrite(prev *types.Entry[V]) {
	e.Metrics.Set()
	if prev != nil {
		e.Dispatcher.Dispatch(types.RemovalEvent[V]{Key: prev.Key, Value: prev.Value, Reason: types.Replaced})
	}
}

// OnRemove records removed entries and reports each of them.
func (e *CacheEngine[V]) OnRemove(removed []*types.Entry[V], reason types.RemovalReason) {
	for _, ent := range removed {
		if reason == types.Expired {
			e.Metrics.Expire()
			e.Logger.Debug("entry expired", "key", ent.Key.String(), "version", ent.Version)
		} else {
			e.Metrics.Remove()
		}
		e.Dispatcher.Dispatch(types.RemovalEvent[V]{Key: ent.Key, Value: ent.Value, Reason: reason})
	}
}

/*
Load is used when the cache does NOT have the data.

This usually means:
- A database call
- A network request
*/
func (e *CacheEngine[V]) Load(ctx context.Context, loader types.Loader[V], key types.CompositeKey) (V, time.Duration, error) {
	return loader.Load(ctx, key)
}

// Close stops event delivery, waiting for queued events where the dispatcher buffers them.
func (e *CacheEngine[V]) Close() {
	e.Dispatcher.Close()
}
