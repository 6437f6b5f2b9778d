// Package cache is an in-process, session-scoped key-value cache with
// per-entry expiration.
//
// Every value lives under a composite key: a primary key plus a session
// label. Both compare case-insensitively, and the empty session is a session
// like any other. Entries written with a TTL are removed by the cache itself
// once the TTL elapses; an overwrite before that point keeps the new value no
// matter when the old timer fires.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/krisalay/session-cache/api"
	"github.com/krisalay/session-cache/engine"
	"github.com/krisalay/session-cache/internal/logging"
	"github.com/krisalay/session-cache/listener"
	"github.com/krisalay/session-cache/types"
	"golang.org/x/sync/singleflight"
)

// NoExpiration stores a value until it is removed. Any ttl <= 0 means the same.
const NoExpiration time.Duration = 0

const (
	stateOpen int32 = iota
	stateClosed
)

var _ api.Cache[string] = (*SessionCache[string])(nil)

/*
SessionCache is the public face of the cache.

It turns (key, session) strings into composite keys, enforces the Open → Closed
lifecycle, and delegates everything else to a ShardedStore.
*/
type SessionCache[V any] struct {
	store  *ShardedStore[V]
	engine *engine.CacheEngine[V]

	// sf makes concurrent GetOrLoad misses on one composite key share a single load.
	sf singleflight.Group

	state atomic.Int32
}

// New builds an open cache.
func New[V any](opts ...Option[V]) *SessionCache[V] {
	o := applyOptions(opts...)

	logger := o.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var dispatcher listener.Dispatcher[V]
	switch {
	case o.listener == nil:
		dispatcher = listener.Noop[V]{}
	case o.asyncBuffer > 0:
		dispatcher = listener.NewAsyncDispatcher(o.listener, o.asyncBuffer, logger)
	default:
		dispatcher = listener.NewSyncDispatcher(o.listener, logger)
	}

	eng := engine.NewCacheEngine(o.scheduler, dispatcher, o.metrics, logger)

	return &SessionCache[V]{
		store:  NewShardedStore(o.shards, eng),
		engine: eng,
	}
}

/*
AddOrUpdate stores value under (key, session), replacing any previous value.

ttl > 0 schedules the entry's removal after ttl; NoExpiration (or any ttl <= 0)
keeps it until removed. The result reports whether a value was replaced.
*/
func (c *SessionCache[V]) AddOrUpdate(key string, value V, session string, ttl time.Duration) (bool, error) {
	if c.closed() {
		return false, closedError("AddOrUpdate")
	}
	return c.store.Put(types.NewCompositeKey(key, session), value, ttl)
}

// Get returns the value under (key, session), if any.
func (c *SessionCache[V]) Get(key, session string) (V, bool) {
	return c.store.Get(types.NewCompositeKey(key, session))
}

// GetAll returns the values stored under key in every session.
// It returns an empty slice, not an error, when nothing matches.
func (c *SessionCache[V]) GetAll(key string) []V {
	return c.store.GetAllByPrimaryKey(key)
}

/*
GetOrLoad returns the cached value or loads, stores and returns it.

If many goroutines miss on the same composite key at once, only ONE of them
calls the loader; the others wait for its result. A loader error is returned
and nothing is cached.
*/
func (c *SessionCache[V]) GetOrLoad(ctx context.Context, key, session string, loader types.Loader[V]) (V, error) {
	var zero V
	if loader == nil {
		return zero, invalidArgument("GetOrLoad", "loader cannot be nil")
	}
	if c.closed() {
		return zero, closedError("GetOrLoad")
	}

	ck := types.NewCompositeKey(key, session)
	if v, ok := c.store.Get(ck); ok {
		return v, nil
	}

	id := ck.ID()
	res, err, _ := c.sf.Do(id.Key+"\x00"+id.Session, func() (any, error) {
		v, ttl, err := c.engine.Load(ctx, loader, ck)
		if err != nil {
			c.engine.Logger.Warn("load failed", "key", ck.String(), "err", err)
			return nil, fmt.Errorf("cache.GetOrLoad: load %s: %w", ck, err)
		}
		if _, err := c.store.Put(ck, v, ttl); err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(V), nil
}

// Remove deletes (key, session) and reports whether a value was removed.
func (c *SessionCache[V]) Remove(key, session string) (bool, error) {
	if c.closed() {
		return false, closedError("Remove")
	}
	return c.store.Remove(types.NewCompositeKey(key, session)), nil
}

// RemoveAll deletes key from every session.
func (c *SessionCache[V]) RemoveAll(key string) error {
	if c.closed() {
		return closedError("RemoveAll")
	}
	c.store.RemoveAllByPrimaryKey(key)
	return nil
}

// Clear deletes every entry of session.
func (c *SessionCache[V]) Clear(session string) error {
	if c.closed() {
		return closedError("Clear")
	}
	c.store.RemoveAllBySession(session)
	return nil
}

// ClearAll deletes everything.
func (c *SessionCache[V]) ClearAll() error {
	if c.closed() {
		return closedError("ClearAll")
	}
	c.store.Clear()
	return nil
}

// TTL reports the remaining lifetime of (key, session): -1 without TTL, -2 when absent.
func (c *SessionCache[V]) TTL(key, session string) time.Duration {
	return c.store.TTL(types.NewCompositeKey(key, session))
}

// Count is advisory under concurrency.
func (c *SessionCache[V]) Count() int {
	return c.store.Count()
}

// IsEmpty is advisory under concurrency.
func (c *SessionCache[V]) IsEmpty() bool {
	return c.store.IsEmpty()
}

/*
Close empties the cache and makes it unusable for writes.
Queued removal events are delivered before Close returns.
Only the first call does anything.
*/
func (c *SessionCache[V]) Close() error {
	if !c.state.CompareAndSwap(stateOpen, stateClosed) {
		return nil
	}
	cleared := c.store.Seal()
	c.engine.Close()
	c.engine.Logger.Debug("cache closed", "cleared", cleared)
	return nil
}

func (c *SessionCache[V]) closed() bool {
	return c.state.Load() == stateClosed
}
