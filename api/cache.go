package api

import (
	"context"
	"time"

	"github.com/krisalay/session-cache/types"
)

/*
Cache defines the PUBLIC API of the session cache.
This is a contract that guarantees certain behaviors, without exposing internals.
Sharding, version stamps, expiration scheduling and listener delivery are all
hidden behind this interface.
*/
type Cache[V any] interface {

	/*
		AddOrUpdate stores value under (key, session).

		BEHAVIOR:
		---------
		- Replaces any previous value for the same composite key (last writer wins)
		- ttl > 0: the entry removes itself after ttl
		- ttl <= 0: the entry stays until removed
		- Returns whether a previous value was replaced

		ERRORS:
		-------
		- invalid argument: empty key, nil or empty value (nothing is changed)
		- closed: the cache was closed
	*/
	AddOrUpdate(key string, value V, session string, ttl time.Duration) (bool, error)

	// Get returns the value under (key, session). Missing or expired => false.
	Get(key, session string) (V, bool)

	// GetAll returns the values under key across all sessions, in no
	// particular order. Nothing found => empty slice.
	GetAll(key string) []V

	/*
		GetOrLoad returns the cached value, or loads it through loader,
		stores it with the TTL the loader returned, and returns it.
		Concurrent misses on one composite key share a single load.
	*/
	GetOrLoad(ctx context.Context, key, session string, loader types.Loader[V]) (V, error)

	// Remove deletes (key, session). Idempotent; reports whether anything was removed.
	Remove(key, session string) (bool, error)

	// RemoveAll deletes key from every session.
	RemoveAll(key string) error

	// Clear deletes every entry of session. The empty session is cleared by "".
	Clear(session string) error

	// ClearAll deletes everything.
	ClearAll() error

	/*
		TTL returns the remaining time-to-live of (key, session).

		RETURN VALUES:
		--------------
		> 0   : Duration remaining before expiration
		-1    : Entry exists but has no TTL
		-2    : Entry does not exist or is already expired
	*/
	TTL(key, session string) time.Duration

	// Count and IsEmpty are snapshots and may be stale under concurrency.
	Count() int
	IsEmpty() bool

	/*
		Close empties the cache and moves it to the terminal Closed state.

		BEHAVIOR:
		---------
		- Removes every entry (listeners see them as cleared)
		- Waits for queued removal events to be delivered
		- Every later write fails with the closed error
		- Calling Close again does nothing
	*/
	Close() error
}
