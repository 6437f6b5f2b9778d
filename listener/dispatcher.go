package listener

import (
	"log/slog"

	"github.com/krisalay/session-cache/types"
)

/*
This file defines how removal events reach the caller's listener.

Different callers have different needs:
- Some want to observe removals inline, in order (sync)
- Some must never slow a cache write down (async)

The store only ever calls Dispatch after it has released its shard lock, so a
listener is free to call back into the cache.
*/

// Dispatcher is the contract both delivery modes follow.
type Dispatcher[V any] interface {

	// Dispatch delivers one event.
	Dispatch(types.RemovalEvent[V])

	// Close is called when the cache is shutting down.
	Close()
}

// Noop drops every event. It is the default when no listener is configured.
type Noop[V any] struct{}

func (Noop[V]) Dispatch(types.RemovalEvent[V]) {}
func (Noop[V]) Close()                         {}

// deliver runs the listener and contains a panic to the one event, so an
// expiration goroutine never takes the process down.
func deliver[V any](logger *slog.Logger, fn types.RemovalListener[V], ev types.RemovalEvent[V]) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("removal listener panicked",
				"key", ev.Key.String(),
				"reason", ev.Reason.String(),
				"panic", r,
			)
		}
	}()
	fn(ev)
}
