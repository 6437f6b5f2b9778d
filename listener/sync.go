package listener

import (
	"log/slog"

	"github.com/krisalay/session-cache/internal/logging"
	"github.com/krisalay/session-cache/types"
)

/*
SyncDispatcher calls the listener on the goroutine that removed the entry.

  - AddOrUpdate / Remove / Clear return only after their listeners ran
  - Expiration events run on the timer goroutine that fired
  - A slow listener slows the operation that triggered it
*/
type SyncDispatcher[V any] struct {
	fn     types.RemovalListener[V]
	logger *slog.Logger
}

func NewSyncDispatcher[V any](fn types.RemovalListener[V], logger *slog.Logger) *SyncDispatcher[V] {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SyncDispatcher[V]{fn: fn, logger: logger}
}

func (d *SyncDispatcher[V]) Dispatch(ev types.RemovalEvent[V]) {
	deliver(d.logger, d.fn, ev)
}

// Close has nothing to release: there is no background worker.
func (d *SyncDispatcher[V]) Close() {}
