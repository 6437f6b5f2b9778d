package types

import "time"

// Entry is one stored value. Entries are replaced wholesale on update and
// never patched in place, so a reader holding an *Entry sees a consistent one.
type Entry[V any] struct {
	Key       CompositeKey
	Value     V
	CreatedAt time.Time
	ExpireAt  time.Time // zero => no TTL

	// Version is unique per write. An expiration action only removes the
	// entry carrying the version it was scheduled for.
	Version uint64
}

// HasTTL reports whether the entry was written with a finite TTL.
func (e *Entry[V]) HasTTL() bool { return !e.ExpireAt.IsZero() }

// RemovalReason tells a listener why an entry left the cache.
type RemovalReason int

const (
	// Removed means an explicit Remove, RemoveAll or session Clear.
	Removed RemovalReason = iota
	// Replaced means AddOrUpdate overwrote the value.
	Replaced
	// Expired means the entry outlived its TTL.
	Expired
	// Cleared means ClearAll or Close emptied the cache.
	Cleared
)

func (r RemovalReason) String() string {
	switch r {
	case Removed:
		return "removed"
	case Replaced:
		return "replaced"
	case Expired:
		return "expired"
	case Cleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// RemovalEvent is handed to removal listeners after the shard lock is released.
type RemovalEvent[V any] struct {
	Key    CompositeKey
	Value  V
	Reason RemovalReason
}

// RemovalListener receives removal events.
type RemovalListener[V any] func(RemovalEvent[V])
