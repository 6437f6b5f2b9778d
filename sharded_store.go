package cache

import (
	"reflect"
	"sync/atomic"
	"time"

	"github.com/krisalay/session-cache/engine"
	"github.com/krisalay/session-cache/expiration"
	"github.com/krisalay/session-cache/shard"
	"github.com/krisalay/session-cache/types"
)

// DefaultShards is used when NewShardedStore is given a non-positive count.
const DefaultShards = 16

/*
ShardedStore is the expiring store behind SessionCache.
This struct is the orchestrator that connects:
- shards (storage + per-key locking)
- the engine (clock, expiration scheduling, metrics, removal events)

Every finite-TTL write schedules exactly one expiration action. The action
carries the key identity and the version stamp of the entry it was scheduled
for, nothing else. When it fires it removes the entry only if that exact
version is still stored, so a timer left over from an overwritten value can
never delete the newer one.
*/
type ShardedStore[V any] struct {
	// shards are the actual storage units. Each shard is an independent mini-store.
	shards []*shard.Shard[V]

	// engine contains the "rules": clock, scheduler, metrics, listeners, logging.
	engine *engine.CacheEngine[V]

	// selector decides which shard a key identity goes to.
	selector shard.Selector[V]

	// version hands out one stamp per write.
	version atomic.Uint64

	// sealed is set once by Seal. Put checks it under the shard lock.
	sealed atomic.Bool
}

// NewShardedStore rounds shards up to a power of two.
func NewShardedStore[V any](shards int, eng *engine.CacheEngine[V]) *ShardedStore[V] {
	if shards <= 0 {
		shards = DefaultShards
	}
	n := 1
	for n < shards {
		n <<= 1
	}

	s := make([]*shard.Shard[V], n)
	for i := range s {
		s[i] = shard.NewShard[V]()
	}

	return &ShardedStore[V]{
		shards:   s,
		engine:   eng,
		selector: shard.HashSelector[V]{},
	}
}

/*
Put inserts or replaces the entry for key.

It fails with ErrInvalidArgument before touching anything when the primary key
is empty or the value is absent, and with ErrClosed once the store is sealed.
existed reports whether a live value was replaced.
*/
func (s *ShardedStore[V]) Put(key types.CompositeKey, value V, ttl time.Duration) (existed bool, err error) {
	if key.Key() == "" {
		return false, invalidArgument("Put", "primary key cannot be empty")
	}
	if isAbsent(value) {
		return false, invalidArgument("Put", "value cannot be nil or empty")
	}

	id := key.ID()
	sh := s.selector.Select(id, s.shards)

	now := s.engine.Now()
	ent := &types.Entry[V]{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		Version:   s.version.Add(1),
	}
	if ttl > 0 {
		ent.ExpireAt = now.Add(ttl)
	}

	sh.Mu.Lock()
	if s.sealed.Load() {
		sh.Mu.Unlock()
		return false, closedError("Put")
	}
	prev, existed := sh.Store.Put(id, ent)
	sh.Mu.Unlock()

	// Scheduling happens outside the lock: the scheduler may take its own locks.
	if ttl > 0 {
		version := ent.Version
		s.engine.ScheduleExpiry(key, version, ttl, func() {
			s.expire(id, version)
		})
	}

	// A value already past its deadline was logically gone: report it as
	// expired, not replaced.
	if existed && expiration.IsExpired(prev, now) {
		s.engine.OnWrite(nil)
		s.engine.OnRemove([]*types.Entry[V]{prev}, types.Expired)
		return false, nil
	}
	s.engine.OnWrite(prev)
	return existed, nil
}

/*
Get returns the value stored under key.

Besides missing keys, an entry whose deadline has passed is reported absent
even if its expiration action has not run yet; such an entry is removed here.
*/
func (s *ShardedStore[V]) Get(key types.CompositeKey) (V, bool) {
	id := key.ID()
	sh := s.selector.Select(id, s.shards)

	sh.Mu.RLock()
	ent, ok := sh.Store.Get(id)
	sh.Mu.RUnlock()

	if ok && s.engine.IsExpired(ent) {
		s.expire(id, ent.Version)
		ok = false
	}

	if !ok {
		s.engine.Metrics.Miss()
		var zero V
		return zero, false
	}

	s.engine.Metrics.Hit()
	return ent.Value, true
}

// GetAllByPrimaryKey returns the values of every live entry whose primary key
// matches, across all sessions, in no particular order. Never nil.
func (s *ShardedStore[V]) GetAllByPrimaryKey(primaryKey string) []V {
	folded := types.Fold(primaryKey)
	now := s.engine.Now()

	values := make([]V, 0)
	for _, sh := range s.shards {
		sh.Mu.RLock()
		sh.Store.Range(func(id types.KeyID, ent *types.Entry[V]) bool {
			if id.Key == folded && !expiration.IsExpired(ent, now) {
				values = append(values, ent.Value)
			}
			return true
		})
		sh.Mu.RUnlock()
	}

	if len(values) == 0 {
		s.engine.Metrics.Miss()
	} else {
		s.engine.Metrics.Hit()
	}
	return values
}

// Remove deletes the entry for key. Removing a missing key is a no-op.
func (s *ShardedStore[V]) Remove(key types.CompositeKey) bool {
	id := key.ID()
	sh := s.selector.Select(id, s.shards)

	sh.Mu.Lock()
	ent, ok := sh.Store.Delete(id)
	sh.Mu.Unlock()

	if !ok {
		return false
	}
	if s.engine.IsExpired(ent) {
		s.engine.OnRemove([]*types.Entry[V]{ent}, types.Expired)
		return false
	}
	s.engine.OnRemove([]*types.Entry[V]{ent}, types.Removed)
	return true
}

// RemoveAllByPrimaryKey deletes the key from every session and returns how many live entries went.
func (s *ShardedStore[V]) RemoveAllByPrimaryKey(primaryKey string) int {
	folded := types.Fold(primaryKey)
	return s.removeWhere(func(id types.KeyID) bool { return id.Key == folded })
}

// RemoveAllBySession deletes every entry of one session and returns how many live entries went.
func (s *ShardedStore[V]) RemoveAllBySession(session string) int {
	folded := types.Fold(session)
	return s.removeWhere(func(id types.KeyID) bool { return id.Session == folded })
}

// Clear removes everything. Pending expiration actions later find nothing to remove.
func (s *ShardedStore[V]) Clear() int {
	cleared := 0
	for _, sh := range s.shards {
		sh.Mu.Lock()
		dropped := sh.Store.Reset()
		sh.Mu.Unlock()

		cleared += len(dropped)
		s.engine.OnRemove(dropped, types.Cleared)
	}
	return cleared
}

// Seal clears the store and makes every later Put fail with ErrClosed.
// The flag is raised before the first shard is cleared, and Put reads it
// under the shard lock, so no write can land after its shard was cleared.
func (s *ShardedStore[V]) Seal() int {
	s.sealed.Store(true)
	return s.Clear()
}

// Count is a snapshot; it may include entries past their deadline that
// have not been removed yet.
func (s *ShardedStore[V]) Count() int {
	n := 0
	for _, sh := range s.shards {
		sh.Mu.RLock()
		n += sh.Store.Size()
		sh.Mu.RUnlock()
	}
	return n
}

func (s *ShardedStore[V]) IsEmpty() bool {
	for _, sh := range s.shards {
		sh.Mu.RLock()
		size := sh.Store.Size()
		sh.Mu.RUnlock()
		if size > 0 {
			return false
		}
	}
	return true
}

/*
TTL returns remaining time-to-live of a key.

	> 0 : time left before expiration
	 -1 : key exists but has no TTL
	 -2 : key does not exist or is already expired
*/
func (s *ShardedStore[V]) TTL(key types.CompositeKey) time.Duration {
	id := key.ID()
	sh := s.selector.Select(id, s.shards)

	sh.Mu.RLock()
	ent, ok := sh.Store.Get(id)
	sh.Mu.RUnlock()

	if !ok {
		return -2
	}
	if !ent.HasTTL() {
		return -1
	}
	d := ent.ExpireAt.Sub(s.engine.Now())
	if d <= 0 {
		return -2
	}
	return d
}

// expire is the body of every expiration action, and of the lazy check in Get.
// It removes the entry only if the stored version is still the given one.
func (s *ShardedStore[V]) expire(id types.KeyID, version uint64) {
	sh := s.selector.Select(id, s.shards)

	sh.Mu.Lock()
	ent, ok := sh.Store.Get(id)
	if !ok || ent.Version != version {
		sh.Mu.Unlock()
		return
	}
	sh.Store.Delete(id)
	sh.Mu.Unlock()

	s.engine.OnRemove([]*types.Entry[V]{ent}, types.Expired)
}

// removeWhere deletes matching entries shard by shard. Entries already past
// their deadline are reported as expired and not counted.
func (s *ShardedStore[V]) removeWhere(match func(types.KeyID) bool) int {
	removed := 0
	for _, sh := range s.shards {
		var ids []types.KeyID

		sh.Mu.Lock()
		sh.Store.Range(func(id types.KeyID, _ *types.Entry[V]) bool {
			if match(id) {
				ids = append(ids, id)
			}
			return true
		})
		gone := make([]*types.Entry[V], 0, len(ids))
		for _, id := range ids {
			if ent, ok := sh.Store.Delete(id); ok {
				gone = append(gone, ent)
			}
		}
		sh.Mu.Unlock()

		if len(gone) == 0 {
			continue
		}

		now := s.engine.Now()
		live := make([]*types.Entry[V], 0, len(gone))
		var stale []*types.Entry[V]
		for _, ent := range gone {
			if expiration.IsExpired(ent, now) {
				stale = append(stale, ent)
			} else {
				live = append(live, ent)
			}
		}
		removed += len(live)
		s.engine.OnRemove(live, types.Removed)
		s.engine.OnRemove(stale, types.Expired)
	}
	return removed
}

// isAbsent reports values that may not be stored: nil, nil pointers / maps /
// slices / channels / funcs, and empty strings.
func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
