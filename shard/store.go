package shard

import "github.com/krisalay/session-cache/types"

/*
This file defines how entries are actually held inside a shard.

The store itself is not synchronized: the owning Shard's lock guards every
call. Keeping the locking outside lets one shard operation (check version,
delete, collect the removed entry) run as a single critical section.
*/

// ShardStore is the interface used by a shard to store and retrieve cache entries.
type ShardStore[V any] interface {

	// Get retrieves an entry by key identity.
	Get(types.KeyID) (*types.Entry[V], bool)

	// Put inserts or replaces an entry and returns the one it replaced, if any.
	Put(types.KeyID, *types.Entry[V]) (*types.Entry[V], bool)

	// Delete removes an entry and returns it, if it was present.
	Delete(types.KeyID) (*types.Entry[V], bool)

	// Range calls fn for every entry until fn returns false.
	// fn must not call back into the store.
	Range(fn func(types.KeyID, *types.Entry[V]) bool)

	// Reset drops every entry and returns what was dropped.
	Reset() []*types.Entry[V]

	// Size returns how many entries are stored.
	Size() int
}

// mapStore is the plain map implementation of ShardStore.
type mapStore[V any] struct {
	data map[types.KeyID]*types.Entry[V]
}

func NewMapStore[V any]() ShardStore[V] {
	return &mapStore[V]{data: make(map[types.KeyID]*types.Entry[V])}
}

func (s *mapStore[V]) Get(id types.KeyID) (*types.Entry[V], bool) {
	ent, ok := s.data[id]
	return ent, ok
}

func (s *mapStore[V]) Put(id types.KeyID, ent *types.Entry[V]) (*types.Entry[V], bool) {
	prev, ok := s.data[id]
	s.data[id] = ent
	return prev, ok
}

func (s *mapStore[V]) Delete(id types.KeyID) (*types.Entry[V], bool) {
	ent, ok := s.data[id]
	if ok {
		delete(s.data, id)
	}
	return ent, ok
}

func (s *mapStore[V]) Range(fn func(types.KeyID, *types.Entry[V]) bool) {
	for id, ent := range s.data {
		if !fn(id, ent) {
			return
		}
	}
}

// Reset swaps in a fresh map rather than deleting key by key, so a large
// shard's memory is released at once.
func (s *mapStore[V]) Reset() []*types.Entry[V] {
	dropped := make([]*types.Entry[V], 0, len(s.data))
	for _, ent := range s.data {
		dropped = append(dropped, ent)
	}
	s.data = make(map[types.KeyID]*types.Entry[V])
	return dropped
}

func (s *mapStore[V]) Size() int {
	return len(s.data)
}
