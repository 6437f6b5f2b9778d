package shard

import "sync"

/*
This file defines what a "Shard" is. A shard is a small, independent piece of the cache.
Instead of having: One big map and one big lock
We split the cache into many shards. Each shard:
- Holds the entries whose key identity hashes to it
- Has its own lock

Every write, remove and expiration on one composite key goes through the same
shard lock, which is what makes operations on a single key linearizable.
Operations on keys in different shards never contend.
*/

type Shard[V any] struct {

	// Store holds the actual key identity → entry data for this shard.
	Store ShardStore[V]

	// Mu protects Store.
	// - Get / Count / scans take the read lock
	// - Put / Remove / expire / clears take the write lock
	Mu sync.RWMutex
}

func NewShard[V any]() *Shard[V] {
	return &Shard[V]{Store: NewMapStore[V]()}
}
