package shard

import (
	"github.com/cespare/xxhash/v2"
	"github.com/krisalay/session-cache/types"
)

/*
This file decides HOW a composite key is assigned to a shard.
If every request went to the same shard, that shard would become a bottleneck.
*/

// Selector decides which shard should handle a given key identity.
type Selector[V any] interface {
	Select(types.KeyID, []*Shard[V]) *Shard[V]
}

// HashSelector spreads keys with xxhash over the folded (key, session) pair.
// Because it hashes the folded identity, keys that differ only in case
// always land on the same shard.
type HashSelector[V any] struct{}

// Hash returns the 64-bit hash of a key identity. A NUL byte separates the
// two parts so ("ab", "c") and ("a", "bc") do not collide by construction.
func Hash(id types.KeyID) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(id.Key)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(id.Session)
	return d.Sum64()
}

func (HashSelector[V]) Select(id types.KeyID, shards []*Shard[V]) *Shard[V] {
	return shards[Hash(id)%uint64(len(shards))]
}
