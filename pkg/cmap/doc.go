// Package cmap provides a concurrent string-keyed map split into shards.
//
// Keys are assigned to shards by a seeded murmur3 hash, and each shard has
// its own RWMutex, so writers on different shards never contend.
//
//	m := cmap.New[*conn.Connection]()
//	m.Set(id, c)
//	c, ok := m.Get(id)
//
// Range visits shards one at a time and does not see a consistent snapshot
// of the whole map.
package cmap
