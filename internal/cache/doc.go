// Package cache provides the content-addressed object cache used to
// deduplicate immutable GPU objects, and a bounded LRU for derived data.
//
// # Content[K]
//
// Content maps a structural key to the single live object with that
// structure. Keys supply a hash and a structural equality:
//
//	type Key interface {
//	    Hash() uint64
//	    Equal(other K) bool
//	}
//
// Lookups use a blueprint, a throwaway object built from a descriptor that
// owns no backend state, so a hit never allocates backend resources:
//
//	if cached, ok := c.Find(blueprint); ok {
//	    return cached
//	}
//	obj := create()
//	c.Insert(obj)
//
// # Hashing
//
// Hasher builds FNV-1a structural hashes from descriptor fields in a
// stable order.
//
// # LRU[K, V]
//
// LRU keeps at most a fixed number of recomputable values, evicting the
// least recently used one on overflow:
//
//	c := cache.NewLRU[string, compiled](64)
//	if v, ok := c.Get(source); ok {
//	    return v
//	}
//	c.Add(source, compile(source))
//
// # Thread Safety
//
// Content is not safe for concurrent use. It is owned by a single device,
// whose API is single-threaded. LRU is safe for concurrent use.
package cache
