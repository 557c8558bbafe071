package cache

// Key is implemented by objects stored in a Content cache.
// Equal must be true for keys with equal structure, and equal keys must
// return equal hashes.
type Key[K any] interface {
	Hash() uint64
	Equal(other K) bool
}

// Content is a content-addressed set of live objects.
// It holds non-owning references: callers remove objects when they are
// destroyed.
type Content[K Key[K]] struct {
	buckets map[uint64][]K
	count   int

	// statistics
	hits   uint64
	misses uint64
}

// NewContent creates an empty content cache.
func NewContent[K Key[K]]() *Content[K] {
	return &Content[K]{
		buckets: make(map[uint64][]K),
	}
}

// Find returns the cached object structurally equal to key.
func (c *Content[K]) Find(key K) (K, bool) {
	for _, obj := range c.buckets[key.Hash()] {
		if obj.Equal(key) {
			c.hits++
			return obj, true
		}
	}
	c.misses++
	var zero K
	return zero, false
}

// Insert adds obj to the cache. It returns false, leaving the cache
// unchanged, if an equal object is already present.
func (c *Content[K]) Insert(obj K) bool {
	h := obj.Hash()
	for _, existing := range c.buckets[h] {
		if existing.Equal(obj) {
			return false
		}
	}
	c.buckets[h] = append(c.buckets[h], obj)
	c.count++
	return true
}

// Remove deletes the entry equal to obj.
// Returns true if an entry was removed.
func (c *Content[K]) Remove(obj K) bool {
	h := obj.Hash()
	bucket := c.buckets[h]
	for i, existing := range bucket {
		if !existing.Equal(obj) {
			continue
		}
		bucket[i] = bucket[len(bucket)-1]
		var zero K
		bucket[len(bucket)-1] = zero
		bucket = bucket[:len(bucket)-1]
		if len(bucket) == 0 {
			delete(c.buckets, h)
		} else {
			c.buckets[h] = bucket
		}
		c.count--
		return true
	}
	return false
}

// Len returns the number of cached objects.
func (c *Content[K]) Len() int {
	return c.count
}

// Stats returns cache statistics.
func (c *Content[K]) Stats() Stats {
	return Stats{
		Len:     c.count,
		Buckets: len(c.buckets),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Buckets is the number of distinct hashes.
	Buckets int
	// Hits is the number of successful lookups.
	Hits uint64
	// Misses is the number of failed lookups.
	Misses uint64
}
