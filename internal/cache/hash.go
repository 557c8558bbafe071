package cache

const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

// Hasher accumulates an FNV-1a hash over a sequence of values.
// The zero value is not ready for use; call NewHasher.
type Hasher struct {
	sum uint64
}

// NewHasher returns a hasher seeded with the FNV offset basis.
func NewHasher() Hasher {
	return Hasher{sum: fnvOffset}
}

// Uint64 mixes v into the hash, one byte at a time.
func (h *Hasher) Uint64(v uint64) {
	for i := 0; i < 8; i++ {
		h.sum ^= v & 0xFF
		h.sum *= fnvPrime
		v >>= 8
	}
}

// Uint32 mixes v into the hash.
func (h *Hasher) Uint32(v uint32) {
	h.Uint64(uint64(v))
}

// Sum returns the accumulated hash.
func (h *Hasher) Sum() uint64 {
	return h.sum
}
