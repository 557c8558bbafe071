package commands

import "sync"

// EncodingPool manages reusable Encoding objects so command buffer
// builders do not reallocate their streams on every recording.
//
//	pool := NewEncodingPool()
//	enc := pool.Get()
//	defer pool.Put(enc)
type EncodingPool struct {
	pool sync.Pool
}

// NewEncodingPool creates a new encoding pool.
func NewEncodingPool() *EncodingPool {
	return &EncodingPool{
		pool: sync.Pool{
			New: func() any {
				return NewEncoding()
			},
		},
	}
}

// Get retrieves an empty encoding from the pool.
func (p *EncodingPool) Get() *Encoding {
	return p.pool.Get().(*Encoding)
}

// Put releases the encoding's objects and returns it to the pool.
func (p *EncodingPool) Put(enc *Encoding) {
	if enc == nil {
		return
	}
	enc.Reset()
	p.pool.Put(enc)
}

// DefaultPool is the process-wide encoding pool.
var DefaultPool = NewEncodingPool()
