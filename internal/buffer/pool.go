package buffer

import "sync"

// Pool hands out fixed-size []byte buffers for socket reads, backed by sync.Pool so the I/O worker pool
// doesn't churn the GC on every accepted connection.
type Pool struct {
	pool     sync.Pool
	byteSize int
}

// NewPool returns a Pool handing out byteSize-length slices.
func NewPool(byteSize int) *Pool {
	p := &Pool{byteSize: byteSize}
	p.pool.New = func() any {
		return make([]byte, byteSize)
	}
	return p
}

// Get returns a buffer of exactly the pool's configured size.
func (p *Pool) Get() []byte {
	return p.pool.Get().([]byte)
}

// Put returns a buffer to the pool. Buffers of the wrong capacity (e.g.
// grown by a caller) are dropped instead of poisoning the pool.
func (p *Pool) Put(b []byte) {
	if cap(b) != p.byteSize {
		return
	}
	p.pool.Put(b[:p.byteSize])
}
