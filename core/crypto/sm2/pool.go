package sm2

import (
	"sync"
)

// bufferPool holds scratch slices used to assemble hash inputs and
// ciphertext layouts.
var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, 256)
		return &buf
	},
}

// getBuffer retrieves a zero-length buffer with at least minCapacity bytes
// of capacity. Return it with putBuffer.
func getBuffer(minCapacity int) []byte {
	bufPtr := bufferPool.Get().(*[]byte)
	buf := *bufPtr
	if cap(buf) < minCapacity {
		buf = make([]byte, 0, minCapacity)
	}
	return buf[:0]
}

// putBuffer wipes buf and returns it to the pool. Buffers above 64 KB are
// dropped so the pool does not pin large allocations.
func putBuffer(buf []byte) {
	const maxPooledBufferSize = 64 * 1024

	if cap(buf) <= maxPooledBufferSize {
		clear(buf[:cap(buf)])
		buf = buf[:0]
		bufferPool.Put(&buf)
	}
}
