package packets

import "sync"

// defaultBufferSize covers most control packets and small publishes without
// a secondary allocation.
const defaultBufferSize = 4096

var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, defaultBufferSize)
		return &buf
	},
}

// getBuffer returns a pooled buffer of at least size bytes of capacity.
func getBuffer(size int) *[]byte {
	if size > defaultBufferSize {
		buf := make([]byte, size)
		return &buf
	}
	return bufferPool.Get().(*[]byte)
}

// putBuffer returns a pooled buffer. Oversized buffers are left for the
// garbage collector rather than pooled.
func putBuffer(bufPtr *[]byte) {
	if cap(*bufPtr) != defaultBufferSize {
		return
	}
	bufferPool.Put(bufPtr)
}
