package message

import "sync"

var defaultBytesPool = &sync.Pool{
	New: func() any {
		buf := make([]byte, 0, 1<<8)
		return &buf
	},
}

func getBytes() *[]byte {
	b := defaultBytesPool.Get().(*[]byte)
	*b = (*b)[:0]
	return b
}

func putBytes(b *[]byte) {
	// Large buffers from object payloads are left to the GC.
	if cap(*b) > 1<<16 {
		return
	}
	*b = (*b)[:0]
	defaultBytesPool.Put(b)
}
